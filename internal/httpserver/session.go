package httpserver

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/chadiek/convokit/internal/convo"
	"github.com/chadiek/convokit/internal/events"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 65536,
	CheckOrigin: func(r *http.Request) bool {
		// Allow any origin for demo use; restrict in production
		return true
	},
}

// handleSession upgrades to WebSocket and runs one conversation session:
// inbound frames are event envelopes, outbound frames are full normalized
// transcript snapshots emitted after every mutation.
func (s *Server) handleSession(c echo.Context) error {
	if !sessionAuthOK(c.Request(), s.cfg.SessionAuthToken) {
		return c.NoContent(http.StatusUnauthorized)
	}

	conn, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("session: ws upgrade error: %v", err)
		return nil
	}
	defer func() { _ = conn.Close() }()

	eng := convo.NewEngine(
		convo.WithBotCloseDelay(s.cfg.BotCloseDelay),
		convo.WithUserCloseDelay(s.cfg.UserCloseDelay),
		convo.WithToolBackfillWindow(s.cfg.ToolBackfillWindow),
		convo.WithMergeWindow(s.cfg.MergeWindow),
	)

	done := make(chan struct{})
	send := make(chan events.Snapshot, 32)
	eng.AddSnapshotListener(func(snap events.Snapshot) {
		select {
		case <-done:
			return
		default:
		}
		select {
		case send <- snap:
		default:
			// Slow consumer: skip this frame, a newer snapshot follows.
			log.Printf("session: dropping snapshot frame for slow consumer")
		}
	})

	// Initial frame so the client renders the (empty) transcript immediately.
	if err := conn.WriteJSON(eng.Snapshot()); err != nil {
		log.Printf("session: ws write error: %v", err)
		return nil
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case snap := <-send:
				if err := conn.WriteJSON(snap); err != nil {
					log.Printf("session: ws write error: %v", err)
					return
				}
			}
		}
	}()

	defer close(done)
	// Session teardown cancels any pending finalization timers.
	defer eng.Reset()

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("session: ws read error: %v", err)
			}
			return nil
		}
		if mt != websocket.TextMessage {
			continue
		}
		var ev events.Envelope
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("session: invalid event frame: %v", err)
			continue
		}
		eng.Apply(ev)
	}
}
