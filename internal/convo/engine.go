package convo

import (
	"log"
	"sync"
	"time"

	"github.com/chadiek/convokit/internal/events"
)

// Default timing values; all are overridable per engine instance.
const (
	DefaultBotCloseDelay      = 2500 * time.Millisecond
	DefaultUserCloseDelay     = 3000 * time.Millisecond
	DefaultToolBackfillWindow = 2000 * time.Millisecond
	DefaultMergeWindow        = 5000 * time.Millisecond
)

// Observer receives one callback per logical turn creation or update, for
// consumers that want per-turn notifications rather than full-snapshot
// polling. A panicking observer is recovered and logged, never propagated.
type Observer func(events.TurnView)

// SnapshotListener receives the full normalized transcript after every
// mutation.
type SnapshotListener func(events.Snapshot)

// Engine is one conversation session: it applies inbound events to the
// assembler and finalization controller, normalizes, and publishes. Engines
// are independent; a process may run any number of concurrent sessions.
//
// All mutation is serialized through one mutex, including timer fires, so
// handlers always observe the fully-applied effect of earlier events.
type Engine struct {
	mu   sync.Mutex
	asm  *Assembler
	ctrl *Controller

	mergeWindow  time.Duration
	toolBackfill time.Duration

	observers []Observer
	listeners []SnapshotListener

	// turns touched by the current event, drained into observer callbacks
	// after the lock is released.
	touched []*Turn
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	sched          Scheduler
	now            func() time.Time
	botCloseDelay  time.Duration
	userCloseDelay time.Duration
	toolBackfill   time.Duration
	mergeWindow    time.Duration
}

// WithScheduler injects a timer scheduler (fake clocks in tests).
func WithScheduler(s Scheduler) Option { return func(c *engineConfig) { c.sched = s } }

// WithClock injects the time source.
func WithClock(now func() time.Time) Option { return func(c *engineConfig) { c.now = now } }

// WithBotCloseDelay overrides the assistant turn-close delay.
func WithBotCloseDelay(d time.Duration) Option { return func(c *engineConfig) { c.botCloseDelay = d } }

// WithUserCloseDelay overrides the human turn-close delay.
func WithUserCloseDelay(d time.Duration) Option { return func(c *engineConfig) { c.userCloseDelay = d } }

// WithToolBackfillWindow overrides the tool-call name back-fill window.
func WithToolBackfillWindow(d time.Duration) Option {
	return func(c *engineConfig) { c.toolBackfill = d }
}

// WithMergeWindow overrides the same-role turn merge window.
func WithMergeWindow(d time.Duration) Option { return func(c *engineConfig) { c.mergeWindow = d } }

// NewEngine constructs an engine with explicit dependencies; no globals.
func NewEngine(opts ...Option) *Engine {
	cfg := engineConfig{
		sched:          NewScheduler(),
		now:            time.Now,
		botCloseDelay:  DefaultBotCloseDelay,
		userCloseDelay: DefaultUserCloseDelay,
		toolBackfill:   DefaultToolBackfillWindow,
		mergeWindow:    DefaultMergeWindow,
	}
	for _, o := range opts {
		o(&cfg)
	}
	e := &Engine{
		mergeWindow:  cfg.mergeWindow,
		toolBackfill: cfg.toolBackfill,
	}
	e.asm = NewAssembler(cfg.now)
	e.ctrl = NewController(e.asm, cfg.sched, cfg.now, cfg.botCloseDelay, cfg.userCloseDelay, e.runLocked, e.touch)
	return e
}

// AddObserver registers a per-turn callback.
func (e *Engine) AddObserver(o Observer) {
	e.mu.Lock()
	e.observers = append(e.observers, o)
	e.mu.Unlock()
}

// AddSnapshotListener registers a full-snapshot callback.
func (e *Engine) AddSnapshotListener(l SnapshotListener) {
	e.mu.Lock()
	e.listeners = append(e.listeners, l)
	e.mu.Unlock()
}

// Apply processes one inbound event synchronously and publishes the updated
// transcript. Unknown event kinds are ignored; malformed input never
// crashes assembly.
func (e *Engine) Apply(ev events.Envelope) {
	e.mu.Lock()
	switch ev.Type {
	case events.KindGeneratedText:
		t, reopened := e.asm.ApplyGenerated(ev.Text, ev.AggregationType)
		if reopened {
			e.ctrl.NoteReopen()
		}
		e.ctrl.AssistantContent()
		e.touch(t)
	case events.KindSpokenText:
		t, reopened := e.asm.ApplySpoken(ev.Text, ev.AggregationType)
		if reopened {
			e.ctrl.NoteReopen()
		}
		e.ctrl.AssistantContent()
		e.touch(t)
	case events.KindAssistantSpeechStarted:
		e.ctrl.BotStartedSpeaking()
	case events.KindAssistantSpeechStopped:
		e.ctrl.BotStoppedSpeaking()
	case events.KindHumanSpeechStarted:
		e.ctrl.UserStartedSpeaking()
	case events.KindHumanSpeechStopped:
		e.ctrl.UserStoppedSpeaking()
	case events.KindHumanTranscript:
		t := e.asm.ApplyTranscript(ev.Text, ev.Final)
		e.ctrl.TranscriptArrived(ev.Final)
		e.touch(t)
	case events.KindToolCallStarted:
		e.touch(e.asm.ToolCallStart(ev.Name, e.toolBackfill))
	case events.KindToolCallProgress:
		e.touch(e.asm.ToolCallProgress(ev.ID, ev.Name, ev.Args))
	case events.KindToolCallStopped:
		e.touch(e.asm.ToolCallStop(ev.ID, ev.Result, ev.Cancelled))
	case events.KindSessionReset:
		e.asm.Reset()
		e.ctrl.Reset()
	default:
		log.Printf("engine: ignoring unknown event type %q", ev.Type)
	}
	snap, views, obs, lis := e.collectLocked()
	e.mu.Unlock()
	publish(snap, views, obs, lis)
}

// Reset clears all conversation state; equivalent to a SessionReset event.
func (e *Engine) Reset() {
	e.Apply(events.Envelope{Type: events.KindSessionReset})
}

// Snapshot returns the current normalized transcript.
func (e *Engine) Snapshot() events.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renderLocked()
}

// Turns returns deep copies of the normalized turn list for in-process
// consumers.
func (e *Engine) Turns() []*Turn {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.annotateLocked()
	return Normalize(e.asm.Turns(), e.mergeWindow)
}

// runLocked executes a timer callback under the engine lock, then publishes
// whatever changed. Timer fires go through the exact same path as events.
func (e *Engine) runLocked(f func()) {
	e.mu.Lock()
	f()
	snap, views, obs, lis := e.collectLocked()
	e.mu.Unlock()
	publish(snap, views, obs, lis)
}

// touch records a turn affected by the current event.
func (e *Engine) touch(t *Turn) {
	if t == nil {
		return
	}
	for _, seen := range e.touched {
		if seen == t {
			return
		}
	}
	e.touched = append(e.touched, t)
}

// annotateLocked caches each part's confirmed-spoken prefix so snapshots
// carry the spoken/unspoken split through normalization.
func (e *Engine) annotateLocked() {
	for _, t := range e.asm.Turns() {
		if t.Role != RoleAssistant {
			continue
		}
		cur := e.asm.Cursor(t.ID)
		for i, p := range t.Parts {
			p.spokenChars = cur.SpokenChars(i, t.Parts)
		}
	}
}

func (e *Engine) renderLocked() events.Snapshot {
	e.annotateLocked()
	turns := Normalize(e.asm.Turns(), e.mergeWindow)
	views := make([]events.TurnView, len(turns))
	for i, t := range turns {
		views[i] = turnView(t)
	}
	return events.Snapshot{Type: events.SnapshotType, Turns: views}
}

func (e *Engine) collectLocked() (events.Snapshot, []events.TurnView, []Observer, []SnapshotListener) {
	snap := e.renderLocked()
	views := make([]events.TurnView, 0, len(e.touched))
	for _, t := range e.touched {
		views = append(views, turnView(t))
	}
	e.touched = e.touched[:0]
	obs := append([]Observer(nil), e.observers...)
	lis := append([]SnapshotListener(nil), e.listeners...)
	return snap, views, obs, lis
}

// publish fans out outside the lock. Each callback is isolated: one faulty
// observer cannot corrupt engine state or block the others.
func publish(snap events.Snapshot, views []events.TurnView, obs []Observer, lis []SnapshotListener) {
	for _, v := range views {
		for _, o := range obs {
			safeNotify(func() { o(v) })
		}
	}
	for _, l := range lis {
		safeNotify(func() { l(snap) })
	}
}

func safeNotify(f func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("engine: observer panic recovered: %v", r)
		}
	}()
	f()
}

func turnView(t *Turn) events.TurnView {
	v := events.TurnView{
		ID:         t.ID,
		Role:       string(t.Role),
		Final:      t.Final,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
		ToolName:   t.ToolName,
		ToolStatus: string(t.ToolStatus),
		ToolArgs:   t.ToolArgs,
		ToolResult: t.ToolResult,
	}
	for _, p := range t.Parts {
		pv := events.PartView{
			Text:            p.Text,
			Final:           p.Final,
			AggregationType: p.AggregationType,
			DisplayMode:     string(p.DisplayMode),
		}
		if t.Role == RoleAssistant && p.IsText() {
			pv.Spoken, pv.Unspoken = p.SpokenSplit()
		}
		v.Parts = append(v.Parts, pv)
	}
	return v
}
