package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chadiek/convokit/internal/config"
)

// Server bundles the HTTP router and dependencies. Each /session connection
// gets its own engine instance, so one process serves any number of
// independent conversations.
type Server struct {
	Router http.Handler
	cfg    config.Config
}

// New constructs the HTTP server with routes.
func New(cfg config.Config) *Server {
	e := newRouter()
	s := &Server{Router: e, cfg: cfg}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/session", s.handleSession)

	return s
}

// sessionAuthOK accepts a token via ?token=, X-Auth-Token, or an
// Authorization bearer header. An empty expected token disables the check.
func sessionAuthOK(r *http.Request, expected string) bool {
	if expected == "" {
		return true
	}
	if r == nil {
		return false
	}
	if r.URL.Query().Get("token") == expected {
		return true
	}
	if r.Header.Get("X-Auth-Token") == expected {
		return true
	}
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") && auth[7:] == expected {
		return true
	}
	return false
}
