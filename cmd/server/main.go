package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chadiek/convokit/internal/config"
	"github.com/chadiek/convokit/internal/httpserver"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()
	app := httpserver.New(cfg)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("convokit listening on %s", cfg.HTTPAddress)
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("convokit: listen failed: %v", err)
		}
		return
	case sig := <-stop:
		log.Printf("convokit: %v received, draining sessions", sig)
	}

	// Open WebSocket sessions get ShutdownTimeout to flush their final
	// snapshot before the listener is torn down.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("convokit: drain incomplete (%v), closing hard", err)
		_ = server.Close()
	}
	log.Printf("convokit: stopped")
}
