package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string

	// SessionAuthToken guards the session WebSocket endpoint; empty means open.
	SessionAuthToken string

	// BotCloseDelay is how long after the assistant stops speaking we wait
	// before finalizing its turn; absorbs text-to-speech pauses.
	BotCloseDelay time.Duration
	// UserCloseDelay is how long after the human stops speaking we wait for
	// transcript text before closing or discarding the turn.
	UserCloseDelay time.Duration
	// ToolBackfillWindow bounds how late a named tool-call start may arrive
	// and still back-fill an identifier-less in-progress turn.
	ToolBackfillWindow time.Duration
	// MergeWindow bounds how far apart two same-role turns may be created
	// and still merge into one in the normalized transcript.
	MergeWindow time.Duration

	// ShutdownTimeout caps how long in-flight sessions get to drain on exit.
	ShutdownTimeout time.Duration
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file loaded")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8080"
	}

	token := os.Getenv("SESSION_AUTH_TOKEN")
	if token == "" {
		log.Println("Warning: SESSION_AUTH_TOKEN not set - session endpoint is open")
	}

	cfg := Config{
		HTTPAddress:        addr,
		SessionAuthToken:   token,
		BotCloseDelay:      durationMs("BOT_CLOSE_DELAY_MS", 2500),
		UserCloseDelay:     durationMs("USER_CLOSE_DELAY_MS", 3000),
		ToolBackfillWindow: durationMs("TOOLCALL_BACKFILL_WINDOW_MS", 2000),
		MergeWindow:        durationMs("TURN_MERGE_WINDOW_MS", 5000),
		ShutdownTimeout:    durationMs("SHUTDOWN_TIMEOUT_MS", 10000),
	}

	log.Printf("config: HTTP_ADDRESS=%s bot_close=%s user_close=%s", cfg.HTTPAddress, cfg.BotCloseDelay, cfg.UserCloseDelay)
	return cfg
}

// durationMs parses an integer millisecond env var, falling back to the
// default on absence or garbage.
func durationMs(key string, def int) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(def) * time.Millisecond
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("Warning: %s=%q is not a valid millisecond count, using %dms", key, v, def)
		return time.Duration(def) * time.Millisecond
	}
	return time.Duration(n) * time.Millisecond
}
