package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	os.Setenv("HTTP_ADDRESS", "")
	os.Setenv("BOT_CLOSE_DELAY_MS", "")
	os.Setenv("USER_CLOSE_DELAY_MS", "")
	cfg := Load()
	if cfg.HTTPAddress == "" {
		t.Fatalf("expected default http address")
	}
	if cfg.BotCloseDelay != 2500*time.Millisecond {
		t.Fatalf("expected default bot close delay, got %v", cfg.BotCloseDelay)
	}
	if cfg.UserCloseDelay != 3000*time.Millisecond {
		t.Fatalf("expected default user close delay, got %v", cfg.UserCloseDelay)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("expected default shutdown timeout, got %v", cfg.ShutdownTimeout)
	}
}

func TestLoad_Overrides(t *testing.T) {
	os.Setenv("BOT_CLOSE_DELAY_MS", "1000")
	defer os.Unsetenv("BOT_CLOSE_DELAY_MS")
	cfg := Load()
	if cfg.BotCloseDelay != time.Second {
		t.Fatalf("expected 1s bot close delay, got %v", cfg.BotCloseDelay)
	}
}

func TestLoad_GarbageFallsBackToDefault(t *testing.T) {
	os.Setenv("USER_CLOSE_DELAY_MS", "soon")
	defer os.Unsetenv("USER_CLOSE_DELAY_MS")
	cfg := Load()
	if cfg.UserCloseDelay != 3000*time.Millisecond {
		t.Fatalf("expected fallback to default, got %v", cfg.UserCloseDelay)
	}
}
