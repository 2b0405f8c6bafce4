package config

import (
	"testing"
	"time"
)

func TestDeriveWSURL(t *testing.T) {
	tests := []struct {
		base, want string
	}{
		{"http://localhost:9000", "ws://localhost:9000/ws"},
		{"https://pipeline.example.com/", "wss://pipeline.example.com/ws"},
	}
	for _, tt := range tests {
		if got := deriveWSURL(tt.base); got != tt.want {
			t.Errorf("deriveWSURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != 8090 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.AutosaveEnabled() {
		t.Error("autosave must be off without DATABASE_URL")
	}
	if cfg.SyncQueueEnabled() {
		t.Error("sync queue must be off without REDIS_ADDR")
	}
	if cfg.BackendWSURL != "ws://localhost:9000/ws" {
		t.Errorf("ws url = %q", cfg.BackendWSURL)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9911")
	t.Setenv("BACKEND_URL", "https://pipeline.internal")
	t.Setenv("AUTOSAVE_INTERVAL", "90s")
	t.Setenv("ACTIVITY_TIMEOUT", "junk")

	cfg := Load()
	if cfg.Port != 9911 {
		t.Errorf("port = %d", cfg.Port)
	}
	if cfg.BackendWSURL != "wss://pipeline.internal/ws" {
		t.Errorf("ws url = %q", cfg.BackendWSURL)
	}
	if cfg.AutosaveInterval != 90*time.Second {
		t.Errorf("autosave interval = %s", cfg.AutosaveInterval)
	}
	if cfg.ActivityTimeout != 3*time.Minute {
		t.Errorf("unparseable duration must fall back, got %s", cfg.ActivityTimeout)
	}
}
