package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        int
	AuthToken   string
	DatabaseURL string
	RedisAddr   string
	ProjectName string

	BackendURL   string
	BackendWSURL string
	BackendToken string

	AutosaveInterval time.Duration
	PingInterval     time.Duration
	ReconnectBackoff time.Duration
	ActivityTimeout  time.Duration
}

func Load() *Config {
	backendURL := env("BACKEND_URL", "http://localhost:9000")
	return &Config{
		Port:        envInt("PORT", 8090),
		AuthToken:   env("AUTH_TOKEN", ""),
		DatabaseURL: env("DATABASE_URL", ""),
		RedisAddr:   env("REDIS_ADDR", ""),
		ProjectName: env("PROJECT_NAME", "untitled"),

		BackendURL:   backendURL,
		BackendWSURL: env("BACKEND_WS_URL", deriveWSURL(backendURL)),
		BackendToken: env("BACKEND_TOKEN", ""),

		AutosaveInterval: envDur("AUTOSAVE_INTERVAL", 30*time.Second),
		PingInterval:     envDur("WS_PING_INTERVAL", 15*time.Second),
		ReconnectBackoff: envDur("WS_RECONNECT_BACKOFF", 3*time.Second),
		ActivityTimeout:  envDur("ACTIVITY_TIMEOUT", 3*time.Minute),
	}
}

func (c *Config) AutosaveEnabled() bool {
	return c.DatabaseURL != ""
}

func (c *Config) SyncQueueEnabled() bool {
	return c.RedisAddr != ""
}

// deriveWSURL turns the backend base URL into the matching /ws endpoint.
func deriveWSURL(base string) string {
	ws := strings.Replace(base, "https://", "wss://", 1)
	ws = strings.Replace(ws, "http://", "ws://", 1)
	return strings.TrimRight(ws, "/") + "/ws"
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
