package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PONG_POSTGRES_DSN", "postgres://localhost/pong_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address != DefaultAddr {
		t.Fatalf("unexpected address: %q", cfg.Address)
	}
	if cfg.PingInterval != DefaultPingInterval {
		t.Fatalf("unexpected ping interval: %v", cfg.PingInterval)
	}
	if cfg.MaxClients != DefaultMaxClients {
		t.Fatalf("unexpected max clients: %d", cfg.MaxClients)
	}
	if cfg.ReplayRetention != DefaultReplayRetention {
		t.Fatalf("unexpected replay retention: %v", cfg.ReplayRetention)
	}
	if cfg.RedisAddr != "" || cfg.NATSURL != "" || cfg.ReplayDir != "" {
		t.Fatalf("optional integrations should default to disabled: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PONG_POSTGRES_DSN", "postgres://localhost/pong_test")
	t.Setenv("PONG_ADDR", ":9999")
	t.Setenv("PONG_PING_INTERVAL", "5s")
	t.Setenv("PONG_MAX_CLIENTS", "12")
	t.Setenv("PONG_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PONG_REPLAY_DIR", "/var/lib/pong/replays")
	t.Setenv("PONG_REPLAY_RETENTION", "48h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address != ":9999" {
		t.Fatalf("unexpected address: %q", cfg.Address)
	}
	if cfg.PingInterval != 5*time.Second {
		t.Fatalf("unexpected ping interval: %v", cfg.PingInterval)
	}
	if cfg.MaxClients != 12 {
		t.Fatalf("unexpected max clients: %d", cfg.MaxClients)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %+v", cfg.AllowedOrigins)
	}
	if cfg.ReplayRetention != 48*time.Hour {
		t.Fatalf("unexpected replay retention: %v", cfg.ReplayRetention)
	}
}

func TestLoadCollectsProblems(t *testing.T) {
	t.Setenv("PONG_POSTGRES_DSN", "")
	t.Setenv("PONG_PING_INTERVAL", "soon")
	t.Setenv("PONG_MAX_CLIENTS", "-4")

	_, err := Load()
	if err == nil {
		t.Fatal("expected an error")
	}
	msg := err.Error()
	for _, fragment := range []string{"PONG_PING_INTERVAL", "PONG_MAX_CLIENTS", "PONG_POSTGRES_DSN"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("error %q missing %q", msg, fragment)
		}
	}
}
