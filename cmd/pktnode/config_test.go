package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/pktwire/internal/protocol/session"
	"github.com/danmuck/pktwire/internal/testutil/testlog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadServiceConfigDefaultsAndOverrides(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
name = "node.alpha"
addr = "127.0.0.1:7500"
admin_addr = "127.0.0.1:7501"
packets = ["ping", "pong"]

[session]
handler_mode = "async"
response_timeout_ms = 1500
write_yield_ms = 0
`)

	cfg, err := loadServiceConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Name != "node.alpha" || cfg.ListenAddr != "127.0.0.1:7500" || cfg.AdminAddr != "127.0.0.1:7501" {
		t.Fatalf("unexpected identity: %+v", cfg)
	}
	if len(cfg.Packets) != 2 {
		t.Fatalf("unexpected packets: %v", cfg.Packets)
	}
	if cfg.Session.HandlerMode != session.HandlerAsync {
		t.Fatalf("unexpected handler mode: %q", cfg.Session.HandlerMode)
	}
	if cfg.Session.ResponseTimeout != 1500*time.Millisecond {
		t.Fatalf("unexpected response timeout: %v", cfg.Session.ResponseTimeout)
	}
	if cfg.Session.WriteYield >= 0 {
		t.Fatalf("write_yield_ms=0 should disable the yield, got %v", cfg.Session.WriteYield)
	}
	if cfg.Session.Codec != "json" || cfg.Session.MaxBufferBytes != 4_000_000 {
		t.Fatalf("defaults not kept: %+v", cfg.Session)
	}
}

func TestLoadServiceConfigKeepsDefaultsWhenUnset(t *testing.T) {
	testlog.Start(t)
	cfg, err := loadServiceConfig(writeConfig(t, "admin_addr = \"127.0.0.1:7401\"\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Name != "pktnode" || cfg.ListenAddr != ":7400" || len(cfg.Packets) != 3 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadServiceConfigRejectsInvalidSession(t *testing.T) {
	testlog.Start(t)
	_, err := loadServiceConfig(writeConfig(t, "[session]\ncodec = \"xml\"\n"))
	if !errors.Is(err, session.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if _, err := loadServiceConfig(writeConfig(t, "addr = \"\"\n")); err == nil {
		t.Fatalf("expected empty addr error")
	}
}
