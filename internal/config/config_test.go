package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/pktwire/internal/protocol/session"
	"github.com/danmuck/pktwire/internal/testutil/testlog"
)

func TestTemplatesLoadAndValidate(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()

	nodePath := filepath.Join(dir, "node.toml")
	if err := WriteTemplate(nodePath, "node", false); err != nil {
		t.Fatalf("write node template: %v", err)
	}
	node, err := LoadNodeConfig(nodePath)
	if err != nil {
		t.Fatalf("load node: %v", err)
	}
	if node.Addr != ":7400" || len(node.Packets) != 3 {
		t.Fatalf("unexpected node config: %+v", node)
	}
	rt := node.Session.Runtime()
	if rt.ResponseTimeout != 5*time.Second || rt.WriteYield != 10*time.Millisecond || rt.HandlerMode != session.HandlerInline {
		t.Fatalf("unexpected runtime session: %+v", rt)
	}

	clientPath := filepath.Join(dir, "client.toml")
	if err := WriteTemplate(clientPath, "client", false); err != nil {
		t.Fatalf("write client template: %v", err)
	}
	client, err := LoadClientConfig(clientPath)
	if err != nil {
		t.Fatalf("load client: %v", err)
	}
	if client.Session.Runtime().MaxConnectAttempts != 5 {
		t.Fatalf("unexpected client config: %+v", client)
	}
}

func TestWriteTemplateRefusesOverwrite(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "node.toml")
	if err := WriteTemplate(path, "node", false); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteTemplate(path, "node", false); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	if err := WriteTemplate(path, "node", true); err != nil {
		t.Fatalf("forced write: %v", err)
	}
	if _, err := Template("mirage"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestLoadNodeConfigRejectsBadSession(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "node.toml")
	body := "name = \"n\"\n[session]\nhandler_mode = \"threaded\"\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadNodeConfig(path)
	if err == nil || !strings.Contains(err.Error(), "handler_mode") {
		t.Fatalf("expected handler_mode error, got %v", err)
	}
}

func TestLoadNodeConfigDefaults(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "node.toml")
	if err := os.WriteFile(path, []byte("admin_addr = \"\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadNodeConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Name != "pktnode" || cfg.Addr != ":7400" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}
