package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/pktwire/internal/node"
	"github.com/danmuck/pktwire/internal/protocol/session"
)

// pktnode config.toml key mapping to node runtime settings.
type fileConfig struct {
	Name        string   `toml:"name"`
	Addr        string   `toml:"addr"`
	AdminAddr   string   `toml:"admin_addr"`
	CorsOrigins []string `toml:"cors_origins"`
	Packets     []string `toml:"packets"`
	Session     struct {
		Codec             string `toml:"codec"`
		HandlerMode       string `toml:"handler_mode"`
		MaxBufferBytes    int    `toml:"max_buffer_bytes"`
		ReadBufferSize    int    `toml:"read_buffer_size"`
		QueueCapacity     int    `toml:"queue_capacity"`
		ResponseTimeoutMS int64  `toml:"response_timeout_ms"`
		WriteTimeoutMS    int64  `toml:"write_timeout_ms"`
		WriteYieldMS      int64  `toml:"write_yield_ms"`
	} `toml:"session"`
}

// pktnode loader for TOML config with default overlay.
func loadServiceConfig(path string) (node.ServiceConfig, error) {
	cfg := node.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return node.ServiceConfig{}, fmt.Errorf("load node config: %w", err)
	}

	if meta.IsDefined("name") {
		if name := strings.TrimSpace(raw.Name); name != "" {
			cfg.Name = name
		}
	}
	if meta.IsDefined("addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("packets") {
		cfg.Packets = raw.Packets
	}

	s := &cfg.Session
	if meta.IsDefined("session", "codec") {
		s.Codec = strings.TrimSpace(raw.Session.Codec)
	}
	if meta.IsDefined("session", "handler_mode") {
		s.HandlerMode = session.HandlerMode(strings.ToLower(strings.TrimSpace(raw.Session.HandlerMode)))
	}
	if meta.IsDefined("session", "max_buffer_bytes") {
		s.MaxBufferBytes = raw.Session.MaxBufferBytes
	}
	if meta.IsDefined("session", "read_buffer_size") {
		s.ReadBufferSize = raw.Session.ReadBufferSize
	}
	if meta.IsDefined("session", "queue_capacity") {
		s.QueueCapacity = raw.Session.QueueCapacity
	}
	if meta.IsDefined("session", "response_timeout_ms") {
		s.ResponseTimeout = time.Duration(raw.Session.ResponseTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("session", "write_timeout_ms") {
		s.WriteTimeout = time.Duration(raw.Session.WriteTimeoutMS) * time.Millisecond
	}
	if meta.IsDefined("session", "write_yield_ms") {
		s.WriteYield = time.Duration(raw.Session.WriteYieldMS) * time.Millisecond
		if raw.Session.WriteYieldMS == 0 {
			s.WriteYield = -1
		}
	}

	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return node.ServiceConfig{}, fmt.Errorf("load node config: addr must not be empty")
	}
	cfg.Session = cfg.Session.WithDefaults()
	if err := cfg.Session.Validate(); err != nil {
		return node.ServiceConfig{}, fmt.Errorf("load node config: %w", err)
	}
	return cfg, nil
}
