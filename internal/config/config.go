package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/pktwire/internal/protocol/session"
	"github.com/pelletier/go-toml/v2"
)

// SessionConfig is the TOML form of per-connection protocol settings.
// Zero values fall back to session defaults.
type SessionConfig struct {
	Codec             string `toml:"codec"`
	HandlerMode       string `toml:"handler_mode"`
	MaxBufferBytes    int    `toml:"max_buffer_bytes"`
	ReadBufferSize    int    `toml:"read_buffer_size"`
	QueueCapacity     int    `toml:"queue_capacity"`
	ResponseTimeoutMS int    `toml:"response_timeout_ms"`
	WriteTimeoutMS    int    `toml:"write_timeout_ms"`
	WriteYieldMS      int    `toml:"write_yield_ms"`
	ConnectTimeoutMS  int    `toml:"connect_timeout_ms"`
	ConnectAttempts   int    `toml:"connect_attempts"`
}

type NodeConfig struct {
	Name        string        `toml:"name"`
	Addr        string        `toml:"addr"`
	AdminAddr   string        `toml:"admin_addr"`
	CorsOrigins []string      `toml:"cors_origins"`
	Packets     []string      `toml:"packets"`
	Session     SessionConfig `toml:"session"`
}

type ClientConfig struct {
	Addr    string        `toml:"addr"`
	Session SessionConfig `toml:"session"`
}

func LoadNodeConfig(path string) (NodeConfig, error) {
	var cfg NodeConfig
	if err := loadToml(path, &cfg); err != nil {
		return NodeConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "pktnode"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":7400"
	}
	if err := ValidateNodeConfig(cfg); err != nil {
		return NodeConfig{}, err
	}
	return cfg, nil
}

func LoadClientConfig(path string) (ClientConfig, error) {
	var cfg ClientConfig
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:7400"
	}
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateNodeConfig(cfg NodeConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("node config missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("node config missing addr")
	}
	for i, id := range cfg.Packets {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("packets[%d] is empty", i)
		}
	}
	if err := cfg.Session.Runtime().Validate(); err != nil {
		return fmt.Errorf("node config session: %w", err)
	}
	return nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("client config missing addr")
	}
	if err := cfg.Session.Runtime().Validate(); err != nil {
		return fmt.Errorf("client config session: %w", err)
	}
	return nil
}

// Runtime converts the file form to a session.Config with defaults applied.
func (c SessionConfig) Runtime() session.Config {
	out := session.Config{
		Codec:              strings.TrimSpace(c.Codec),
		HandlerMode:        session.HandlerMode(strings.ToLower(strings.TrimSpace(c.HandlerMode))),
		MaxBufferBytes:     c.MaxBufferBytes,
		ReadBufferSize:     c.ReadBufferSize,
		QueueCapacity:      c.QueueCapacity,
		ResponseTimeout:    millis(c.ResponseTimeoutMS),
		WriteTimeout:       millis(c.WriteTimeoutMS),
		WriteYield:         millis(c.WriteYieldMS),
		ConnectTimeout:     millis(c.ConnectTimeoutMS),
		MaxConnectAttempts: c.ConnectAttempts,
	}
	return out.WithDefaults()
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
