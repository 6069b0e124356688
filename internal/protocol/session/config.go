package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/pktwire/internal/protocol/envelope"
	"github.com/danmuck/pktwire/internal/protocol/frame"
)

// HandlerMode selects whether the read loop waits for packet handling.
type HandlerMode string

const (
	// HandlerInline dispatches each frame to completion before scanning the next.
	HandlerInline HandlerMode = "inline"
	// HandlerAsync dispatches each frame on its own goroutine.
	HandlerAsync HandlerMode = "async"
)

// BackoffConfig shapes the delay between connect attempts made by the dialer.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines framing limits and send/receive behavior of one connection.
type Config struct {
	MaxBufferBytes  int
	ReadBufferSize  int
	ResponseTimeout time.Duration
	WriteTimeout    time.Duration
	Codec           string
	HandlerMode     HandlerMode

	// WriteYield pauses the writer between frames; negative disables it.
	WriteYield time.Duration

	// QueueCapacity bounds queued frames; 0 is unbounded.
	QueueCapacity int

	ConnectTimeout     time.Duration
	MaxConnectAttempts int
	Backoff            BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		MaxBufferBytes:     frame.DefaultLimits().MaxBufferBytes,
		ReadBufferSize:     32 * 1024,
		ResponseTimeout:    5 * time.Second,
		WriteTimeout:       15 * time.Second,
		WriteYield:         10 * time.Millisecond,
		QueueCapacity:      0,
		Codec:              "json",
		HandlerMode:        HandlerInline,
		ConnectTimeout:     5 * time.Second,
		MaxConnectAttempts: 5,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// WithDefaults fills zero values from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.MaxBufferBytes <= 0 {
		c.MaxBufferBytes = d.MaxBufferBytes
	}
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = d.ResponseTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.WriteYield == 0 {
		c.WriteYield = d.WriteYield
	}
	if strings.TrimSpace(c.Codec) == "" {
		c.Codec = d.Codec
	}
	if strings.TrimSpace(string(c.HandlerMode)) == "" {
		c.HandlerMode = d.HandlerMode
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.MaxConnectAttempts <= 0 {
		c.MaxConnectAttempts = d.MaxConnectAttempts
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = d.Backoff
	}
	return c
}

func (c Config) Validate() error {
	if c.MaxBufferBytes <= 2*frame.MarkerLen {
		return fmt.Errorf("%w: max_buffer_bytes must exceed %d", ErrInvalidConfig, 2*frame.MarkerLen)
	}
	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("%w: read_buffer_size must be positive", ErrInvalidConfig)
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("%w: queue_capacity must not be negative", ErrInvalidConfig)
	}
	switch c.HandlerMode {
	case HandlerInline, HandlerAsync:
	default:
		return fmt.Errorf("%w: handler_mode %q", ErrInvalidConfig, c.HandlerMode)
	}
	if _, err := envelope.Lookup(c.Codec); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) Limits() frame.Limits {
	return frame.Limits{MaxBufferBytes: c.MaxBufferBytes}
}
