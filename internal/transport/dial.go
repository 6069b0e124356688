package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/danmuck/pktwire/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

var ErrEmptyAddr = errors.New("transport: empty address")

// DialConfig controls connect timeout and retry backoff.
type DialConfig struct {
	Network     string
	Timeout     time.Duration
	MaxAttempts int
	Backoff     session.BackoffConfig
}

// DialConfigFrom derives dial settings from a session config.
func DialConfigFrom(cfg session.Config) DialConfig {
	cfg = cfg.WithDefaults()
	return DialConfig{
		Network:     "tcp",
		Timeout:     cfg.ConnectTimeout,
		MaxAttempts: cfg.MaxConnectAttempts,
		Backoff:     cfg.Backoff,
	}
}

// Listen opens a TCP listener that is closed when ctx ends.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, ErrEmptyAddr
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	return ln, nil
}

// Dial connects to addr, retrying with backoff up to MaxAttempts.
func Dial(ctx context.Context, addr string, cfg DialConfig) (*NetStream, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, ErrEmptyAddr
	}
	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		dialer := net.Dialer{Timeout: cfg.Timeout}
		conn, err := dialer.DialContext(ctx, cfg.Network, addr)
		if err == nil {
			return NewNetStream(conn), nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == cfg.MaxAttempts {
			break
		}
		delay := cfg.retryDelay(attempt)
		log.Debug().
			Str("addr", addr).
			Int("attempt", attempt).
			Int("max_attempts", cfg.MaxAttempts).
			Dur("retry_in", delay).
			Err(err).
			Msg("transport.dial retry")
		if err := waitBackoff(ctx, delay); err != nil {
			return nil, err
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, fmt.Errorf("transport: dial %s after %d attempts: %w", addr, cfg.MaxAttempts, lastErr)
}

func waitBackoff(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
