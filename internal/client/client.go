// Package client dials a node and issues requests over one session.Conn.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/pktwire/internal/packet"
	"github.com/danmuck/pktwire/internal/protocol/session"
	"github.com/danmuck/pktwire/internal/transport"
	"github.com/rs/zerolog/log"
)

var (
	ErrAddressRequired = errors.New("client: node address required")
	ErrUnexpectedReply = errors.New("client: unexpected reply")
)

type Config struct {
	Address string
	Session session.Config

	// Packets are extra reply ids to accept besides pong and echo.
	Packets []string
}

func DefaultConfig() Config {
	return Config{
		Session: session.DefaultConfig(),
	}
}

type Client struct {
	cfg  Config
	conn *session.Conn
}

// Dial connects to the node with backoff retries and starts the session.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, ErrAddressRequired
	}
	cfg.Session = cfg.Session.WithDefaults()

	reg := packet.NewRegistry()
	for _, id := range append([]string{"pong", "echo"}, cfg.Packets...) {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := reg.Find(id); ok {
			continue
		}
		if err := reg.Register(packet.Simple(id)); err != nil {
			return nil, err
		}
	}

	stream, err := transport.Dial(ctx, cfg.Address, transport.DialConfigFrom(cfg.Session))
	if err != nil {
		return nil, err
	}
	conn, err := session.NewConn(stream, reg, cfg.Session, session.Hooks{
		OnException: func(_ *session.Conn, err error) {
			log.Warn().Str("addr", cfg.Address).Err(err).Msg("client.conn exception")
		},
	})
	if err != nil {
		_ = stream.Close()
		return nil, err
	}
	log.Debug().Str("addr", cfg.Address).Msg("client.Dial connected")
	return &Client{cfg: cfg, conn: conn}, nil
}

func (c *Client) Conn() *session.Conn {
	return c.conn
}

// Close tears down the session and waits for its read loop.
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.conn.Done()
	return err
}

func (c *Client) timeout(t time.Duration) time.Duration {
	if t == 0 {
		return c.cfg.Session.ResponseTimeout
	}
	return t
}

// Ping sends data and waits for a pong carrying the same bytes. It returns
// the round-trip time.
func (c *Client) Ping(ctx context.Context, data []byte, timeout time.Duration) (time.Duration, error) {
	start := time.Now()
	resp, err := c.conn.Request(ctx, packet.New("ping", data), c.timeout(timeout))
	if err != nil {
		return 0, err
	}
	if resp.PacketID() != "pong" || !bytes.Equal(resp.Data(), data) {
		return 0, fmt.Errorf("%w: %s (%d bytes)", ErrUnexpectedReply, resp.PacketID(), len(resp.Data()))
	}
	return time.Since(start), nil
}

// Request sends one packet and returns the correlated reply. A zero timeout
// uses the session's response timeout; negative waits indefinitely.
func (c *Client) Request(ctx context.Context, id string, data []byte, timeout time.Duration) (packet.Packet, error) {
	return c.conn.Request(ctx, packet.New(id, data), c.timeout(timeout))
}

// Send writes one uncorrelated packet and waits until it is on the wire.
func (c *Client) Send(ctx context.Context, id string, data []byte) error {
	_, err := c.conn.Send(packet.New(id, data)).Wait(ctx)
	return err
}
