package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/danmuck/pktwire/internal/packet"
	"github.com/danmuck/pktwire/internal/protocol/session"
	"github.com/danmuck/pktwire/internal/testutil/testlog"
	"github.com/danmuck/pktwire/internal/transport"
)

// serveOnce runs a one-connection node whose ping handler answers with reply(data).
func serveOnce(t *testing.T, reply func(data []byte) []byte) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	reg := packet.NewRegistry()
	err = reg.Register(packet.Simple("ping").WithHandler(func(ctx context.Context, s packet.Sender, p packet.Packet) error {
		_, err := s.Reply(p, packet.New("pong", reply(p.Data()))).Wait(ctx)
		return err
	}))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	conns := make(chan *session.Conn, 1)
	t.Cleanup(func() {
		select {
		case c := <-conns:
			_ = c.Close()
		default:
		}
	})
	go func() {
		raw, err := ln.Accept()
		if err != nil {
			return
		}
		c, err := session.NewConn(transport.NewNetStream(raw), reg, session.Config{WriteYield: -1}, session.Hooks{})
		if err != nil {
			return
		}
		conns <- c
	}()
	return ln.Addr().String()
}

func TestPing(t *testing.T) {
	testlog.Start(t)
	addr := serveOnce(t, func(b []byte) []byte { return b })
	c, err := Dial(context.Background(), Config{Address: addr, Session: session.Config{WriteYield: -1}})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	rtt, err := c.Ping(context.Background(), []byte("abc"), time.Second)
	if err != nil || rtt <= 0 {
		t.Fatalf("ping rtt=%v err=%v", rtt, err)
	}
}

func TestPingRejectsMismatchedData(t *testing.T) {
	testlog.Start(t)
	addr := serveOnce(t, func([]byte) []byte { return []byte("other") })
	c, err := Dial(context.Background(), Config{Address: addr})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	if _, err := c.Ping(context.Background(), []byte("abc"), time.Second); !errors.Is(err, ErrUnexpectedReply) {
		t.Fatalf("expected ErrUnexpectedReply, got %v", err)
	}
}

func TestDialRequiresAddress(t *testing.T) {
	testlog.Start(t)
	if _, err := Dial(context.Background(), Config{}); !errors.Is(err, ErrAddressRequired) {
		t.Fatalf("expected ErrAddressRequired, got %v", err)
	}
}
