// Package transport adapts byte streams (TCP, in-memory pipes) to the
// session.Stream contract.
package transport

import (
	"errors"
	"io"
	"net"
	"sync/atomic"
	"time"
)

// NetStream wraps a net.Conn with an observable closed flag. The flag is set
// by a local Close or once a read sees the peer hang up.
type NetStream struct {
	conn   net.Conn
	closed atomic.Bool
	eof    atomic.Bool
}

func NewNetStream(conn net.Conn) *NetStream {
	return &NetStream{conn: conn}
}

func (s *NetStream) Read(p []byte) (int, error) {
	n, err := s.conn.Read(p)
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		s.eof.Store(true)
	}
	return n, err
}

func (s *NetStream) Write(p []byte) (int, error) {
	return s.conn.Write(p)
}

// Close is idempotent; only the first call closes the underlying conn.
func (s *NetStream) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := s.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *NetStream) IsClosed() bool {
	return s.closed.Load() || s.eof.Load()
}

func (s *NetStream) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

func (s *NetStream) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

func (s *NetStream) SetWriteDeadline(t time.Time) error {
	return s.conn.SetWriteDeadline(t)
}

// Conn returns the wrapped connection.
func (s *NetStream) Conn() net.Conn {
	return s.conn
}

// Pipe returns two connected in-memory streams.
func Pipe() (*NetStream, *NetStream) {
	a, b := net.Pipe()
	return NewNetStream(a), NewNetStream(b)
}
