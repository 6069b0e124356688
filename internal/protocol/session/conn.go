package session

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/pktwire/internal/future"
	"github.com/danmuck/pktwire/internal/observability"
	"github.com/danmuck/pktwire/internal/packet"
	"github.com/danmuck/pktwire/internal/protocol/envelope"
	"github.com/danmuck/pktwire/internal/protocol/frame"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Stream is the bidirectional byte transport a Conn runs on.
type Stream interface {
	io.ReadWriteCloser
	IsClosed() bool
	RemoteAddr() net.Addr
}

// State is the connection lifecycle position.
type State int32

const (
	StateRunning State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Hooks are the connection owner's callbacks. Nil hooks are skipped.
type Hooks struct {
	// OnPacket runs for every instantiated packet after its own handler.
	OnPacket func(ctx context.Context, c *Conn, p packet.Packet) error

	// OnException receives decode, construction, handler and transport errors.
	OnException func(c *Conn, err error)

	// OnClosed fires exactly once after teardown.
	OnClosed func(c *Conn)

	// Instantiate overrides Descriptor.New.
	Instantiate func(c *Conn, d packet.Descriptor, requestID string, data []byte) (packet.Packet, error)
}

// Stats is a point-in-time view of one connection.
type Stats struct {
	State      State  `json:"state"`
	Remote     string `json:"remote"`
	FramesIn   uint64 `json:"frames_in"`
	PacketsIn  uint64 `json:"packets_in"`
	Dropped    uint64 `json:"dropped"`
	Exceptions uint64 `json:"exceptions"`
	Pending    int    `json:"pending"`
	Queued     int    `json:"queued"`
}

// Conn runs the protocol over one Stream: one read loop feeding the frame
// scanner and dispatch, and one writer draining the send queue.
type Conn struct {
	stream   Stream
	registry *packet.Registry
	codec    envelope.Codec
	cfg      Config
	hooks    Hooks
	logger   zerolog.Logger

	scanner *frame.Scanner
	queue   *SendQueue
	pending *Correlator

	ctx    context.Context
	cancel context.CancelFunc

	state     atomic.Int32
	closeOnce sync.Once
	handlers  sync.WaitGroup
	done      chan struct{}

	framesIn   atomic.Uint64
	packetsIn  atomic.Uint64
	dropped    atomic.Uint64
	exceptions atomic.Uint64
}

var _ packet.Sender = (*Conn)(nil)

// NewConn starts the read loop and writer for stream. A nil registry gets a
// private empty one.
func NewConn(stream Stream, registry *packet.Registry, cfg Config, hooks Hooks) (*Conn, error) {
	if stream == nil {
		return nil, ErrNilStream
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	codec, err := envelope.Lookup(cfg.Codec)
	if err != nil {
		return nil, err
	}
	if registry == nil {
		registry = packet.NewRegistry()
	}

	remote := "unknown"
	if addr := stream.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		stream:   stream,
		registry: registry,
		codec:    codec,
		cfg:      cfg,
		hooks:    hooks,
		logger:   log.With().Str("component", "session").Str("remote", remote).Logger(),
		scanner:  frame.NewScanner(cfg.Limits()),
		pending:  NewCorrelator(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	c.queue = NewSendQueue(stream, SendQueueConfig{
		Capacity:     cfg.QueueCapacity,
		WriteTimeout: cfg.WriteTimeout,
		Yield:        cfg.WriteYield,
		OnError:      c.onWriteError,
	})

	observability.ConnectionOpened()
	c.logger.Debug().Str("codec", codec.Name()).Str("handler_mode", string(cfg.HandlerMode)).Msg("session.conn open")
	go c.readLoop()
	return c, nil
}

// Send queues p without a request id.
func (c *Conn) Send(p packet.Packet) *future.Future[int] {
	return c.send(p.PacketID(), "", p.Data(), nil)
}

// SendWithResponse queues p with a fresh request id and returns a future for
// the correlated reply. A non-positive timeout waits until reply or teardown.
func (c *Conn) SendWithResponse(p packet.Packet, timeout time.Duration) *future.Future[packet.Packet] {
	_, fut := c.sendWithResponse(p, timeout)
	return fut
}

func (c *Conn) sendWithResponse(p packet.Packet, timeout time.Duration) (string, *future.Future[packet.Packet]) {
	if c.IsClosed() {
		return "", future.Failed[packet.Packet](ErrConnectionClosed)
	}
	id, fut, err := c.pending.Register(timeout)
	if err != nil {
		return "", future.Failed[packet.Packet](err)
	}
	c.send(p.PacketID(), id, p.Data(), func(_ int, err error) {
		if err != nil {
			c.pending.Resolve(id, nil, err)
		}
	})
	return id, fut
}

// Request sends p and blocks for the reply. Cancelling ctx removes the
// pending entry.
func (c *Conn) Request(ctx context.Context, p packet.Packet, timeout time.Duration) (packet.Packet, error) {
	id, fut := c.sendWithResponse(p, timeout)
	resp, err := fut.Wait(ctx)
	if err != nil && ctx.Err() != nil && id != "" {
		c.pending.Resolve(id, nil, ctx.Err())
	}
	return resp, err
}

// Reply sends resp carrying req's request id. An uncorrelated req makes this
// a plain Send.
func (c *Conn) Reply(req packet.Packet, resp packet.Packet) *future.Future[int] {
	return c.send(resp.PacketID(), req.RequestID(), resp.Data(), nil)
}

func (c *Conn) send(id, requestID string, data []byte, after func(int, error)) *future.Future[int] {
	fail := func(err error) *future.Future[int] {
		if after != nil {
			after(0, err)
		}
		return future.Failed[int](err)
	}
	if c.IsClosed() || c.stream.IsClosed() {
		return fail(ErrConnectionClosed)
	}
	payload, err := c.codec.Encode(envelope.Envelope{ID: id, RequestID: requestID, Data: data})
	if err != nil {
		return fail(err)
	}
	buf, err := frame.EncodeLimited(payload, c.cfg.Limits())
	if err != nil {
		return fail(err)
	}
	return c.queue.push(buf, after)
}

func (c *Conn) RegisterPacket(d packet.Descriptor) error {
	return c.registry.Register(d)
}

func (c *Conn) UnregisterPacket(id string) {
	c.registry.Unregister(id)
}

func (c *Conn) FindPacket(id string) (packet.Descriptor, bool) {
	return c.registry.Find(id)
}

// Close tears the connection down. It is idempotent; wait on Done for the
// read loop to finish.
func (c *Conn) Close() error {
	return c.teardown(ErrConnectionClosed)
}

func (c *Conn) teardown(cause error) error {
	var err error
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosing))
		c.cancel()
		failed := c.pending.FailAll(ErrConnectionClosed)
		drained := c.queue.Close(ErrConnectionClosed)
		err = c.stream.Close()
		ev := c.logger.Debug()
		if cause != nil && !errors.Is(cause, ErrConnectionClosed) && !errors.Is(cause, io.EOF) {
			ev = c.logger.Warn().Err(cause)
		}
		ev.Int("failed_requests", failed).Int("dropped_sends", drained).Msg("session.conn teardown")
	})
	return err
}

func (c *Conn) IsClosed() bool {
	return c.State() != StateRunning
}

func (c *Conn) State() State {
	return State(c.state.Load())
}

// Done is closed once the read loop has exited and OnClosed has run.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.stream.RemoteAddr()
}

// Pending returns the number of requests awaiting replies.
func (c *Conn) Pending() int {
	return c.pending.Len()
}

func (c *Conn) Config() Config {
	return c.cfg
}

func (c *Conn) Stats() Stats {
	remote := ""
	if addr := c.stream.RemoteAddr(); addr != nil {
		remote = addr.String()
	}
	return Stats{
		State:      c.State(),
		Remote:     remote,
		FramesIn:   c.framesIn.Load(),
		PacketsIn:  c.packetsIn.Load(),
		Dropped:    c.dropped.Load(),
		Exceptions: c.exceptions.Load(),
		Pending:    c.pending.Len(),
		Queued:     c.queue.Len(),
	}
}

func (c *Conn) readLoop() {
	defer c.finish()
	buf := make([]byte, c.cfg.ReadBufferSize)
	for {
		n, err := c.stream.Read(buf)
		if n > 0 {
			observability.RecordBytes("in", n)
			frames, ferr := c.scanner.Feed(buf[:n])
			for _, payload := range frames {
				c.dispatchFrame(payload)
			}
			if ferr != nil {
				c.exception(ferr)
				_ = c.teardown(ferr)
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !c.IsClosed() {
				c.exception(err)
			}
			_ = c.teardown(err)
			return
		}
	}
}

func (c *Conn) finish() {
	c.handlers.Wait()
	<-c.queue.Done()
	c.state.Store(int32(StateClosed))
	observability.ConnectionClosed()
	c.logger.Debug().Msg("session.conn closed")
	if c.hooks.OnClosed != nil {
		c.hooks.OnClosed(c)
	}
	close(c.done)
}

func (c *Conn) onWriteError(err error) {
	c.exception(err)
	_ = c.teardown(err)
}

func (c *Conn) exception(err error) {
	c.exceptions.Add(1)
	c.logger.Debug().Err(err).Msg("session.conn exception")
	if c.hooks.OnException != nil {
		c.hooks.OnException(c, err)
	}
}
