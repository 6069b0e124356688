package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danmuck/pktwire/internal/future"
	"github.com/danmuck/pktwire/internal/observability"
	"github.com/danmuck/pktwire/internal/packet"
)

// RequestIDBytes is the random length of generated request ids before hex encoding.
const RequestIDBytes = 16

const maxIDAttempts = 32

var ErrRequestIDExhausted = errors.New("session: could not allocate unique request id")

type pendingRequest struct {
	id        string
	fut       *future.Future[packet.Packet]
	settle    future.Settle[packet.Packet]
	timer     *time.Timer
	createdAt time.Time
}

// Correlator tracks requests awaiting a correlated reply. Every entry leaves
// the table exactly once: by reply, timeout, cancellation or teardown.
type Correlator struct {
	mu     sync.Mutex
	items  map[string]*pendingRequest
	closed error
	newID  func() (string, error)
}

func NewCorrelator() *Correlator {
	return &Correlator{
		items: make(map[string]*pendingRequest),
		newID: randomRequestID,
	}
}

func randomRequestID() (string, error) {
	var b [RequestIDBytes]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// Register allocates a fresh request id and its future. A positive timeout
// arms a timer that fails the entry with ErrTimeout.
func (c *Correlator) Register(timeout time.Duration) (string, *future.Future[packet.Packet], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed != nil {
		return "", nil, c.closed
	}

	var id string
	for attempt := 0; ; attempt++ {
		if attempt == maxIDAttempts {
			return "", nil, ErrRequestIDExhausted
		}
		next, err := c.newID()
		if err != nil {
			return "", nil, fmt.Errorf("session: request id: %w", err)
		}
		if _, taken := c.items[next]; !taken {
			id = next
			break
		}
	}

	fut, settle := future.New[packet.Packet]()
	p := &pendingRequest{
		id:        id,
		fut:       fut,
		settle:    settle,
		createdAt: time.Now(),
	}
	if timeout > 0 {
		p.timer = time.AfterFunc(timeout, func() {
			c.Resolve(id, nil, ErrTimeout)
		})
	}
	c.items[id] = p
	observability.RequestStarted()
	return id, fut, nil
}

// Await returns the future for a pending id, or nil if none exists.
func (c *Correlator) Await(id string) *future.Future[packet.Packet] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.items[id]; ok {
		return p.fut
	}
	return nil
}

// Resolve settles and removes id. It reports false when no entry exists,
// which covers late replies after a timeout.
func (c *Correlator) Resolve(id string, p packet.Packet, err error) bool {
	req := c.take(id)
	if req == nil {
		return false
	}
	req.finish(p, err)
	return true
}

// FailAll settles every entry with err and refuses later registrations.
func (c *Correlator) FailAll(err error) int {
	c.mu.Lock()
	if c.closed == nil {
		c.closed = err
	}
	drained := make([]*pendingRequest, 0, len(c.items))
	for id, p := range c.items {
		drained = append(drained, p)
		delete(c.items, id)
	}
	c.mu.Unlock()

	for _, p := range drained {
		p.finish(nil, err)
	}
	return len(drained)
}

func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// IDs returns the ids currently awaiting replies.
func (c *Correlator) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.items))
	for id := range c.items {
		out = append(out, id)
	}
	return out
}

func (c *Correlator) take(id string) *pendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[id]
	if !ok {
		return nil
	}
	delete(c.items, id)
	return p
}

func (p *pendingRequest) finish(v packet.Packet, err error) {
	if p.timer != nil {
		p.timer.Stop()
	}
	p.settle(v, err)
	observability.RequestSettled(settleOutcome(err), time.Since(p.createdAt))
}

func settleOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrConnectionClosed):
		return "closed"
	default:
		return "error"
	}
}
