package packet

import (
	"context"
	"errors"
	"time"

	"github.com/danmuck/pktwire/internal/future"
)

var ErrUnbound = errors.New("packet: not bound to a connection")

// Packet is a typed application object built from an envelope.
type Packet interface {
	PacketID() string
	RequestID() string
	Data() []byte
}

// Sender is the connection side a packet can be sent through.
type Sender interface {
	Send(p Packet) *future.Future[int]
	SendWithResponse(p Packet, timeout time.Duration) *future.Future[Packet]
	// Reply sends resp carrying req's request id.
	Reply(req Packet, resp Packet) *future.Future[int]
}

// Base is the default Packet implementation.
type Base struct {
	id        string
	requestID string
	data      []byte
	sender    Sender
}

func New(id string, data []byte) *Base {
	return &Base{id: id, data: data}
}

// Received builds a packet as dispatch does for an inbound envelope.
func Received(s Sender, id, requestID string, data []byte) *Base {
	return &Base{id: id, requestID: requestID, data: data, sender: s}
}

// Bind attaches the packet to a connection for Send / SendWaitResponse.
func (b *Base) Bind(s Sender) *Base {
	b.sender = s
	return b
}

func (b *Base) PacketID() string  { return b.id }
func (b *Base) RequestID() string { return b.requestID }
func (b *Base) Data() []byte      { return b.data }
func (b *Base) Sender() Sender    { return b.sender }

// Send writes the packet without waiting for a reply.
func (b *Base) Send(ctx context.Context) (int, error) {
	if b.sender == nil {
		return 0, ErrUnbound
	}
	return b.sender.Send(b).Wait(ctx)
}

// SendWaitResponse writes the packet and blocks for the correlated reply.
// A non-positive timeout waits until the reply, ctx or connection ends.
func (b *Base) SendWaitResponse(ctx context.Context, timeout time.Duration) (Packet, error) {
	if b.sender == nil {
		return nil, ErrUnbound
	}
	return b.sender.SendWithResponse(b, timeout).Wait(ctx)
}
