package session

import (
	"fmt"

	"github.com/danmuck/pktwire/internal/observability"
	"github.com/danmuck/pktwire/internal/packet"
	"github.com/danmuck/pktwire/internal/protocol/envelope"
)

func (c *Conn) dispatchFrame(payload []byte) {
	c.framesIn.Add(1)
	observability.RecordFrame()
	if c.IsClosed() {
		c.drop("closed")
		return
	}
	if c.cfg.HandlerMode == HandlerAsync {
		c.handlers.Add(1)
		go func() {
			defer c.handlers.Done()
			c.dispatch(payload)
		}()
		return
	}
	c.dispatch(payload)
}

// dispatch runs decode, lookup, instantiation and handlers for one frame,
// then settles the pending request named by the envelope, if any.
func (c *Conn) dispatch(payload []byte) {
	env, err := c.codec.Decode(payload)
	if err != nil {
		c.drop("malformed")
		c.exception(err)
		return
	}
	if env == nil {
		c.drop("empty")
		return
	}

	desc, ok := c.registry.Find(env.ID)
	if !ok {
		c.drop("unknown")
		c.logger.Debug().
			Str("packet_id", env.ID).
			Str("request_id", env.RequestID).
			Err(packet.ErrUnknown).
			Msg("session.dispatch drop")
		return
	}
	c.packetsIn.Add(1)

	p, err := c.process(desc, env)
	if err != nil {
		observability.RecordDispatch(env.ID, "error")
		if env.Correlated() {
			c.pending.Resolve(env.RequestID, nil, err)
		}
		c.exception(err)
		return
	}
	observability.RecordDispatch(env.ID, "ok")
	if env.Correlated() {
		c.pending.Resolve(env.RequestID, p, nil)
	}
}

func (c *Conn) process(desc packet.Descriptor, env *envelope.Envelope) (p packet.Packet, err error) {
	stage := ErrPacketConstruction
	defer func() {
		if r := recover(); r != nil {
			p = nil
			err = fmt.Errorf("%w: %q: panic: %v", stage, env.ID, r)
		}
	}()

	p, err = c.instantiate(desc, env)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrPacketConstruction, env.ID, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %q: factory returned nil", ErrPacketConstruction, env.ID)
	}

	stage = ErrHandler
	if desc.SelfHandling() {
		if err := desc.Handle(c.ctx, c, p); err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrHandler, env.ID, err)
		}
	}
	if c.hooks.OnPacket != nil {
		if err := c.hooks.OnPacket(c.ctx, c, p); err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrHandler, env.ID, err)
		}
	}
	return p, nil
}

func (c *Conn) instantiate(desc packet.Descriptor, env *envelope.Envelope) (packet.Packet, error) {
	if c.hooks.Instantiate != nil {
		return c.hooks.Instantiate(c, desc, env.RequestID, env.Data)
	}
	return desc.New(c, env.RequestID, env.Data)
}

func (c *Conn) drop(reason string) {
	c.dropped.Add(1)
	observability.RecordDrop(reason)
}
