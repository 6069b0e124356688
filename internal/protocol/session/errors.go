package session

import "errors"

var (
	ErrTimeout            = errors.New("session: response timeout")
	ErrConnectionClosed   = errors.New("session: connection closed")
	ErrPacketConstruction = errors.New("session: packet construction failed")
	ErrHandler            = errors.New("session: packet handler failed")
	ErrQueueFull          = errors.New("session: send queue full")
	ErrInvalidConfig      = errors.New("session: invalid config")
	ErrNilStream          = errors.New("session: nil stream")
)
