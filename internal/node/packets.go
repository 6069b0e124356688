package node

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/pktwire/internal/packet"
	"github.com/rs/zerolog/log"
)

const (
	PacketPing = "ping"
	PacketPong = "pong"
	PacketEcho = "echo"
)

var ErrUnknownBuiltin = errors.New("node: unknown builtin packet")

// DefaultPackets lists the packet ids a node registers when none are configured.
func DefaultPackets() []string {
	return []string{PacketPing, PacketPong, PacketEcho}
}

// Builtin returns the descriptor for a builtin packet id.
func Builtin(id string) (packet.Descriptor, error) {
	switch id {
	case PacketPing:
		return packet.Simple(PacketPing).WithHandler(handlePing), nil
	case PacketPong:
		return packet.Simple(PacketPong), nil
	case PacketEcho:
		return packet.Simple(PacketEcho).WithHandler(handleEcho), nil
	default:
		return packet.Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownBuiltin, id)
	}
}

// BuildRegistry resolves ids into a registry, skipping blanks and repeats.
func BuildRegistry(ids []string) (*packet.Registry, error) {
	reg := packet.NewRegistry()
	seen := make(map[string]struct{})
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		d, err := Builtin(id)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// ping replies pong with the same data.
func handlePing(ctx context.Context, s packet.Sender, p packet.Packet) error {
	_, err := s.Reply(p, packet.New(PacketPong, p.Data())).Wait(ctx)
	return err
}

// echo answers correlated requests with the same data; uncorrelated echoes
// are only logged so two nodes cannot loop.
func handleEcho(ctx context.Context, s packet.Sender, p packet.Packet) error {
	if p.RequestID() == "" {
		log.Debug().Str("packet_id", PacketEcho).Int("bytes", len(p.Data())).Msg("node.echo received")
		return nil
	}
	_, err := s.Reply(p, packet.New(PacketEcho, p.Data())).Wait(ctx)
	return err
}
