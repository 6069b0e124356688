package packet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrDuplicate         = errors.New("packet: id already registered")
	ErrInvalidDescriptor = errors.New("packet: invalid descriptor")
	ErrUnknown           = errors.New("packet: unknown packet id")
)

// Factory builds a packet for an inbound envelope, bound to s.
type Factory func(s Sender, requestID string, data []byte) (Packet, error)

// HandleFunc is a packet type's own handler, run before the connection owner sees it.
type HandleFunc func(ctx context.Context, s Sender, p Packet) error

// Descriptor describes one packet type.
type Descriptor struct {
	ID     string
	New    Factory
	Handle HandleFunc
}

func (d Descriptor) SelfHandling() bool {
	return d.Handle != nil
}

// Simple describes a packet type carried as a *Base.
func Simple(id string) Descriptor {
	return Descriptor{
		ID: id,
		New: func(s Sender, requestID string, data []byte) (Packet, error) {
			return Received(s, id, requestID, data), nil
		},
	}
}

// WithHandler returns d with a self-handling hook.
func (d Descriptor) WithHandler(h HandleFunc) Descriptor {
	d.Handle = h
	return d
}

// Registry maps packet ids to descriptors. It is safe to share between
// connections and to mutate while they dispatch.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Descriptor
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Descriptor)}
}

func (r *Registry) Register(d Descriptor) error {
	id := strings.TrimSpace(d.ID)
	if id == "" || id != d.ID {
		return fmt.Errorf("%w: invalid id %q", ErrInvalidDescriptor, d.ID)
	}
	if d.New == nil {
		return fmt.Errorf("%w: %q has no factory", ErrInvalidDescriptor, d.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, id)
	}
	r.items[id] = d
	return nil
}

// Unregister removes id. Unknown ids are ignored.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
}

// Remove unregisters by descriptor.
func (r *Registry) Remove(d Descriptor) {
	r.Unregister(d.ID)
}

func (r *Registry) Find(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.items[id]
	return d, ok
}

// IDs returns registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.items))
	for id := range r.items {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
