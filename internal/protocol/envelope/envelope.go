// Package envelope owns the logical {id, request_id, data} triple carried in
// a frame payload and the pluggable byte codecs for it.
package envelope

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrMalformed    = errors.New("envelope: malformed payload")
	ErrMissingID    = errors.New("envelope: missing packet id")
	ErrUnknownCodec = errors.New("envelope: unknown codec")
)

// Envelope is one decoded frame payload. An empty RequestID means the
// envelope is not correlated with any request.
type Envelope struct {
	ID        string
	RequestID string
	Data      []byte
}

func (e Envelope) Correlated() bool {
	return e.RequestID != ""
}

// Codec turns envelopes into frame payloads and back.
//
// Decode returns (nil, nil) when the payload carries no usable envelope; such
// payloads are dropped silently. A non-nil error wraps ErrMalformed and is
// reported to the connection's exception hook.
type Codec interface {
	Name() string
	Encode(Envelope) ([]byte, error)
	Decode([]byte) (*Envelope, error)
}

func validateForEncode(e Envelope) error {
	if strings.TrimSpace(e.ID) == "" {
		return ErrMissingID
	}
	return nil
}

func malformed(codec string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformed, codec, err)
}

// Registry maps codec names to codecs.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Codec
}

// NewRegistry returns a registry preloaded with the built-in codecs.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Codec)}
	r.Register(JSON())
	r.Register(TLV())
	r.Register(CBOR())
	r.Register(Proto())
	return r
}

func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[strings.ToLower(c.Name())] = c
}

func (r *Registry) Lookup(name string) (Codec, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return c, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

var defaults = NewRegistry()

// Lookup resolves a built-in codec by name.
func Lookup(name string) (Codec, error) {
	return defaults.Lookup(name)
}
