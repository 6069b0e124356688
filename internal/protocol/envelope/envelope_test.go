package envelope

import (
	"bytes"
	"errors"
	"testing"

	"github.com/danmuck/pktwire/internal/testutil/testlog"
)

func TestCodecsPreserveCorrelation(t *testing.T) {
	testlog.Start(t)
	in := Envelope{ID: "ping", RequestID: "r1", Data: []byte("hello")}
	for _, name := range []string{"json", "tlv", "cbor", "proto"} {
		c, err := Lookup(name)
		if err != nil {
			t.Fatalf("lookup %s: %v", name, err)
		}
		b, err := c.Encode(in)
		if err != nil {
			t.Fatalf("%s encode: %v", name, err)
		}
		out, err := c.Decode(b)
		if err != nil || out == nil {
			t.Fatalf("%s decode: env=%v err=%v", name, out, err)
		}
		if out.ID != "ping" || out.RequestID != "r1" || !bytes.Equal(out.Data, in.Data) {
			t.Fatalf("%s mismatch: %+v", name, out)
		}

		b, err = c.Encode(Envelope{ID: "notify"})
		if err != nil {
			t.Fatalf("%s encode uncorrelated: %v", name, err)
		}
		out, err = c.Decode(b)
		if err != nil || out == nil || out.Correlated() {
			t.Fatalf("%s uncorrelated envelope: env=%+v err=%v", name, out, err)
		}
	}
}

func TestEncodeRequiresID(t *testing.T) {
	testlog.Start(t)
	for _, c := range []Codec{JSON(), TLV(), CBOR(), Proto()} {
		if _, err := c.Encode(Envelope{Data: []byte("x")}); !errors.Is(err, ErrMissingID) {
			t.Fatalf("%s: expected ErrMissingID, got %v", c.Name(), err)
		}
	}
}

func TestDecodeWithoutIDIsDropped(t *testing.T) {
	testlog.Start(t)
	env, err := JSON().Decode([]byte(`{"request_id":"r1","data":"aGk="}`))
	if err != nil || env != nil {
		t.Fatalf("expected silent drop, got env=%v err=%v", env, err)
	}
	env, err = TLV().Decode(nil)
	if err != nil || env != nil {
		t.Fatalf("expected silent drop for empty tlv, got env=%v err=%v", env, err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	testlog.Start(t)
	cases := map[string][]byte{
		"json":  []byte("{not json"),
		"tlv":   {0, 1, 6},
		"cbor":  {0xff, 0xff},
		"proto": {0x0a, 0x10, 'a'},
	}
	for name, payload := range cases {
		c, err := Lookup(name)
		if err != nil {
			t.Fatalf("lookup %s: %v", name, err)
		}
		if _, err := c.Decode(payload); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
}

func TestProtoSkipsUnknownFields(t *testing.T) {
	testlog.Start(t)
	b, err := Proto().Encode(Envelope{ID: "ping"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// field 9, varint 150
	b = append(b, 0x48, 0x96, 0x01)
	env, err := Proto().Decode(b)
	if err != nil || env == nil || env.ID != "ping" {
		t.Fatalf("unexpected decode: env=%v err=%v", env, err)
	}
}

func TestRegistryLookup(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	if _, err := r.Lookup(" JSON "); err != nil {
		t.Fatalf("lookup json: %v", err)
	}
	if _, err := r.Lookup("xml"); !errors.Is(err, ErrUnknownCodec) {
		t.Fatalf("expected ErrUnknownCodec, got %v", err)
	}
	names := r.Names()
	if len(names) != 4 || names[0] != "cbor" {
		t.Fatalf("unexpected names: %v", names)
	}
}
