package envelope

import (
	cbor "github.com/fxamacker/cbor/v2"
)

type cborEnvelope struct {
	ID        string `cbor:"id"`
	RequestID string `cbor:"request_id,omitempty"`
	Data      []byte `cbor:"data,omitempty"`
}

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBOR returns a deterministic CBOR codec using the canonical encoding profile.
func CBOR() Codec {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(err)
	}
	return cborCodec{enc: em, dec: dm}
}

func (cborCodec) Name() string { return "cbor" }

func (c cborCodec) Encode(e Envelope) ([]byte, error) {
	if err := validateForEncode(e); err != nil {
		return nil, err
	}
	return c.enc.Marshal(cborEnvelope{ID: e.ID, RequestID: e.RequestID, Data: e.Data})
}

func (c cborCodec) Decode(b []byte) (*Envelope, error) {
	var wire cborEnvelope
	if err := c.dec.Unmarshal(b, &wire); err != nil {
		return nil, malformed("cbor", err)
	}
	if wire.ID == "" {
		return nil, nil
	}
	return &Envelope{ID: wire.ID, RequestID: wire.RequestID, Data: wire.Data}, nil
}
