package envelope

import "encoding/json"

type jsonEnvelope struct {
	ID        string  `json:"id"`
	RequestID *string `json:"request_id"`
	Data      []byte  `json:"data,omitempty"`
}

type jsonCodec struct{}

func JSON() Codec { return jsonCodec{} }

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Encode(e Envelope) ([]byte, error) {
	if err := validateForEncode(e); err != nil {
		return nil, err
	}
	wire := jsonEnvelope{ID: e.ID, Data: e.Data}
	if e.RequestID != "" {
		rid := e.RequestID
		wire.RequestID = &rid
	}
	return json.Marshal(wire)
}

func (jsonCodec) Decode(b []byte) (*Envelope, error) {
	var wire jsonEnvelope
	if err := json.Unmarshal(b, &wire); err != nil {
		return nil, malformed("json", err)
	}
	if wire.ID == "" {
		return nil, nil
	}
	e := &Envelope{ID: wire.ID, Data: wire.Data}
	if wire.RequestID != nil {
		e.RequestID = *wire.RequestID
	}
	return e, nil
}
