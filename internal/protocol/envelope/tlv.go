package envelope

import "github.com/danmuck/pktwire/internal/protocol/tlv"

const (
	fieldID        uint16 = 1
	fieldRequestID uint16 = 2
	fieldData      uint16 = 3
)

type tlvCodec struct{}

func TLV() Codec { return tlvCodec{} }

func (tlvCodec) Name() string { return "tlv" }

func (tlvCodec) Encode(e Envelope) ([]byte, error) {
	if err := validateForEncode(e); err != nil {
		return nil, err
	}
	fields := make([]tlv.Field, 0, 3)
	fields = append(fields, tlv.String(fieldID, e.ID))
	if e.RequestID != "" {
		fields = append(fields, tlv.String(fieldRequestID, e.RequestID))
	}
	if len(e.Data) > 0 {
		fields = append(fields, tlv.Bytes(fieldData, e.Data))
	}
	return tlv.EncodeFields(fields)
}

func (tlvCodec) Decode(b []byte) (*Envelope, error) {
	fields, err := tlv.DecodeFields(b)
	if err != nil {
		return nil, malformed("tlv", err)
	}
	id, ok, err := tlv.StringField(fields, fieldID)
	if err != nil {
		return nil, malformed("tlv", err)
	}
	if !ok || id == "" {
		return nil, nil
	}
	rid, _, err := tlv.StringField(fields, fieldRequestID)
	if err != nil {
		return nil, malformed("tlv", err)
	}
	e := &Envelope{ID: id, RequestID: rid}
	if f, ok := tlv.GetField(fields, fieldData); ok {
		e.Data = f.Value
	}
	return e, nil
}
