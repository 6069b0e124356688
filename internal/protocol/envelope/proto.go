package envelope

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the protobuf envelope message:
//
//	message Envelope { string id = 1; string request_id = 2; bytes data = 3; }
const (
	protoID        protowire.Number = 1
	protoRequestID protowire.Number = 2
	protoData      protowire.Number = 3
)

type protoCodec struct{}

func Proto() Codec { return protoCodec{} }

func (protoCodec) Name() string { return "proto" }

func (protoCodec) Encode(e Envelope) ([]byte, error) {
	if err := validateForEncode(e); err != nil {
		return nil, err
	}
	b := make([]byte, 0, len(e.ID)+len(e.RequestID)+len(e.Data)+16)
	b = protowire.AppendTag(b, protoID, protowire.BytesType)
	b = protowire.AppendString(b, e.ID)
	if e.RequestID != "" {
		b = protowire.AppendTag(b, protoRequestID, protowire.BytesType)
		b = protowire.AppendString(b, e.RequestID)
	}
	if len(e.Data) > 0 {
		b = protowire.AppendTag(b, protoData, protowire.BytesType)
		b = protowire.AppendBytes(b, e.Data)
	}
	return b, nil
}

func (protoCodec) Decode(b []byte) (*Envelope, error) {
	var e Envelope
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, malformed("proto", protowire.ParseError(n))
		}
		b = b[n:]
		switch {
		case num == protoID && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return nil, malformed("proto", protowire.ParseError(m))
			}
			e.ID = v
			n = m
		case num == protoRequestID && typ == protowire.BytesType:
			v, m := protowire.ConsumeString(b)
			if m < 0 {
				return nil, malformed("proto", protowire.ParseError(m))
			}
			e.RequestID = v
			n = m
		case num == protoData && typ == protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, malformed("proto", protowire.ParseError(m))
			}
			e.Data = append([]byte(nil), v...)
			n = m
		case num == protoID || num == protoRequestID || num == protoData:
			return nil, malformed("proto", fmt.Errorf("field %d has wire type %d", num, typ))
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, malformed("proto", protowire.ParseError(n))
			}
		}
		b = b[n:]
	}
	if e.ID == "" {
		return nil, nil
	}
	return &e, nil
}
