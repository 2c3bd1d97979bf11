package protocol

import "errors"

// ErrMalformedPacket is returned by Decode for a datagram that cannot carry
// a control byte (i.e. an empty one).
var ErrMalformedPacket = errors.New("malformed packet: empty datagram")

// Encode serializes a packet into a datagram: the control byte followed by
// the payload (Data packets only — the payload is ignored for other kinds).
func Encode(kind uint8, payload []byte) []byte {
	if kind != KindData || len(payload) == 0 {
		return []byte{kind}
	}
	buf := make([]byte, 1+len(payload))
	buf[0] = kind
	copy(buf[1:], payload)
	return buf
}

// Decode classifies a datagram. An unrecognized control byte yields a packet
// with KindUnknown and no error; callers discard it without logging it as a
// failure. Only an empty datagram is an error.
func Decode(data []byte) (*Packet, error) {
	if len(data) == 0 {
		return nil, ErrMalformedPacket
	}

	kind := data[0]
	switch kind {
	case KindHandshake, KindDisconnect, KindPing, KindPong:
		return &Packet{Kind: kind}, nil
	case KindData:
		pkt := &Packet{Kind: KindData}
		if len(data) > 1 {
			pkt.Payload = make([]byte, len(data)-1)
			copy(pkt.Payload, data[1:])
		}
		return pkt, nil
	default:
		return &Packet{Kind: KindUnknown}, nil
	}
}
