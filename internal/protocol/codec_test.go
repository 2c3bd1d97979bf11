package protocol

import (
	"bytes"
	"errors"
	"testing"
)

// TestEncodeDecodeRoundTrip verifies that encoding and decoding are inverse
// operations for all packet kinds.
func TestEncodeDecodeRoundTrip(t *testing.T) {
	testCases := []struct {
		name    string
		kind    uint8
		payload []byte
	}{
		{name: "Handshake", kind: KindHandshake},
		{name: "Disconnect", kind: KindDisconnect},
		{name: "Ping", kind: KindPing},
		{name: "Pong", kind: KindPong},
		{name: "Data with small payload", kind: KindData, payload: []byte("hello world")},
		{name: "Data with empty payload", kind: KindData, payload: nil},
		{name: "Data with large payload (16KB)", kind: KindData, payload: make([]byte, 16*1024)},
		{name: "Data with binary payload", kind: KindData, payload: []byte{0x00, 0x01, 0xFF, 0xFE}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := Encode(tc.kind, tc.payload)

			if encoded[0] != tc.kind {
				t.Errorf("control byte mismatch: got %#x, want %#x", encoded[0], tc.kind)
			}

			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if decoded.Kind != tc.kind {
				t.Errorf("Kind mismatch: got %#x, want %#x", decoded.Kind, tc.kind)
			}
			if len(tc.payload) > 0 && !bytes.Equal(decoded.Payload, tc.payload) {
				t.Errorf("Payload mismatch: got %d bytes, want %d bytes", len(decoded.Payload), len(tc.payload))
			}
		})
	}
}

// TestControlPacketsCarryNoPayload verifies that non-Data kinds encode to a
// single byte even if a payload is passed by mistake.
func TestControlPacketsCarryNoPayload(t *testing.T) {
	for _, kind := range []uint8{KindHandshake, KindDisconnect, KindPing, KindPong} {
		encoded := Encode(kind, []byte("stray"))
		if len(encoded) != 1 {
			t.Errorf("kind %#x: encoded length = %d, want 1", kind, len(encoded))
		}
	}
}

// TestDecodeEmptyDatagram verifies the only malformed case: an empty datagram.
func TestDecodeEmptyDatagram(t *testing.T) {
	if _, err := Decode(nil); !errors.Is(err, ErrMalformedPacket) {
		t.Errorf("Decode(nil) error = %v, want ErrMalformedPacket", err)
	}
	if _, err := Decode([]byte{}); !errors.Is(err, ErrMalformedPacket) {
		t.Errorf("Decode(empty) error = %v, want ErrMalformedPacket", err)
	}
}

// TestDecodeUnknownControlByte verifies that unrecognized control bytes are
// classified, not rejected — receive loops depend on this never erroring.
func TestDecodeUnknownControlByte(t *testing.T) {
	for _, b := range []byte{0x00, 0x06, 0x7F, 0xFF} {
		pkt, err := Decode([]byte{b, 0xAA, 0xBB})
		if err != nil {
			t.Fatalf("Decode(%#x...) returned error: %v", b, err)
		}
		if pkt.Kind != KindUnknown {
			t.Errorf("Decode(%#x...) Kind = %#x, want KindUnknown", b, pkt.Kind)
		}
	}
}

// TestDecodePayloadIsCopied verifies that the decoded payload does not alias
// the receive buffer, which is reused between reads.
func TestDecodePayloadIsCopied(t *testing.T) {
	buf := []byte{KindData, 'a', 'b', 'c'}
	pkt, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	buf[1] = 'x'
	if !bytes.Equal(pkt.Payload, []byte("abc")) {
		t.Errorf("payload aliases the input buffer: got %q", pkt.Payload)
	}
}
