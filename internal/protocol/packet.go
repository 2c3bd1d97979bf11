// Package protocol defines the packet format for the session layer.
//
// Every datagram starts with a single control byte. Only Data packets carry
// a payload; the datagram boundary delimits it, so there is no length field,
// sequence number, or checksum.
package protocol

// Packet kind constants (the control byte).
const (
	KindHandshake  uint8 = 0x01 // opens a session; fire-and-forget
	KindData       uint8 = 0x02 // application payload follows
	KindDisconnect uint8 = 0x03 // best-effort close notification
	KindPing       uint8 = 0x04 // keep-alive probe
	KindPong       uint8 = 0x05 // keep-alive reply
)

// KindUnknown classifies a leading byte outside the table above. Receivers
// drop such packets silently; they must never abort a receive loop.
const KindUnknown uint8 = 0x00

// Packet is a decoded datagram: a control byte plus, for Data packets, the
// raw application payload.
type Packet struct {
	Kind    uint8
	Payload []byte // only used for KindData
}
