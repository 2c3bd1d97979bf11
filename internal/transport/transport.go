// Package transport abstracts the datagram socket underneath the session
// layer. Implementations must preserve datagram boundaries and attach a
// source endpoint to every received datagram; nothing above this package
// touches a real socket directly, so tests can swap in the memory pair.
package transport

import "net/netip"

// Conn is a connectionless datagram transport. One Conn may exchange
// datagrams with many remote endpoints (UDP) or exactly one (the WebSocket
// and DataChannel adapters, which report a fixed source endpoint).
type Conn interface {
	// ReadFrom blocks until a datagram arrives, copies it into buf and
	// returns the number of bytes copied together with the sender's
	// endpoint. After Close it returns net.ErrClosed.
	ReadFrom(buf []byte) (int, netip.AddrPort, error)

	// WriteTo sends one datagram to dst. Point-to-point transports ignore
	// dst. Delivery is best-effort; a nil error is not an acknowledgment.
	WriteTo(b []byte, dst netip.AddrPort) (int, error)

	// LocalAddr returns the local endpoint, or the zero AddrPort when the
	// transport has no meaningful address.
	LocalAddr() netip.AddrPort

	// Close releases the transport and unblocks any pending ReadFrom.
	Close() error
}
