package transport

import (
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
)

// memInboxSize bounds the in-flight datagrams per direction. A full inbox
// drops, mirroring UDP loss rather than blocking the writer.
const memInboxSize = 256

// nextMemPort fabricates distinct endpoints for memory transports.
var nextMemPort atomic.Uint32

type datagram struct {
	data []byte
	src  netip.AddrPort
}

// MemConn is one end of an in-process datagram link. Two linked MemConns
// behave like a pair of UDP sockets that can only reach each other:
// boundaries and arrival order are preserved, delivery is best-effort.
type MemConn struct {
	local netip.AddrPort
	peer  *MemConn

	inbox chan datagram
	done  chan struct{}
	once  sync.Once
}

// Pair creates a linked pair of memory transports.
func Pair() (*MemConn, *MemConn) {
	a := newMemConn()
	b := newMemConn()
	a.peer = b
	b.peer = a
	return a, b
}

func newMemConn() *MemConn {
	port := uint16(nextMemPort.Add(1))
	return &MemConn{
		local: netip.AddrPortFrom(netip.AddrFrom4([4]byte{127, 0, 0, 1}), port),
		inbox: make(chan datagram, memInboxSize),
		done:  make(chan struct{}),
	}
}

// ReadFrom blocks until the peer delivers a datagram or Close is called.
func (c *MemConn) ReadFrom(buf []byte) (int, netip.AddrPort, error) {
	select {
	case dg := <-c.inbox:
		n := copy(buf, dg.data)
		return n, dg.src, nil
	case <-c.done:
		return 0, netip.AddrPort{}, net.ErrClosed
	}
}

// WriteTo delivers one datagram to the linked peer. dst is ignored — the
// link is point-to-point. Writes to a full or closed peer are dropped
// silently, like datagrams on a congested or dead path.
func (c *MemConn) WriteTo(b []byte, _ netip.AddrPort) (int, error) {
	select {
	case <-c.done:
		return 0, net.ErrClosed
	default:
	}

	data := make([]byte, len(b))
	copy(data, b)

	select {
	case c.peer.inbox <- datagram{data: data, src: c.local}:
	case <-c.peer.done:
	default:
	}
	return len(b), nil
}

// LocalAddr returns this end's fabricated endpoint.
func (c *MemConn) LocalAddr() netip.AddrPort {
	return c.local
}

// Close unblocks pending reads on this end. Safe to call multiple times.
func (c *MemConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}
