package transport

import (
	"fmt"
	"net"
	"net/netip"
)

// UDPConn adapts *net.UDPConn to the Conn interface. It is the production
// transport; everything else in this package exists for tests or for
// environments where UDP is blocked.
type UDPConn struct {
	udp *net.UDPConn
}

// ListenUDP binds a UDP socket on the given local port (0 picks a free one).
func ListenUDP(port int) (*UDPConn, error) {
	udp, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("failed to bind udp port %d: %w", port, err)
	}
	return &UDPConn{udp: udp}, nil
}

// ResolveEndpoint resolves a "host:port" string into an endpoint suitable
// for WriteTo and for keying sessions.
func ResolveEndpoint(addr string) (netip.AddrPort, error) {
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("invalid remote address %q: %w", addr, err)
	}
	ap := ua.AddrPort()
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()), nil
}

// ReadFrom reads one datagram. The source endpoint is unmapped so that the
// same peer always hashes to the same key regardless of IPv4/IPv6 mapping.
func (c *UDPConn) ReadFrom(buf []byte) (int, netip.AddrPort, error) {
	n, src, err := c.udp.ReadFromUDPAddrPort(buf)
	return n, netip.AddrPortFrom(src.Addr().Unmap(), src.Port()), err
}

// WriteTo sends one datagram to dst.
func (c *UDPConn) WriteTo(b []byte, dst netip.AddrPort) (int, error) {
	return c.udp.WriteToUDPAddrPort(b, dst)
}

// LocalAddr returns the bound local endpoint.
func (c *UDPConn) LocalAddr() netip.AddrPort {
	if ua, ok := c.udp.LocalAddr().(*net.UDPAddr); ok {
		ap := ua.AddrPort()
		return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	}
	return netip.AddrPort{}
}

// Close closes the socket, unblocking any pending ReadFrom.
func (c *UDPConn) Close() error {
	return c.udp.Close()
}
