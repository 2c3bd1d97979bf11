package transport

import (
	"net"
	"net/netip"
	"sync"

	"github.com/gorilla/websocket"
)

// WSConn carries datagrams over a WebSocket connection, one binary message
// per datagram. WebSocket framing preserves message boundaries, so the
// session layer's wire format works unchanged. The link is point-to-point:
// every read reports the same remote endpoint.
//
// Intended for environments where UDP is blocked; the session layer does
// not know or care that the underlying path is a TCP stream.
type WSConn struct {
	ws     *websocket.Conn
	remote netip.AddrPort

	// gorilla/websocket allows at most one concurrent writer.
	writeMu sync.Mutex
}

// NewWebSocketConn wraps an established WebSocket connection. Both sides of
// an upgrade (client and server) can be wrapped the same way.
func NewWebSocketConn(ws *websocket.Conn) *WSConn {
	return &WSConn{
		ws:     ws,
		remote: addrPortOf(ws.UnderlyingConn().RemoteAddr()),
	}
}

// ReadFrom blocks until the next binary message arrives. Non-binary
// messages (text, and control frames handled inside gorilla) are skipped.
func (c *WSConn) ReadFrom(buf []byte) (int, netip.AddrPort, error) {
	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return 0, netip.AddrPort{}, err
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		n := copy(buf, data)
		return n, c.remote, nil
	}
}

// WriteTo sends one datagram as a binary message. dst is ignored.
func (c *WSConn) WriteTo(b []byte, _ netip.AddrPort) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.BinaryMessage, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// LocalAddr returns the local endpoint of the underlying TCP connection.
func (c *WSConn) LocalAddr() netip.AddrPort {
	return addrPortOf(c.ws.UnderlyingConn().LocalAddr())
}

// RemoteAddr returns the fixed endpoint reported for every read — what a
// connector or acceptor above this transport keys the session on.
func (c *WSConn) RemoteAddr() netip.AddrPort {
	return c.remote
}

// Close closes the WebSocket (and its TCP connection), unblocking reads.
func (c *WSConn) Close() error {
	return c.ws.Close()
}

// addrPortOf extracts a netip.AddrPort from a net.Addr, falling back to
// parsing its string form. Returns the zero AddrPort when neither works.
func addrPortOf(addr net.Addr) netip.AddrPort {
	if ta, ok := addr.(*net.TCPAddr); ok {
		ap := ta.AddrPort()
		return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	}
	if ap, err := netip.ParseAddrPort(addr.String()); err == nil {
		return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	}
	return netip.AddrPort{}
}
