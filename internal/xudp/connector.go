package xudp

import (
	"fmt"
	"net/netip"
	"sync"

	"github.com/Norimo/XUDPConnections/internal/protocol"
	"github.com/Norimo/XUDPConnections/internal/transport"
	"github.com/Norimo/XUDPConnections/internal/util"
)

// Connector is the client role: it owns a single outbound session to a
// fixed remote endpoint and delegates Send/Receive/Disconnect to it.
//
// The handshake is fire-and-forget — no acknowledgment is awaited, so the
// session is considered open the moment the handshake datagram is sent.
// Whether the remote side actually exists only becomes known when a pong
// or data arrives, or when the idle watchdog gives up.
type Connector struct {
	timing Timing

	mu   sync.Mutex
	sess *Session
}

// NewConnector creates a connector. Zero fields in timing fall back to the
// defaults.
func NewConnector(timing Timing) *Connector {
	return &Connector{timing: timing.withDefaults()}
}

// Connect resolves addr ("host:port"), binds an ephemeral UDP socket and
// opens a session to it. Fails with ErrAlreadyConnected while a previous
// session is still live; after that session ends, Connect may be called
// again and yields a fresh session.
func (c *Connector) Connect(addr string) error {
	remote, err := transport.ResolveEndpoint(addr)
	if err != nil {
		return err
	}

	tr, err := transport.ListenUDP(0)
	if err != nil {
		return err
	}

	if err := c.ConnectVia(tr, remote); err != nil {
		tr.Close()
		return err
	}
	return nil
}

// ConnectVia opens a session to remote over an already-established
// transport. The connector takes ownership of tr and closes it when the
// session ends.
func (c *Connector) ConnectVia(tr transport.Conn, remote netip.AddrPort) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != nil && c.sess.Connected() {
		return ErrAlreadyConnected
	}

	// Fire-and-forget handshake; the session is open once it is on the wire.
	if _, err := tr.WriteTo(protocol.Encode(protocol.KindHandshake, nil), remote); err != nil {
		return fmt.Errorf("handshake to %s failed: %w", remote, err)
	}

	sess := newSession(tr, remote, c.timing)
	sess.start()
	c.sess = sess

	// Release the transport once the session ends, which also unblocks the
	// receive loop's pending ReadFrom.
	go func() {
		<-sess.done()
		tr.Close()
	}()

	go c.receiveLoop(sess, tr)

	util.LogDebug("[%s] connected", remote)
	return nil
}

// receiveLoop reads datagrams for the lifetime of the session, decodes them
// and forwards them to the session. Malformed or unknown packets are
// dropped silently — remote noise must never kill the loop.
func (c *Connector) receiveLoop(sess *Session, tr transport.Conn) {
	buf := make([]byte, maxDatagramSize)

	for {
		n, src, err := tr.ReadFrom(buf)
		if err != nil {
			// Transport gone. If the session did not initiate this, treat
			// it as a local failure: no Disconnect packet can be sent.
			if sess.Connected() {
				util.LogDebug("[%s] receive loop terminated: %v", sess.Endpoint(), err)
				sess.teardown(false)
			}
			return
		}

		if src != sess.Endpoint() {
			util.LogDebug("[%s] dropping datagram from unexpected source %s", sess.Endpoint(), src)
			continue
		}

		pkt, err := protocol.Decode(buf[:n])
		if err != nil {
			util.LogDebug("[%s] dropping malformed datagram: %v", src, err)
			continue
		}
		if pkt.Kind == protocol.KindUnknown {
			util.LogDebug("[%s] dropping unknown control byte", src)
			continue
		}

		sess.handleIncoming(pkt)
	}
}

// Session returns the current session, or nil before the first Connect.
func (c *Connector) Session() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess
}

// Send delegates to the current session.
func (c *Connector) Send(payload []byte) error {
	sess := c.Session()
	if sess == nil {
		return ErrNotConnected
	}
	return sess.Send(payload)
}

// Receive delegates to the current session.
func (c *Connector) Receive() ([]byte, error) {
	sess := c.Session()
	if sess == nil {
		return nil, ErrNotConnected
	}
	return sess.Receive()
}

// Disconnect closes the current session, if any.
func (c *Connector) Disconnect() {
	if sess := c.Session(); sess != nil {
		sess.Disconnect()
	}
}
