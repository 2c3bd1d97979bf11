package transport

import (
	"net"
	"net/netip"
	"sync"

	"github.com/pion/webrtc/v4"
)

// dcInboxSize bounds buffered inbound messages; overflow drops, matching
// the best-effort contract of the other transports.
const dcInboxSize = 256

// STUN servers for ICE candidate gathering. No TURN — peers that cannot
// reach each other directly should fall back to the WebSocket transport.
var stunServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// NewPeerConnection creates a PeerConnection configured with Google STUN
// servers, for callers that negotiate a DataChannel to wrap with
// NewDataChannelConn.
func NewPeerConnection() (*webrtc.PeerConnection, error) {
	config := webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: stunServers},
		},
	}
	return webrtc.NewPeerConnection(config)
}

// CreateDataChannel creates a pre-negotiated, unordered DataChannel on pc.
// Negotiated mode (ID 0) lets both sides create the channel independently;
// unordered matches the session layer, which promises arrival order only.
func CreateDataChannel(pc *webrtc.PeerConnection) (*webrtc.DataChannel, error) {
	ordered := false
	negotiated := true
	id := uint16(0)

	return pc.CreateDataChannel("xudp", &webrtc.DataChannelInit{
		Ordered:    &ordered,
		Negotiated: &negotiated,
		ID:         &id,
	})
}

// DataChannelConn carries datagrams over a WebRTC DataChannel, one message
// per datagram. Point-to-point: every read reports the endpoint given at
// construction (DataChannels have no socket address of their own).
type DataChannelConn struct {
	dc     *webrtc.DataChannel
	remote netip.AddrPort

	open     chan struct{}
	openOnce sync.Once

	inbox chan []byte
	done  chan struct{}
	once  sync.Once
}

// NewDataChannelConn wraps an already-negotiated DataChannel. remote is the
// endpoint reported for every inbound datagram; any stable, non-zero value
// works since the link carries exactly one peer.
//
// Writes block until the channel opens; message delivery and loss follow
// the channel's (unordered, unreliable-friendly) configuration.
func NewDataChannelConn(dc *webrtc.DataChannel, remote netip.AddrPort) *DataChannelConn {
	c := &DataChannelConn{
		dc:     dc,
		remote: remote,
		open:   make(chan struct{}),
		inbox:  make(chan []byte, dcInboxSize),
		done:   make(chan struct{}),
	}

	dc.OnOpen(func() {
		c.openOnce.Do(func() { close(c.open) })
	})

	dc.OnClose(func() {
		c.once.Do(func() { close(c.done) })
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		select {
		case c.inbox <- msg.Data:
		case <-c.done:
		default:
		}
	})

	return c
}

// ReadFrom blocks until a message arrives or the channel closes.
func (c *DataChannelConn) ReadFrom(buf []byte) (int, netip.AddrPort, error) {
	select {
	case data := <-c.inbox:
		n := copy(buf, data)
		return n, c.remote, nil
	case <-c.done:
		return 0, netip.AddrPort{}, net.ErrClosed
	}
}

// WriteTo sends one datagram, waiting for the channel to open first. dst is
// ignored.
func (c *DataChannelConn) WriteTo(b []byte, _ netip.AddrPort) (int, error) {
	select {
	case <-c.open:
	case <-c.done:
		return 0, net.ErrClosed
	}

	if err := c.dc.Send(b); err != nil {
		return 0, err
	}
	return len(b), nil
}

// LocalAddr returns the zero AddrPort — a DataChannel has no local socket
// address.
func (c *DataChannelConn) LocalAddr() netip.AddrPort {
	return netip.AddrPort{}
}

// RemoteAddr returns the fixed endpoint reported for every read.
func (c *DataChannelConn) RemoteAddr() netip.AddrPort {
	return c.remote
}

// Close closes the DataChannel and unblocks pending reads.
func (c *DataChannelConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return c.dc.Close()
}
