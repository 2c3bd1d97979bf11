package xudp

import (
	"context"
	"net/netip"
	"sync"

	"github.com/Norimo/XUDPConnections/internal/protocol"
	"github.com/Norimo/XUDPConnections/internal/transport"
	"github.com/Norimo/XUDPConnections/internal/util"
)

// Acceptor is the server role: it owns a shared transport, demultiplexes
// inbound datagrams by source endpoint into per-peer Sessions, and exposes
// newly-established sessions through AcceptConnection.
//
// Only a Handshake datagram from an unknown endpoint creates a session; any
// other control byte from an unknown endpoint is dropped, which defends
// against spoofed and stale packets. At most one live session exists per
// endpoint at a time.
type Acceptor struct {
	tr     transport.Conn
	timing Timing

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu       sync.Mutex
	sessions map[netip.AddrPort]*Session

	// pending is the notify-on-insert accept queue: the receive loop pushes
	// each session exactly once, so no session can be handed to two callers
	// and none is skipped while eligible.
	pending chan *Session
}

// Listen binds a UDP socket on port and starts an acceptor over it with
// default timing.
func Listen(port int) (*Acceptor, error) {
	tr, err := transport.ListenUDP(port)
	if err != nil {
		return nil, err
	}
	return NewAcceptor(tr, DefaultTiming()), nil
}

// NewAcceptor starts an acceptor over an already-established transport and
// takes ownership of it. Zero fields in timing fall back to the defaults.
func NewAcceptor(tr transport.Conn, timing Timing) *Acceptor {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Acceptor{
		tr:       tr,
		timing:   timing.withDefaults(),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[netip.AddrPort]*Session),
		pending:  make(chan *Session, acceptBacklog),
	}

	go a.receiveLoop()

	return a
}

// LocalAddr returns the transport's local endpoint.
func (a *Acceptor) LocalAddr() netip.AddrPort {
	return a.tr.LocalAddr()
}

// receiveLoop is the single reader of the shared transport. It runs for the
// acceptor's lifetime; malformed or unknown datagrams are dropped without
// ever aborting the loop.
func (a *Acceptor) receiveLoop() {
	buf := make([]byte, maxDatagramSize)

	for {
		n, src, err := a.tr.ReadFrom(buf)
		if err != nil {
			select {
			case <-a.ctx.Done():
				// normal shutdown
			default:
				util.LogError("receive loop terminated: %v", err)
				a.Close()
			}
			return
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

		a.dispatch(src, pkt)
	}
}

// dispatch routes one decoded packet to the session for src, creating a
// session when a Handshake arrives from an endpoint without a live one.
func (a *Acceptor) dispatch(src netip.AddrPort, pkt *protocol.Packet) {
	a.mu.Lock()
	sess, ok := a.sessions[src]
	if ok && !sess.Connected() {
		// The previous session already ended; nothing proves a new
		// handshake is the same logical client, so it gets a fresh session.
		delete(a.sessions, src)
		ok = false
	}

	if ok {
		a.mu.Unlock()
		sess.handleIncoming(pkt)
		return
	}

	if pkt.Kind != protocol.KindHandshake {
		a.mu.Unlock()
		util.LogDebug("[%s] dropping %#x from unknown endpoint", src, pkt.Kind)
		return
	}

	sess = newSession(a.tr, src, a.timing)
	a.sessions[src] = sess
	a.mu.Unlock()

	sess.start()
	go a.reapWhenDone(sess)

	select {
	case a.pending <- sess:
		util.LogDebug("[%s] new session pending accept", src)
	default:
		// Backlog full and nobody accepting — close it rather than strand
		// an unclaimed session forever.
		util.LogWarning("[%s] accept backlog full, rejecting handshake", src)
		sess.teardown(true)
	}
}

// reapWhenDone removes a session from the endpoint map once it ends, so a
// later handshake from the same endpoint can create a distinct session.
func (a *Acceptor) reapWhenDone(sess *Session) {
	<-sess.done()
	a.mu.Lock()
	if a.sessions[sess.Endpoint()] == sess {
		delete(a.sessions, sess.Endpoint())
	}
	a.mu.Unlock()
}

// AcceptConnection blocks until a newly-established session is available,
// handing each session out exactly once, in arrival order. After Close it
// fails promptly with ErrListenerStopped.
func (a *Acceptor) AcceptConnection() (*Session, error) {
	if a.ctx.Err() != nil {
		return nil, ErrListenerStopped
	}

	select {
	case sess := <-a.pending:
		return sess, nil
	case <-a.ctx.Done():
		return nil, ErrListenerStopped
	}
}

// Close stops the receive loop and releases the transport, waking any
// caller blocked in AcceptConnection. Live sessions are not torn down and
// stay usable for in-flight operations, but receive no further dispatch.
func (a *Acceptor) Close() error {
	a.closeOnce.Do(func() {
		a.cancel()
		a.tr.Close()
	})
	return nil
}
