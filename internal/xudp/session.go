package xudp

import (
	"context"
	"fmt"
	"io"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Norimo/XUDPConnections/internal/protocol"
	"github.com/Norimo/XUDPConnections/internal/transport"
	"github.com/Norimo/XUDPConnections/internal/util"
)

// Session is the per-endpoint connection state machine, used identically by
// the connecting and accepting sides. It starts Connected and transitions
// exactly once to Disconnected — on explicit disconnect, on a Disconnect
// packet from the peer, or when the idle watchdog fires. A disconnected
// session is never resurrected; a later handshake from the same endpoint
// yields a distinct new Session.
//
// Inbound Data payloads are queued in arrival order and drained by Receive.
// Sends are synchronous writes to the shared transport — no queueing or
// backpressure at this layer.
type Session struct {
	endpoint netip.AddrPort
	tr       transport.Conn
	timing   Timing

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	inbox chan []byte

	// lastActivity is the UnixNano timestamp of the most recent received
	// packet of any kind — pings and pongs count as activity too.
	lastActivity atomic.Int64
}

// newSession creates a Connected session for endpoint. The caller starts
// the background timers with start() once the session is registered.
func newSession(tr transport.Conn, endpoint netip.AddrPort, timing Timing) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		endpoint: endpoint,
		tr:       tr,
		timing:   timing,
		ctx:      ctx,
		cancel:   cancel,
		inbox:    make(chan []byte, inboxBufferSize),
	}
	s.touch()
	util.Stats.AddSession()
	return s
}

// start launches the keep-alive ticker and the idle watchdog. Both exit
// when the session disconnects.
func (s *Session) start() {
	go s.keepAliveLoop()
	go s.watchdogLoop()
}

// Endpoint returns the remote endpoint this session is bound to. It never
// changes over the session's lifetime.
func (s *Session) Endpoint() netip.AddrPort {
	return s.endpoint
}

// Connected reports whether the session is still live.
func (s *Session) Connected() bool {
	return s.ctx.Err() == nil
}

// done exposes the session's lifetime to cleanup hooks.
func (s *Session) done() <-chan struct{} {
	return s.ctx.Done()
}

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// handleIncoming processes one decoded packet from the owning receive loop.
// Every packet kind refreshes the activity clock; only Data reaches the
// consumer. Handshake and Pong are refresh-only here.
func (s *Session) handleIncoming(pkt *protocol.Packet) {
	s.touch()

	switch pkt.Kind {
	case protocol.KindData:
		select {
		case s.inbox <- pkt.Payload:
			util.Stats.AddRecv(len(pkt.Payload))
		default:
			util.LogWarning("[%s] inbound queue full, dropping %d byte payload", s.endpoint, len(pkt.Payload))
		}

	case protocol.KindPing:
		if err := s.writePacket(protocol.KindPong, nil); err != nil {
			util.LogDebug("[%s] pong send failed: %v", s.endpoint, err)
		}

	case protocol.KindDisconnect:
		util.LogDebug("[%s] peer disconnected", s.endpoint)
		s.teardown(false)
	}
}

// Send encodes payload as a Data packet and writes it synchronously. A full
// send buffer or dead socket surfaces as a transport error; nothing is
// retried.
func (s *Session) Send(payload []byte) error {
	if !s.Connected() {
		return ErrNotConnected
	}
	if err := s.writePacket(protocol.KindData, payload); err != nil {
		return fmt.Errorf("send to %s failed: %w", s.endpoint, err)
	}
	util.Stats.AddSent(len(payload))
	return nil
}

// Receive blocks until a Data payload is available (returned in FIFO order)
// or the session disconnects (returns io.EOF). Payloads already queued when
// the session disconnects are drained before io.EOF is reported.
func (s *Session) Receive() ([]byte, error) {
	select {
	case payload := <-s.inbox:
		return payload, nil
	default:
	}

	select {
	case payload := <-s.inbox:
		return payload, nil
	case <-s.ctx.Done():
		return nil, io.EOF
	}
}

// Disconnect notifies the peer best-effort (no retry, no ack) and
// transitions to Disconnected regardless of send success. Any task blocked
// in Receive wakes up with io.EOF. Safe to call multiple times.
func (s *Session) Disconnect() {
	s.teardown(true)
}

// teardown performs the single Connected→Disconnected transition. When
// notifyPeer is false (idle timeout, inbound Disconnect) no packet is sent:
// the peer is presumed unreachable or already gone.
func (s *Session) teardown(notifyPeer bool) {
	s.closeOnce.Do(func() {
		if notifyPeer {
			if err := s.writePacket(protocol.KindDisconnect, nil); err != nil {
				util.LogDebug("[%s] disconnect notify failed: %v", s.endpoint, err)
			}
		}
		s.cancel()
		util.Stats.RemoveSession()
		util.LogDebug("[%s] session closed", s.endpoint)
	})
}

func (s *Session) writePacket(kind uint8, payload []byte) error {
	_, err := s.tr.WriteTo(protocol.Encode(kind, payload), s.endpoint)
	return err
}

// keepAliveLoop sends a Ping every KeepAliveInterval while connected. The
// pong it provokes keeps the remote watchdog quiet, and the remote pong
// keeps ours quiet — an idle but healthy link never times out.
func (s *Session) keepAliveLoop() {
	ticker := time.NewTicker(s.timing.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.writePacket(protocol.KindPing, nil); err != nil {
				util.LogDebug("[%s] ping send failed: %v", s.endpoint, err)
				continue
			}
			util.Stats.AddPing()
		case <-s.ctx.Done():
			return
		}
	}
}

// watchdogLoop checks every WatchdogInterval whether the peer has been
// silent past IdleTimeout, and if so forces a local disconnect. No
// Disconnect packet is sent — a peer that silent is presumed unreachable.
func (s *Session) watchdogLoop() {
	ticker := time.NewTicker(s.timing.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			idle := time.Since(time.Unix(0, s.lastActivity.Load()))
			if idle > s.timing.IdleTimeout {
				util.LogDebug("[%s] idle for %v, declaring peer dead", s.endpoint, idle.Round(time.Millisecond))
				s.teardown(false)
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}
