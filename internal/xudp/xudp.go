// Package xudp layers connection-oriented semantics — accept, send,
// receive, disconnect, idle-timeout — on top of a connectionless datagram
// transport.
//
// A single transport demultiplexes inbound datagrams by source endpoint
// into per-peer Sessions. Each session tracks liveness through a periodic
// keep-alive exchange and tears itself down when the peer goes silent.
// There is no delivery guarantee, retransmission, or reordering: the
// protocol is a thin liveness/session layer over raw datagrams.
package xudp

import (
	"errors"
	"time"
)

// Tuning constants.
const (
	maxDatagramSize = 64 * 1024 // receive buffer; covers the largest UDP datagram
	inboxBufferSize = 256       // per-session inbound payload queue capacity
	acceptBacklog   = 64        // established-but-unclaimed session queue capacity
)

// Sentinel errors surfaced to consumers.
var (
	// ErrNotConnected is returned by Send (and Connector.Receive before any
	// connect) when no live session exists.
	ErrNotConnected = errors.New("session is not connected")

	// ErrAlreadyConnected is returned by a duplicate connect attempt while
	// the current session is still live.
	ErrAlreadyConnected = errors.New("already connected")

	// ErrListenerStopped is returned by AcceptConnection once the acceptor
	// has been closed.
	ErrListenerStopped = errors.New("acceptor has been stopped")
)

// Timing groups a session's keep-alive and idle-timeout cadence. The ping
// interval must sit well under the idle timeout so that several probes are
// missed before a peer is declared dead; isolated datagram loss must not
// kill a healthy session.
type Timing struct {
	KeepAliveInterval time.Duration // Ping cadence while connected
	WatchdogInterval  time.Duration // how often idleness is checked
	IdleTimeout       time.Duration // silence threshold before teardown
}

// DefaultTiming returns the reference cadence: ping every 3s, check every
// 2s, declare dead after 10s of silence.
func DefaultTiming() Timing {
	return Timing{
		KeepAliveInterval: 3 * time.Second,
		WatchdogInterval:  2 * time.Second,
		IdleTimeout:       10 * time.Second,
	}
}

// withDefaults fills in zero fields so a partially-specified Timing (or the
// zero value) still yields a working session.
func (t Timing) withDefaults() Timing {
	def := DefaultTiming()
	if t.KeepAliveInterval <= 0 {
		t.KeepAliveInterval = def.KeepAliveInterval
	}
	if t.WatchdogInterval <= 0 {
		t.WatchdogInterval = def.WatchdogInterval
	}
	if t.IdleTimeout <= 0 {
		t.IdleTimeout = def.IdleTimeout
	}
	return t
}
