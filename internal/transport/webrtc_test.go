package transport

import (
	"bytes"
	"net/netip"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"
)

// dcTestPair negotiates two in-process PeerConnections (host candidates
// only, no STUN) and returns both pre-negotiated DataChannels wrapped as
// datagram transports.
func dcTestPair(t *testing.T) (a, b *DataChannelConn) {
	t.Helper()

	offerPC, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("offer PeerConnection failed: %v", err)
	}
	t.Cleanup(func() { offerPC.Close() })

	answerPC, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		t.Fatalf("answer PeerConnection failed: %v", err)
	}
	t.Cleanup(func() { answerPC.Close() })

	// Negotiated channels with a fixed ID — both sides create independently.
	offerDC, err := CreateDataChannel(offerPC)
	if err != nil {
		t.Fatalf("offer DataChannel failed: %v", err)
	}
	answerDC, err := CreateDataChannel(answerPC)
	if err != nil {
		t.Fatalf("answer DataChannel failed: %v", err)
	}

	a = NewDataChannelConn(offerDC, netip.MustParseAddrPort("192.0.2.2:1"))
	b = NewDataChannelConn(answerDC, netip.MustParseAddrPort("192.0.2.1:1"))

	// Non-trickle SDP exchange: wait for gathering so each description
	// already contains its candidates.
	offer, err := offerPC.CreateOffer(nil)
	if err != nil {
		t.Fatalf("CreateOffer failed: %v", err)
	}
	offerGathered := webrtc.GatheringCompletePromise(offerPC)
	if err := offerPC.SetLocalDescription(offer); err != nil {
		t.Fatalf("offer SetLocalDescription failed: %v", err)
	}
	<-offerGathered

	if err := answerPC.SetRemoteDescription(*offerPC.LocalDescription()); err != nil {
		t.Fatalf("answer SetRemoteDescription failed: %v", err)
	}
	answer, err := answerPC.CreateAnswer(nil)
	if err != nil {
		t.Fatalf("CreateAnswer failed: %v", err)
	}
	answerGathered := webrtc.GatheringCompletePromise(answerPC)
	if err := answerPC.SetLocalDescription(answer); err != nil {
		t.Fatalf("answer SetLocalDescription failed: %v", err)
	}
	<-answerGathered

	if err := offerPC.SetRemoteDescription(*answerPC.LocalDescription()); err != nil {
		t.Fatalf("offer SetRemoteDescription failed: %v", err)
	}

	return a, b
}

// TestDataChannelConnRoundTrip verifies datagram exchange over a negotiated
// DataChannel pair, including the write-blocks-until-open behavior.
func TestDataChannelConnRoundTrip(t *testing.T) {
	a, b := dcTestPair(t)

	// WriteTo blocks until the channel opens, so sending immediately after
	// the SDP exchange is safe.
	if _, err := a.WriteTo([]byte("over datachannel"), b.RemoteAddr()); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}

	type result struct {
		data []byte
		src  netip.AddrPort
		err  error
	}
	readCh := make(chan result, 1)
	go func() {
		buf := make([]byte, 1024)
		n, src, err := b.ReadFrom(buf)
		readCh <- result{data: append([]byte(nil), buf[:n]...), src: src, err: err}
	}()

	select {
	case r := <-readCh:
		if r.err != nil {
			t.Fatalf("ReadFrom failed: %v", r.err)
		}
		if !bytes.Equal(r.data, []byte("over datachannel")) {
			t.Errorf("datagram = %q, want %q", r.data, "over datachannel")
		}
		if r.src != b.RemoteAddr() {
			t.Errorf("source = %s, want fixed remote %s", r.src, b.RemoteAddr())
		}
	case <-time.After(10 * time.Second):
		t.Fatal("datagram never arrived over the DataChannel")
	}

	// Reverse direction.
	if _, err := b.WriteTo([]byte("ack"), a.RemoteAddr()); err != nil {
		t.Fatalf("reverse WriteTo failed: %v", err)
	}
	go func() {
		buf := make([]byte, 1024)
		n, src, err := a.ReadFrom(buf)
		readCh <- result{data: append([]byte(nil), buf[:n]...), src: src, err: err}
	}()

	select {
	case r := <-readCh:
		if r.err != nil {
			t.Fatalf("reverse ReadFrom failed: %v", r.err)
		}
		if !bytes.Equal(r.data, []byte("ack")) {
			t.Errorf("reverse datagram = %q, want %q", r.data, "ack")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("reverse datagram never arrived")
	}
}
