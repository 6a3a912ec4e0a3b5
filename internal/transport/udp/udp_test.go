// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"reactive/internal/uniform"
)

func testSnapshot() *uniform.Snapshot {
	s := &uniform.Snapshot{
		Time:       2.5,
		Bass:       0.5,
		Mid:        0.25,
		High:       0.125,
		Energy:     0.375,
		Beat:       1,
		BassAccum:  4,
		BeatCount:  7,
		Resolution: uniform.Resolution{Width: 1920, Height: 1080},
	}
	for i := range s.Spectrum {
		s.Spectrum[i] = byte(i % 251)
		s.Waveform[i] = 128
	}
	return s
}

func TestPacketSize(t *testing.T) {
	const want = 4 + 8 + 7*4 + 3*4 + 2*uniform.TextureSize
	if PacketSize != want {
		t.Errorf("PacketSize = %d, want %d", PacketSize, want)
	}
}

func TestPacketEncodeDecode(t *testing.T) {
	snap := testSnapshot()
	pkt := NewPacket(42, 1234567890, snap)

	var buf bytes.Buffer
	if err := pkt.Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if buf.Len() != PacketSize {
		t.Fatalf("encoded %d bytes, want %d", buf.Len(), PacketSize)
	}
	// Sequence number leads the packet in network order.
	if got := buf.Bytes()[:4]; !bytes.Equal(got, []byte{0, 0, 0, 42}) {
		t.Errorf("sequence bytes = %v", got)
	}

	got, err := DecodePacket(buf.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != pkt {
		t.Errorf("decoded packet differs from encoded one")
	}
	if got.Bass != 0.5 || got.BeatCount != 7 || got.Width != 1920 || got.Spectrum[250] != 250 {
		t.Errorf("unexpected fields: bass=%v beats=%d width=%d", got.Bass, got.BeatCount, got.Width)
	}
}

func TestDecodeShortPacket(t *testing.T) {
	if _, err := DecodePacket(make([]byte, 10)); err == nil {
		t.Error("expected error for truncated packet")
	}
}

func listen(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPublisherSendsLatestSnapshot(t *testing.T) {
	conn := listen(t)
	sender, err := NewUDPSender(conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("sender: %v", err)
	}
	pub, err := NewUDPPublisher(5*time.Millisecond, sender)
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	defer pub.Close()

	first := testSnapshot()
	first.BeatCount = 1
	latest := testSnapshot()
	pub.Send(first)
	pub.Send(latest)
	// The caller reuses its snapshot; the publisher must have copied it.
	latest.BeatCount = 99

	pub.Start()
	buf := make([]byte, 2*PacketSize)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	pkt, err := DecodePacket(buf[:n])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pkt.Sequence != 1 || pkt.BeatCount != 7 {
		t.Errorf("got sequence %d beats %d, want 1 and 7", pkt.Sequence, pkt.BeatCount)
	}

	// Nothing new was sent, so no further packets arrive.
	conn.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	if _, err := conn.Read(buf); err == nil {
		t.Error("publisher resent a stale snapshot")
	}
}

func TestPublisherIgnoresOtherData(t *testing.T) {
	conn := listen(t)
	sender, err := NewUDPSender(conn.LocalAddr().String())
	if err != nil {
		t.Fatalf("sender: %v", err)
	}
	pub, _ := NewUDPPublisher(0, sender)
	if err := pub.Send("hello"); err != nil {
		t.Errorf("send: %v", err)
	}
	if pub.pending {
		t.Error("non-snapshot data should not be queued")
	}
	if pub.interval != 16*time.Millisecond {
		t.Errorf("interval = %v, want default 16ms", pub.interval)
	}
	pub.Close()
}

func TestPublisherStartStop(t *testing.T) {
	conn := listen(t)
	sender, _ := NewUDPSender(conn.LocalAddr().String())
	pub, _ := NewUDPPublisher(time.Millisecond, sender)

	pub.Start()
	pub.Start()
	if err := pub.Stop(); err != nil {
		t.Errorf("stop: %v", err)
	}
	if err := pub.Stop(); err != nil {
		t.Errorf("second stop: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
	if err := sender.Send([]byte{1}); !errors.Is(err, ErrSenderClosed) {
		t.Errorf("send after close = %v, want ErrSenderClosed", err)
	}
}

func TestNewUDPPublisherNilSender(t *testing.T) {
	if _, err := NewUDPPublisher(time.Millisecond, nil); err == nil {
		t.Error("expected error for nil sender")
	}
}

func TestNewUDPSenderBadAddress(t *testing.T) {
	if _, err := NewUDPSender("not an address"); err == nil {
		t.Error("expected resolve error")
	}
}
