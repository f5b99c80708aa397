package link

import (
	"net"
	"testing"
	"time"

	"github.com/usbarmory/keyfob/link/proto"
)

func pipePair(t *testing.T) (a, b *IOStream) {
	t.Helper()
	ca, cb := net.Pipe()
	return NewIOStream(ca), NewIOStream(cb)
}

func TestFrameRoundTrip(t *testing.T) {
	a, b := pipePair(t)

	payload := []byte{0x01, 0x02, 0x03}
	done := make(chan error, 1)

	go func() {
		done <- WriteFrame(a, proto.PairReq, payload)
	}()

	got, err := ExpectMagic(b, proto.PairReq)
	if err != nil {
		t.Fatalf("expect magic: %v", err)
	}
	if len(got) != len(payload) {
		t.Fatalf("got payload len %d want %d", len(got), len(payload))
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("payload mismatch at %d: got %x want %x", i, got[i], payload[i])
		}
	}

	if err := <-done; err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestExpectMagicRejectsWrongTag(t *testing.T) {
	a, b := pipePair(t)

	go WriteFrame(a, proto.PairAck, nil)

	if _, err := ExpectMagic(b, proto.PairRst); err == nil {
		t.Fatal("expected unexpected-magic error")
	}
}

func TestAvailableIsFalseUntilDataArrives(t *testing.T) {
	a, b := pipePair(t)

	if b.Available() {
		t.Fatal("expected no data buffered yet")
	}

	go WriteFrame(a, proto.PairAck, nil)

	deadline := time.Now().Add(time.Second)
	for !b.Available() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for data to arrive")
		}
		time.Sleep(time.Millisecond)
	}
}
