package feature

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/usbarmory/keyfob/indicator"
	"github.com/usbarmory/keyfob/link"
	"github.com/usbarmory/keyfob/link/proto"
	"github.com/usbarmory/keyfob/store"
)

type fakeClock struct {
	now   time.Time
	slept time.Duration
}

func (f *fakeClock) Now() time.Time { return f.now }
func (f *fakeClock) Sleep(d time.Duration) {
	f.slept += d
	f.now = f.now.Add(d)
}

func enabFeatPayload(carID, n uint32, sig []byte) []byte {
	out := make([]byte, 0, proto.EnabFeatLen)
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], carID)
	out = append(out, buf[:]...)
	binary.BigEndian.PutUint32(buf[:], n)
	out = append(out, buf[:]...)
	out = append(out, sig...)
	return out
}

func TestHandleEnabFeatValidSlot(t *testing.T) {
	fob := store.Fob{S: store.NewRAM()}
	ha, hb := net.Pipe()
	host := link.NewIOStream(ha)
	hostPeer := link.NewIOStream(hb)
	clock := &fakeClock{now: time.Unix(0, 0)}

	e := &Enrolment{Fob: fob, Host: host, Clock: clock, LED: indicator.Noop{}}

	sig := bytes.Repeat([]byte{0x09}, 64)
	payload := enabFeatPayload(0x42, 2, sig)

	done := make(chan error, 1)
	go func() { done <- e.HandleEnabFeat(payload) }()

	magic, _, err := link.ReadMagic(hostPeer)
	if err != nil {
		t.Fatalf("read magic: %v", err)
	}
	if magic != proto.HostSuccess {
		t.Fatalf("expected HOST_SUCCESS, got 0x%02x", byte(magic))
	}
	if err := <-done; err != nil {
		t.Fatalf("handler: %v", err)
	}

	if clock.slept < Pause {
		t.Fatalf("expected pause of at least %v, got %v", Pause, clock.slept)
	}

	got, err := fob.FeatureSig(2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, sig) {
		t.Fatalf("feature sig mismatch: got %x want %x", got, sig)
	}
}

func TestHandleEnabFeatInvalidSlot(t *testing.T) {
	fob := store.Fob{S: store.NewRAM()}
	ha, hb := net.Pipe()
	host := link.NewIOStream(ha)
	hostPeer := link.NewIOStream(hb)
	clock := &fakeClock{now: time.Unix(0, 0)}

	e := &Enrolment{Fob: fob, Host: host, Clock: clock, LED: indicator.Noop{}}

	sig := bytes.Repeat([]byte{0x09}, 64)
	payload := enabFeatPayload(0x42, 4, sig)

	done := make(chan error, 1)
	go func() { done <- e.HandleEnabFeat(payload) }()

	magic, _, err := link.ReadMagic(hostPeer)
	if err != nil {
		t.Fatalf("read magic: %v", err)
	}
	if magic != proto.HostFailure {
		t.Fatalf("expected HOST_FAILURE, got 0x%02x", byte(magic))
	}
	if err := <-done; err != ErrInvalidFeatureNumber {
		t.Fatalf("expected ErrInvalidFeatureNumber, got %v", err)
	}

	if clock.slept < Pause {
		t.Fatalf("expected pause of at least %v, got %v", Pause, clock.slept)
	}

	for n := 1; n <= 3; n++ {
		got, err := fob.FeatureSig(n)
		if err != nil {
			t.Fatal(err)
		}
		for _, b := range got {
			if b != 0 {
				t.Fatalf("expected feature slot %d untouched", n)
			}
		}
	}
}

func TestHandleEnabFeatMalformedPayload(t *testing.T) {
	fob := store.Fob{S: store.NewRAM()}
	ha, _ := net.Pipe()
	host := link.NewIOStream(ha)
	clock := &fakeClock{now: time.Unix(0, 0)}

	e := &Enrolment{Fob: fob, Host: host, Clock: clock, LED: indicator.Noop{}}

	if err := e.HandleEnabFeat([]byte{0x01, 0x02}); err != ErrMalformedEnabFeat {
		t.Fatalf("expected ErrMalformedEnabFeat, got %v", err)
	}
}
