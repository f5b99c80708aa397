package store

import (
	"bytes"
	"testing"
)

func TestRAMRoundTrip(t *testing.T) {
	s := NewRAM()

	payload := bytes.Repeat([]byte{0xAB}, FobSecretLen)
	if err := s.Write(FobSecretOffset, payload); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := s.Read(FobSecretOffset, FobSecretLen)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: got %x want %x", got, payload)
	}
}

func TestRAMUnwrittenRegionIsZero(t *testing.T) {
	s := NewRAM()

	got, err := s.Read(FobPinHashOffset, FobPinHashLen)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, b := range got {
		if b != 0 {
			t.Fatalf("expected zeroed region, got %x", got)
		}
	}
}

func TestRAMMisaligned(t *testing.T) {
	s := NewRAM()

	if _, err := s.Read(1, 4); err == nil {
		t.Fatal("expected misaligned offset error")
	}
	if _, err := s.Read(0, 3); err == nil {
		t.Fatal("expected misaligned length error")
	}
}

func TestRAMOutOfRange(t *testing.T) {
	s := NewRAM()

	if _, err := s.Read(Size-4, 8); err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestFeatureSigOffsetInvalid(t *testing.T) {
	if _, ok := FeatureSigOffset(0); ok {
		t.Fatal("expected slot 0 to be invalid")
	}
	if _, ok := FeatureSigOffset(4); ok {
		t.Fatal("expected slot 4 to be invalid")
	}
	for n := 1; n <= 3; n++ {
		if _, ok := FeatureSigOffset(n); !ok {
			t.Fatalf("expected slot %d to be valid", n)
		}
	}
}

func TestBytesWordsRoundTrip(t *testing.T) {
	orig := []byte{0x01, 0x02, 0x03, 0x04, 0xAA, 0xBB, 0xCC, 0xDD}

	got := WordsToBytes(BytesToWords(orig))
	if !bytes.Equal(got, orig) {
		t.Fatalf("round trip mismatch: got %x want %x", got, orig)
	}
}

func TestFobCarAccessors(t *testing.T) {
	fob := Fob{S: NewRAM()}

	if err := fob.SetCarID(0x42); err != nil {
		t.Fatal(err)
	}
	id, err := fob.CarID()
	if err != nil {
		t.Fatal(err)
	}
	if id != 0x42 {
		t.Fatalf("got car id %d want 0x42", id)
	}

	paired, err := fob.IsPaired()
	if err != nil {
		t.Fatal(err)
	}
	if paired {
		t.Fatal("expected fresh fob to be unpaired")
	}

	if err := fob.SetPaired(true); err != nil {
		t.Fatal(err)
	}
	paired, err = fob.IsPaired()
	if err != nil {
		t.Fatal(err)
	}
	if !paired {
		t.Fatal("expected fob to be paired after SetPaired(true)")
	}
}

func TestCarMsgFeatInvalidSlot(t *testing.T) {
	car := Car{S: NewRAM()}

	if _, err := car.MsgFeat(0); err == nil {
		t.Fatal("expected error for slot 0")
	}
	if _, err := car.MsgFeat(1); err != nil {
		t.Fatalf("unexpected error for slot 1: %v", err)
	}
}
