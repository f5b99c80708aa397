package pairing

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/usbarmory/keyfob/indicator"
	"github.com/usbarmory/keyfob/link"
	"github.com/usbarmory/keyfob/link/proto"
	"github.com/usbarmory/keyfob/store"
	"github.com/usbarmory/keyfob/wrap"
)

const pairSynMagic = proto.PairSyn

type fakeClock struct {
	now   time.Time
	slept time.Duration
}

func (f *fakeClock) Now() time.Time { return f.now }
func (f *fakeClock) Sleep(d time.Duration) {
	f.slept += d
	f.now = f.now.Add(d)
}

func setupPairedFob(t *testing.T, pin []byte) (store.Fob, []byte /* salt */, []byte /* secret */) {
	t.Helper()

	salt := bytes.Repeat([]byte{0x07}, store.FobSaltLen)
	secret := bytes.Repeat([]byte{0x42}, store.FobSecretLen)
	secretEnc := wrap.XOR(secret, wrap.Key(pin, salt))
	pinHash := wrap.PinHash(salt, pin)

	fob := store.Fob{S: store.NewRAM()}
	mustWrite(t, fob.SetSalt(salt))
	mustWrite(t, fob.SetSecretEnc(secretEnc))
	mustWrite(t, fob.SetPinHash(pinHash))
	mustWrite(t, fob.SetCarID(0x42))
	mustWrite(t, fob.SetFeatureSig(1, bytes.Repeat([]byte{0x01}, 64)))
	mustWrite(t, fob.SetFeatureSig(2, bytes.Repeat([]byte{0x02}, 64)))
	mustWrite(t, fob.SetFeatureSig(3, bytes.Repeat([]byte{0x03}, 64)))
	mustWrite(t, fob.SetCarPublic(bytes.Repeat([]byte{0x04}, 64)))
	mustWrite(t, fob.SetPaired(true))

	return fob, salt, secret
}

func mustWrite(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
}

func TestPairingHappyPath(t *testing.T) {
	pin := []byte{0x11, 0x22, 0x33}
	pairedFob, _, secret := setupPairedFob(t, pin)
	unpairedFob := store.Fob{S: store.NewRAM()}
	mustWrite(t, unpairedFob.SetSalt(bytes.Repeat([]byte{0x07}, store.FobSaltLen)))

	ca, cb := net.Pipe()
	pairedBoard := link.NewIOStream(ca)
	unpairedBoard := link.NewIOStream(cb)

	paired := &Paired{Fob: pairedFob, Board: pairedBoard, Clock: &fakeClock{now: time.Unix(0, 0)}, LED: indicator.Noop{}}
	unpaired := &Unpaired{Fob: unpairedFob, Board: unpairedBoard}

	done := make(chan error, 1)
	go func() {
		syn, err := link.ExpectMagic(unpairedBoard, pairSynMagic)
		if err != nil {
			done <- err
			return
		}
		done <- unpaired.HandlePairSyn(syn)
	}()

	if err := paired.HandlePairReq(pin); err != nil {
		t.Fatalf("paired handler: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("unpaired handler: %v", err)
	}

	paired2, err := unpairedFob.IsPaired()
	if err != nil || !paired2 {
		t.Fatalf("expected unpaired fob to become paired, err=%v", err)
	}

	gotSecret, err := unpairedFob.Secret()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotSecret, secret) {
		t.Fatalf("secret mismatch: got %x want %x", gotSecret, secret)
	}
}

func TestPairingWrongPIN(t *testing.T) {
	correctPin := []byte{0x11, 0x22, 0x33}
	wrongPin := []byte{0x11, 0x22, 0x34}
	pairedFob, _, _ := setupPairedFob(t, correctPin)
	unpairedFob := store.Fob{S: store.NewRAM()}
	mustWrite(t, unpairedFob.SetSalt(bytes.Repeat([]byte{0x07}, store.FobSaltLen)))

	ca, cb := net.Pipe()
	pairedBoard := link.NewIOStream(ca)
	unpairedBoard := link.NewIOStream(cb)

	clock := &fakeClock{now: time.Unix(0, 0)}
	paired := &Paired{Fob: pairedFob, Board: pairedBoard, Clock: clock, LED: indicator.Noop{}}
	unpaired := &Unpaired{Fob: unpairedFob, Board: unpairedBoard}

	done := make(chan error, 1)
	go func() {
		syn, err := link.ExpectMagic(unpairedBoard, pairSynMagic)
		if err != nil {
			done <- err
			return
		}
		done <- unpaired.HandlePairSyn(syn)
	}()

	err := paired.HandlePairReq(wrongPin)
	if err != ErrWrongPIN {
		t.Fatalf("expected ErrWrongPIN, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("unpaired handler: %v", err)
	}

	wantMinimum := Budget + Penalty
	if clock.slept < wantMinimum {
		t.Fatalf("expected wall-clock cost >= %v, got %v", wantMinimum, clock.slept)
	}

	paired2, err := unpairedFob.IsPaired()
	if err != nil {
		t.Fatal(err)
	}
	if paired2 {
		t.Fatal("expected unpaired fob to remain unpaired after a wrong PIN")
	}

	secret, err := unpairedFob.Secret()
	if err != nil {
		t.Fatal(err)
	}
	for _, b := range secret {
		if b != 0 {
			t.Fatal("expected unpaired fob secret to be untouched after a wrong PIN")
		}
	}
}

// TestPairingIgnoresReplayWhenAlreadyPaired covers spec.md §8: a captured
// PAIR_FIN replayed at a fob that is already paired must have no effect.
func TestPairingIgnoresReplayWhenAlreadyPaired(t *testing.T) {
	pin := []byte{0x11, 0x22, 0x33}
	targetFob, _, _ := setupPairedFob(t, pin)
	origSecretEnc, err := targetFob.SecretEnc()
	if err != nil {
		t.Fatal(err)
	}
	origCarID, err := targetFob.CarID()
	if err != nil {
		t.Fatal(err)
	}
	origPinHash, err := targetFob.PinHash()
	if err != nil {
		t.Fatal(err)
	}

	ca, cb := net.Pipe()
	targetBoard := link.NewIOStream(ca)
	attackerBoard := link.NewIOStream(cb)
	defer ca.Close()
	defer cb.Close()

	target := &Unpaired{Fob: targetFob, Board: targetBoard}

	done := make(chan error, 1)
	go func() { done <- target.HandlePairSyn(pin) }()

	if err := <-done; err != nil {
		t.Fatalf("HandlePairSyn on an already-paired fob: %v", err)
	}

	if attackerBoard.Available() {
		t.Fatal("expected an already-paired fob not to reply to PAIR_SYN at all")
	}

	stillPaired, err := targetFob.IsPaired()
	if err != nil || !stillPaired {
		t.Fatalf("expected fob to remain paired, err=%v", err)
	}

	gotSecretEnc, err := targetFob.SecretEnc()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotSecretEnc, origSecretEnc) {
		t.Fatal("expected secret_enc to be untouched by a replayed PAIR_SYN")
	}

	gotCarID, err := targetFob.CarID()
	if err != nil {
		t.Fatal(err)
	}
	if gotCarID != origCarID {
		t.Fatal("expected car_id to be untouched by a replayed PAIR_SYN")
	}

	gotPinHash, err := targetFob.PinHash()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotPinHash, origPinHash) {
		t.Fatal("expected pin_hash to be untouched by a replayed PAIR_SYN")
	}
}
