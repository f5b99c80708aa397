package unlock

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/usbarmory/keyfob/entropy"
	"github.com/usbarmory/keyfob/indicator"
	"github.com/usbarmory/keyfob/link"
	"github.com/usbarmory/keyfob/link/proto"
	"github.com/usbarmory/keyfob/sign"
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

type fakeTick struct{ v uint64 }

func (f fakeTick) Sample() uint64 { return f.v }

func genKey(t *testing.T, scalar byte) (sk []byte, pk []byte) {
	t.Helper()
	sk = bytes.Repeat([]byte{scalar}, sign.ScalarLen)
	priv, err := sign.PrivateKeyFromScalar(sk)
	if err != nil {
		t.Fatalf("bad test scalar: %v", err)
	}
	return sk, sign.MarshalPublicKey(&priv.PublicKey)
}

func mustWrite(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
}

func featureMsg(carID, n uint32) []byte {
	msg := make([]byte, 8)
	binary.BigEndian.PutUint32(msg[0:4], carID)
	binary.BigEndian.PutUint32(msg[4:8], n)
	return msg
}

type harness struct {
	car        *Car
	fob        *Fob
	hostPeer   *link.IOStream
	carSK      []byte
	carPK      []byte
	fobSK      []byte
	fobPK      []byte
	manufSK    []byte
	manufPK    []byte
}

func setup(t *testing.T) *harness {
	t.Helper()

	carSK, carPK := genKey(t, 0x01)
	fobSK, fobPK := genKey(t, 0x02)
	manufSK, manufPK := genKey(t, 0x03)

	carStore := store.Car{S: store.NewRAM()}
	mustWrite(t, carStore.SetSecret(carSK))
	mustWrite(t, carStore.SetFobPublic(fobPK))
	mustWrite(t, carStore.SetManufacturerPublic(manufPK))
	mustWrite(t, carStore.SetCarID(0x42))
	mustWrite(t, carStore.SetMsgUnlock(bytes.Repeat([]byte{'U'}, store.CarMsgLen)))
	mustWrite(t, carStore.SetMsgFeat(1, bytes.Repeat([]byte{'1'}, store.CarMsgLen)))
	mustWrite(t, carStore.SetMsgFeat(2, bytes.Repeat([]byte{'2'}, store.CarMsgLen)))
	mustWrite(t, carStore.SetMsgFeat(3, bytes.Repeat([]byte{'3'}, store.CarMsgLen)))

	fobStore := store.Fob{S: store.NewRAM()}
	mustWrite(t, fobStore.SetSecret(fobSK))
	mustWrite(t, fobStore.SetCarPublic(carPK))

	boardA, boardB := net.Pipe()
	carBoard := link.NewIOStream(boardA)
	fobBoard := link.NewIOStream(boardB)

	hostA, hostB := net.Pipe()
	carHost := link.NewIOStream(hostA)
	hostPeer := link.NewIOStream(hostB)

	var seed [32]byte
	seed[0] = 0xAB

	car := &Car{
		Store:  carStore,
		Host:   carHost,
		Board:  carBoard,
		Stream: entropy.New(seed),
		Tick:   fakeTick{v: 0xdeadbeef},
		Clock:  &fakeClock{now: time.Unix(0, 0)},
		LED:    indicator.Noop{},
	}
	fob := &Fob{Store: fobStore, Board: fobBoard, LED: indicator.Noop{}}

	return &harness{
		car: car, fob: fob, hostPeer: hostPeer,
		carSK: carSK, carPK: carPK,
		fobSK: fobSK, fobPK: fobPK,
		manufSK: manufSK, manufPK: manufPK,
	}
}

func TestUnlockHappyPath(t *testing.T) {
	h := setup(t)

	done := make(chan error, 1)
	go func() { done <- h.fob.OnSwitchPress() }()

	if err := h.car.HandleUnlockReq(); err != nil {
		t.Fatalf("car handler: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("fob handler: %v", err)
	}

	flag := make([]byte, store.CarMsgLen)
	if err := h.hostPeer.ReadExact(flag); err != nil {
		t.Fatalf("read unlock flag: %v", err)
	}
	if !bytes.Equal(flag, bytes.Repeat([]byte{'U'}, store.CarMsgLen)) {
		t.Fatalf("unexpected unlock flag: %x", flag)
	}
}

// TestFobRejectsTamperedChallenge drives the fob side directly against a
// synthetic UNLOCK_CHAL whose signature has been bit-flipped, without a
// live car on the other end: this is the "bit-flip on the wire" scenario
// from spec.md §8.
func TestFobRejectsTamperedChallenge(t *testing.T) {
	h := setup(t)

	boardA, boardB := net.Pipe()
	h.fob.Board = link.NewIOStream(boardB)
	peer := link.NewIOStream(boardA)

	var nonce [proto.NonceLen]byte
	binary.BigEndian.PutUint64(nonce[:], 0x0102030405060708)

	sig, err := sign.Sign(h.carSK, nonce[:])
	if err != nil {
		t.Fatal(err)
	}
	sig[0] ^= 0x01 // flip one bit

	chal := append(append([]byte{}, nonce[:]...), sig...)

	done := make(chan error, 1)
	go func() { done <- h.fob.OnSwitchPress() }()

	if _, err := link.ExpectMagic(peer, proto.UnlockReq); err != nil {
		t.Fatalf("expect UNLOCK_REQ: %v", err)
	}
	if err := link.WriteFrame(peer, proto.UnlockChal, chal); err != nil {
		t.Fatalf("write UNLOCK_CHAL: %v", err)
	}

	magic, _, err := link.ReadMagic(peer)
	if err != nil {
		t.Fatalf("read fob response: %v", err)
	}
	if magic != proto.UnlockRst {
		t.Fatalf("expected UNLOCK_RST, got 0x%02x", byte(magic))
	}

	if err := <-done; err != ErrChallengeVerificationFailed {
		t.Fatalf("expected ErrChallengeVerificationFailed, got %v", err)
	}
}

// TestCarRejectsTamperedResponse drives the car side directly against a
// synthetic UNLOCK_RESP carrying a signature that does not verify, and
// checks the car waits out its full budget, applies the penalty sleep, and
// emits UNLOCK_RST instead of the unlock flag.
func TestCarRejectsTamperedResponse(t *testing.T) {
	h := setup(t)
	clock := h.car.Clock.(*fakeClock)

	boardA, boardB := net.Pipe()
	h.car.Board = link.NewIOStream(boardA)
	peer := link.NewIOStream(boardB)

	done := make(chan error, 1)
	go func() { done <- h.car.HandleUnlockReq() }()

	_, payload, err := link.ReadMagic(peer)
	if err != nil {
		t.Fatalf("read UNLOCK_CHAL: %v", err)
	}
	if len(payload) != proto.UnlockChalLen {
		t.Fatalf("unexpected UNLOCK_CHAL length: %d", len(payload))
	}

	bogusSig := bytes.Repeat([]byte{0xEE}, sign.SignatureLen)
	resp := append(append([]byte{}, payload[:proto.NonceLen]...), bogusSig...)

	if err := link.WriteFrame(peer, proto.UnlockResp, resp); err != nil {
		t.Fatalf("write UNLOCK_RESP: %v", err)
	}

	magic, _, err := link.ReadMagic(peer)
	if err != nil {
		t.Fatalf("read car response: %v", err)
	}
	if magic != proto.UnlockRst {
		t.Fatalf("expected UNLOCK_RST, got 0x%02x", byte(magic))
	}

	if err := <-done; err != ErrUnlockRejected {
		t.Fatalf("expected ErrUnlockRejected, got %v", err)
	}

	wantMinimum := Budget + Penalty
	if clock.slept < wantMinimum {
		t.Fatalf("expected wall-clock cost >= %v, got %v", wantMinimum, clock.slept)
	}
}

func TestFeaturePhaseVerifiesManufacturerSignatures(t *testing.T) {
	h := setup(t)

	sig1, err := sign.Sign(h.manufSK, featureMsg(0x42, 1))
	if err != nil {
		t.Fatal(err)
	}
	sig3, err := sign.Sign(h.manufSK, featureMsg(0x42, 3))
	if err != nil {
		t.Fatal(err)
	}
	// Feature 2's token is bogus and must stay silent on the host link.
	sig2 := bytes.Repeat([]byte{0xFF}, sign.SignatureLen)

	mustWrite(t, h.fob.Store.SetFeatureSig(1, sig1))
	mustWrite(t, h.fob.Store.SetFeatureSig(2, sig2))
	mustWrite(t, h.fob.Store.SetFeatureSig(3, sig3))

	done := make(chan error, 1)
	go func() { done <- h.fob.OnSwitchPress() }()

	if err := h.car.HandleUnlockReq(); err != nil {
		t.Fatalf("car handler: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("fob handler: %v", err)
	}

	flag := make([]byte, store.CarMsgLen)
	if err := h.hostPeer.ReadExact(flag); err != nil {
		t.Fatalf("read unlock flag: %v", err)
	}

	gotFeat1 := make([]byte, store.CarMsgLen)
	if err := h.hostPeer.ReadExact(gotFeat1); err != nil {
		t.Fatalf("read feature 1 flag: %v", err)
	}
	if !bytes.Equal(gotFeat1, bytes.Repeat([]byte{'1'}, store.CarMsgLen)) {
		t.Fatalf("expected feature 1 flag, got %x", gotFeat1)
	}

	gotFeat3 := make([]byte, store.CarMsgLen)
	if err := h.hostPeer.ReadExact(gotFeat3); err != nil {
		t.Fatalf("read feature 3 flag: %v", err)
	}
	if !bytes.Equal(gotFeat3, bytes.Repeat([]byte{'3'}, store.CarMsgLen)) {
		t.Fatalf("expected feature 3 flag, got %x", gotFeat3)
	}
}
