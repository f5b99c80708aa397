package device

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"github.com/usbarmory/keyfob/entropy"
	"github.com/usbarmory/keyfob/feature"
	"github.com/usbarmory/keyfob/indicator"
	"github.com/usbarmory/keyfob/link"
	"github.com/usbarmory/keyfob/link/proto"
	"github.com/usbarmory/keyfob/pairing"
	"github.com/usbarmory/keyfob/sign"
	"github.com/usbarmory/keyfob/store"
	"github.com/usbarmory/keyfob/unlock"
	"github.com/usbarmory/keyfob/wrap"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time        { return f.now }
func (f *fakeClock) Sleep(d time.Duration) { f.now = f.now.Add(d) }

type fakeTick struct{ v uint64 }

func (f fakeTick) Sample() uint64 { return f.v }

func mustWrite(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected store error: %v", err)
	}
}

func genKey(t *testing.T, scalar byte) (sk []byte, pk []byte) {
	t.Helper()
	sk = bytes.Repeat([]byte{scalar}, sign.ScalarLen)
	priv, err := sign.PrivateKeyFromScalar(sk)
	if err != nil {
		t.Fatalf("bad test scalar: %v", err)
	}
	return sk, sign.MarshalPublicKey(&priv.PublicKey)
}

// waitFor busy-polls cond until it reports true or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for dispatch to settle")
		}
		time.Sleep(time.Millisecond)
	}
}

// TestDeviceDispatchPairing drives a PairedFob and an UnpairedFob through
// their top-level Run loops, reproducing a PAIR_REQ arriving on the host
// link and the handshake completing over the board link between them.
func TestDeviceDispatchPairing(t *testing.T) {
	pin := []byte{0x11, 0x22, 0x33}
	salt := bytes.Repeat([]byte{0x07}, store.FobSaltLen)
	secret := bytes.Repeat([]byte{0x42}, store.FobSecretLen)
	secretEnc := wrap.XOR(secret, wrap.Key(pin, salt))
	pinHash := wrap.PinHash(salt, pin)

	pairedStore := store.Fob{S: store.NewRAM()}
	mustWrite(t, pairedStore.SetSalt(salt))
	mustWrite(t, pairedStore.SetSecretEnc(secretEnc))
	mustWrite(t, pairedStore.SetPinHash(pinHash))
	mustWrite(t, pairedStore.SetCarID(0x42))
	mustWrite(t, pairedStore.SetFeatureSig(1, bytes.Repeat([]byte{0x01}, 64)))
	mustWrite(t, pairedStore.SetFeatureSig(2, bytes.Repeat([]byte{0x02}, 64)))
	mustWrite(t, pairedStore.SetFeatureSig(3, bytes.Repeat([]byte{0x03}, 64)))
	mustWrite(t, pairedStore.SetCarPublic(bytes.Repeat([]byte{0x04}, 64)))
	mustWrite(t, pairedStore.SetPaired(true))

	unpairedStore := store.Fob{S: store.NewRAM()}
	mustWrite(t, unpairedStore.SetSalt(salt))

	hostA, hostB := net.Pipe()
	pairedHost := link.NewIOStream(hostA)
	hostTool := link.NewIOStream(hostB)

	boardA, boardB := net.Pipe()
	pairedBoard := link.NewIOStream(boardA)
	unpairedBoard := link.NewIOStream(boardB)

	pairedFob := &PairedFob{
		Host:  pairedHost,
		Board: pairedBoard,
		Pairing: &pairing.Paired{
			Fob:   pairedStore,
			Board: pairedBoard,
			Clock: &fakeClock{now: time.Unix(0, 0)},
			LED:   indicator.Noop{},
		},
		LED: indicator.Noop{},
	}
	unpairedFob := &UnpairedFob{
		Board:   unpairedBoard,
		Pairing: &pairing.Unpaired{Fob: unpairedStore, Board: unpairedBoard},
		LED:     indicator.Noop{},
	}

	stopPaired := make(chan struct{})
	stopUnpaired := make(chan struct{})
	go pairedFob.Run(stopPaired)
	go unpairedFob.Run(stopUnpaired)
	defer close(stopPaired)
	defer close(stopUnpaired)

	if err := link.WriteFrame(hostTool, proto.PairReq, pin); err != nil {
		t.Fatalf("write PAIR_REQ: %v", err)
	}

	waitFor(t, func() bool {
		paired, err := unpairedStore.IsPaired()
		return err == nil && paired
	})
}

// TestDeviceDispatchUnlock drives a Car and a PairedFob through their
// top-level Run loops, triggered by a simulated switch press.
func TestDeviceDispatchUnlock(t *testing.T) {
	carSK, carPK := genKey(t, 0x01)
	fobSK, fobPK := genKey(t, 0x02)

	carStore := store.Car{S: store.NewRAM()}
	mustWrite(t, carStore.SetSecret(carSK))
	mustWrite(t, carStore.SetFobPublic(fobPK))
	mustWrite(t, carStore.SetManufacturerPublic(bytes.Repeat([]byte{0x00}, 64)))
	mustWrite(t, carStore.SetCarID(0x42))
	mustWrite(t, carStore.SetMsgUnlock(bytes.Repeat([]byte{'U'}, store.CarMsgLen)))

	fobStore := store.Fob{S: store.NewRAM()}
	mustWrite(t, fobStore.SetSecret(fobSK))
	mustWrite(t, fobStore.SetCarPublic(carPK))

	boardA, boardB := net.Pipe()
	carBoard := link.NewIOStream(boardA)
	fobBoard := link.NewIOStream(boardB)

	hostA, hostB := net.Pipe()
	carHostStream := link.NewIOStream(hostA)
	hostPeer := link.NewIOStream(hostB)

	var seed [32]byte
	seed[0] = 0xCD

	car := &Car{
		Board: carBoard,
		Unlock: &unlock.Car{
			Store:  carStore,
			Host:   carHostStream,
			Board:  carBoard,
			Stream: entropy.New(seed),
			Tick:   fakeTick{v: 7},
			Clock:  &fakeClock{now: time.Unix(0, 0)},
			LED:    indicator.Noop{},
		},
		LED: indicator.Noop{},
	}

	sw := &SimSwitch{}
	fob := &PairedFob{
		Board:  fobBoard,
		Unlock: &unlock.Fob{Store: fobStore, Board: fobBoard, LED: indicator.Noop{}},
		Switch: sw,
		LED:    indicator.Noop{},
	}

	stopCar := make(chan struct{})
	stopFob := make(chan struct{})
	go car.Run(stopCar)
	go fob.Run(stopFob)
	defer close(stopCar)
	defer close(stopFob)

	sw.Press()

	flag := make([]byte, store.CarMsgLen)
	if err := hostPeer.ReadExact(flag); err != nil {
		t.Fatalf("read unlock flag: %v", err)
	}
	if !bytes.Equal(flag, bytes.Repeat([]byte{'U'}, store.CarMsgLen)) {
		t.Fatalf("unexpected unlock flag: %x", flag)
	}
}

// TestDeviceFullLifecycle runs a blank fob through pairing, then feature
// enrolment, then a full unlock against a car — the end-to-end sequence
// spec.md §8 describes, with every timing budget driven by a fake clock so
// the whole thing completes in well under a second of wall-clock time.
func TestDeviceFullLifecycle(t *testing.T) {
	const carID = 0x42

	carSK, carPK := genKey(t, 0x01)
	fobSK, fobPK := genKey(t, 0x02)
	mfgSK, mfgPK := genKey(t, 0x03)

	pin := []byte{0x11, 0x22, 0x33}
	salt := bytes.Repeat([]byte{0x07}, store.FobSaltLen)
	secretEnc := wrap.XOR(fobSK, wrap.Key(pin, salt))
	pinHash := wrap.PinHash(salt, pin)

	factoryStore := store.Fob{S: store.NewRAM()}
	mustWrite(t, factoryStore.SetSalt(salt))
	mustWrite(t, factoryStore.SetSecretEnc(secretEnc))
	mustWrite(t, factoryStore.SetPinHash(pinHash))
	mustWrite(t, factoryStore.SetCarID(carID))
	mustWrite(t, factoryStore.SetCarPublic(carPK))
	mustWrite(t, factoryStore.SetPaired(true))

	blankStore := store.Fob{S: store.NewRAM()}
	mustWrite(t, blankStore.SetSalt(salt))

	// --- pairing: clone factoryStore onto blankStore ---

	hostA, hostB := net.Pipe()
	factoryHost := link.NewIOStream(hostA)
	hostTool := link.NewIOStream(hostB)

	pairBoardA, pairBoardB := net.Pipe()
	factoryBoard := link.NewIOStream(pairBoardA)
	blankBoard := link.NewIOStream(pairBoardB)

	factoryFob := &PairedFob{
		Host:  factoryHost,
		Board: factoryBoard,
		Pairing: &pairing.Paired{
			Fob:   factoryStore,
			Board: factoryBoard,
			Clock: &fakeClock{now: time.Unix(0, 0)},
			LED:   indicator.Noop{},
		},
		LED: indicator.Noop{},
	}
	blankFob := &UnpairedFob{
		Board:   blankBoard,
		Pairing: &pairing.Unpaired{Fob: blankStore, Board: blankBoard},
		LED:     indicator.Noop{},
	}

	stopFactory := make(chan struct{})
	stopBlank := make(chan struct{})
	go factoryFob.Run(stopFactory)
	go blankFob.Run(stopBlank)

	if err := link.WriteFrame(hostTool, proto.PairReq, pin); err != nil {
		t.Fatalf("write PAIR_REQ: %v", err)
	}
	waitFor(t, func() bool {
		paired, err := blankStore.IsPaired()
		return err == nil && paired
	})
	close(stopFactory)
	close(stopBlank)

	// blankStore is now the live paired fob for the rest of this test; its
	// board link is re-dedicated below, so pull it off the pairing pipe.

	// --- feature enrolment on the newly paired fob ---

	enabHostA, enabHostB := net.Pipe()
	fobHost := link.NewIOStream(enabHostA)
	enrolTool := link.NewIOStream(enabHostB)

	liveBoardA, liveBoardB := net.Pipe()
	fobBoard := link.NewIOStream(liveBoardA)
	carBoard := link.NewIOStream(liveBoardB)

	sw := &SimSwitch{}
	liveFob := &PairedFob{
		Host:  fobHost,
		Board: fobBoard,
		Enrolment: &feature.Enrolment{
			Fob:   blankStore,
			Host:  fobHost,
			Clock: &fakeClock{now: time.Unix(0, 0)},
			LED:   indicator.Noop{},
		},
		Unlock: &unlock.Fob{Store: blankStore, Board: fobBoard, LED: indicator.Noop{}},
		Switch: sw,
		LED:    indicator.Noop{},
	}

	stopLiveFob := make(chan struct{})
	go liveFob.Run(stopLiveFob)
	defer close(stopLiveFob)

	for i := uint32(1); i <= 3; i++ {
		msg := make([]byte, 8)
		binary.BigEndian.PutUint32(msg[0:4], carID)
		binary.BigEndian.PutUint32(msg[4:8], i)
		sig, err := sign.Sign(mfgSK, msg)
		if err != nil {
			t.Fatalf("sign feature %d: %v", i, err)
		}

		payload := make([]byte, 0, proto.EnabFeatLen)
		var idBuf, nBuf [4]byte
		binary.BigEndian.PutUint32(idBuf[:], carID)
		binary.BigEndian.PutUint32(nBuf[:], i)
		payload = append(payload, idBuf[:]...)
		payload = append(payload, nBuf[:]...)
		payload = append(payload, sig...)

		if err := link.WriteFrame(enrolTool, proto.EnabFeat, payload); err != nil {
			t.Fatalf("write ENAB_FEAT %d: %v", i, err)
		}

		magic, _, err := link.ReadMagic(enrolTool)
		if err != nil {
			t.Fatalf("read ENAB_FEAT %d response: %v", i, err)
		}
		if magic != proto.HostSuccess {
			t.Fatalf("feature %d enrolment rejected: magic=%x", i, magic)
		}
	}

	// --- unlock, using the now-enrolled fob against a car ---

	carStore := store.Car{S: store.NewRAM()}
	mustWrite(t, carStore.SetSecret(carSK))
	mustWrite(t, carStore.SetFobPublic(fobPK))
	mustWrite(t, carStore.SetManufacturerPublic(mfgPK))
	mustWrite(t, carStore.SetCarID(carID))
	mustWrite(t, carStore.SetMsgUnlock(bytes.Repeat([]byte{'U'}, store.CarMsgLen)))
	mustWrite(t, carStore.SetMsgFeat(1, bytes.Repeat([]byte{'1'}, store.CarMsgLen)))
	mustWrite(t, carStore.SetMsgFeat(2, bytes.Repeat([]byte{'2'}, store.CarMsgLen)))
	mustWrite(t, carStore.SetMsgFeat(3, bytes.Repeat([]byte{'3'}, store.CarMsgLen)))

	carHostA, carHostB := net.Pipe()
	carHostStream := link.NewIOStream(carHostA)
	carHostPeer := link.NewIOStream(carHostB)

	var seed [32]byte
	seed[0] = 0xEF

	car := &Car{
		Board: carBoard,
		Unlock: &unlock.Car{
			Store:  carStore,
			Host:   carHostStream,
			Board:  carBoard,
			Stream: entropy.New(seed),
			Tick:   fakeTick{v: 99},
			Clock:  &fakeClock{now: time.Unix(0, 0)},
			LED:    indicator.Noop{},
		},
		LED: indicator.Noop{},
	}

	stopCar := make(chan struct{})
	go car.Run(stopCar)
	defer close(stopCar)

	sw.Press()

	flag := make([]byte, store.CarMsgLen)
	if err := carHostPeer.ReadExact(flag); err != nil {
		t.Fatalf("read unlock flag: %v", err)
	}
	if !bytes.Equal(flag, bytes.Repeat([]byte{'U'}, store.CarMsgLen)) {
		t.Fatalf("unexpected unlock flag: %x", flag)
	}

	for i := 1; i <= 3; i++ {
		feat := make([]byte, store.CarMsgLen)
		if err := carHostPeer.ReadExact(feat); err != nil {
			t.Fatalf("read feature %d flag: %v", i, err)
		}
		want := bytes.Repeat([]byte{byte('0' + i)}, store.CarMsgLen)
		if !bytes.Equal(feat, want) {
			t.Fatalf("unexpected feature %d flag: %x", i, feat)
		}
	}
}
