package pairing

import (
	"encoding/binary"
	"errors"

	"github.com/usbarmory/keyfob/link"
	"github.com/usbarmory/keyfob/link/proto"
	"github.com/usbarmory/keyfob/store"
	"github.com/usbarmory/keyfob/wrap"
)

// ErrMalformedFin is returned when a PAIR_FIN payload is the wrong length
// to have come from link.ReadMagic, which should never happen given the
// fixed-length framing, but is checked defensively before any store write.
var ErrMalformedFin = errors.New("pairing: malformed PAIR_FIN payload")

// Unpaired drives the unpaired (blank) fob side of the handshake.
type Unpaired struct {
	Fob   store.Fob
	Board link.Stream
}

// HandlePairSyn runs the full unpaired-side handshake for one PAIR_SYN,
// given its 3-byte PIN payload. An already-paired fob ignores PAIR_SYN
// entirely (spec.md §8): replaying a captured PAIR_FIN at it must not
// overwrite its cloned identity.
func (u *Unpaired) HandlePairSyn(pin []byte) error {
	paired, err := u.Fob.IsPaired()
	if err != nil {
		return err
	}
	if paired {
		return nil
	}

	if err := link.WriteFrame(u.Board, proto.PairAck, nil); err != nil {
		return err
	}

	magic, payload, err := link.ReadMagic(u.Board)
	if err != nil {
		return err
	}

	switch magic {
	case proto.PairFin:
		return u.commit(pin, payload)
	case proto.PairRst:
		return nil
	default:
		return nil // unexpected magic: abort silently
	}
}

// commit persists the cloned identity. Every write up to and including
// is_paired happens here; is_paired is written last so a crash mid-commit
// leaves the device indistinguishable from a failed attempt (spec.md
// §4.5.2).
func (u *Unpaired) commit(pin, payload []byte) error {
	if len(payload) != proto.PairFinLen {
		return ErrMalformedFin
	}

	secret := payload[0:32]
	carID := binary.BigEndian.Uint32(payload[32:36])
	feat1 := payload[36:100]
	feat2 := payload[100:164]
	feat3 := payload[164:228]
	carPublic := payload[228:292]

	salt, err := u.Fob.Salt()
	if err != nil {
		return err
	}

	pinHash := wrap.PinHash(salt, pin)
	secretEnc := wrap.XOR(secret, wrap.Key(pin, salt))

	if err := u.Fob.SetSecret(secret); err != nil {
		return err
	}
	if err := u.Fob.SetCarID(carID); err != nil {
		return err
	}
	if err := u.Fob.SetFeatureSig(1, feat1); err != nil {
		return err
	}
	if err := u.Fob.SetFeatureSig(2, feat2); err != nil {
		return err
	}
	if err := u.Fob.SetFeatureSig(3, feat3); err != nil {
		return err
	}
	if err := u.Fob.SetCarPublic(carPublic); err != nil {
		return err
	}
	if err := u.Fob.SetPinHash(pinHash); err != nil {
		return err
	}
	if err := u.Fob.SetSecretEnc(secretEnc); err != nil {
		return err
	}

	// Must be last: this is the single bit that distinguishes a
	// successfully cloned fob from a crashed-mid-commit one.
	return u.Fob.SetPaired(true)
}
