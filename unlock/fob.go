// Unlock protocol, fob side.
// https://github.com/usbarmory/keyfob
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package unlock

import (
	"encoding/binary"
	"errors"

	"github.com/usbarmory/keyfob/entropy"
	"github.com/usbarmory/keyfob/indicator"
	"github.com/usbarmory/keyfob/link"
	"github.com/usbarmory/keyfob/link/proto"
	"github.com/usbarmory/keyfob/sign"
	"github.com/usbarmory/keyfob/store"
)

// ErrChallengeVerificationFailed is returned (after UNLOCK_RST has already
// been sent) when the car's UNLOCK_CHAL signature did not verify.
var ErrChallengeVerificationFailed = errors.New("unlock: challenge did not verify")

// Fob drives the fob side of the unlock and feature-delivery protocol. It
// never needs hardware-quality randomness: its one signature is over a
// nonce the car already committed to, so a zero-seeded stream
// (entropy.NewZero) supplies the per-signature scalar (spec.md §4.2).
type Fob struct {
	Store store.Fob
	Board link.Stream
	LED   indicator.Indicator
}

// OnSwitchPress runs one full UNLOCK_REQ transaction from the fob side, as
// triggered by the unlock switch while paired.
func (f *Fob) OnSwitchPress() error {
	if f.LED != nil {
		f.LED.Busy(true)
		defer f.LED.Busy(false)
	}

	if err := link.WriteFrame(f.Board, proto.UnlockReq, nil); err != nil {
		return err
	}

	magic, payload, err := link.ReadMagic(f.Board)
	if err != nil {
		return err
	}
	if magic != proto.UnlockChal || len(payload) != proto.UnlockChalLen {
		return nil // desync or reset: abort silently
	}

	nonce := payload[:proto.NonceLen]
	chalSig := payload[proto.NonceLen:]

	carPublic, err := f.Store.CarPublic()
	if err != nil {
		return err
	}

	if !sign.Verify(carPublic, nonce, chalSig) {
		if f.LED != nil {
			f.LED.Fault(true)
			defer f.LED.Fault(false)
		}
		if err := link.WriteFrame(f.Board, proto.UnlockRst, nil); err != nil {
			return err
		}
		return ErrChallengeVerificationFailed
	}

	n := binary.BigEndian.Uint64(nonce)
	var next [proto.NonceLen]byte
	binary.BigEndian.PutUint64(next[:], n+1)

	fobSecret, err := f.Store.Secret()
	if err != nil {
		return err
	}

	respSig, err := sign.SignWithRand(entropy.NewZero(), fobSecret, next[:])
	if err != nil {
		return err
	}

	// The nonce field echoed back is advisory only: the car re-derives
	// N+1 itself and ignores this copy (spec.md §4.7.1).
	resp := append(append([]byte{}, nonce...), respSig...)
	if err := link.WriteFrame(f.Board, proto.UnlockResp, resp); err != nil {
		return err
	}

	magic, _, err = link.ReadMagic(f.Board)
	if err != nil {
		return err
	}
	if magic != proto.UnlockGood {
		return nil
	}

	return f.sendFeatures()
}

// sendFeatures emits the three persisted feature signatures after a
// successful unlock, in slot order.
func (f *Fob) sendFeatures() error {
	feat1, err := f.Store.FeatureSig(1)
	if err != nil {
		return err
	}
	feat2, err := f.Store.FeatureSig(2)
	if err != nil {
		return err
	}
	feat3, err := f.Store.FeatureSig(3)
	if err != nil {
		return err
	}

	payload := make([]byte, 0, proto.UnlockFeatLen)
	payload = append(payload, feat1...)
	payload = append(payload, feat2...)
	payload = append(payload, feat3...)

	return link.WriteFrame(f.Board, proto.UnlockFeat, payload)
}
