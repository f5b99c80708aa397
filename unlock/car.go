// Unlock protocol, car side.
// https://github.com/usbarmory/keyfob
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package unlock implements the nonce challenge/response and feature
// delivery protocol that follows a successful pairing (spec.md §4.7). Car
// and Fob are independent, non-reentrant handlers, mirroring package
// pairing's split.
package unlock

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/usbarmory/keyfob/delay"
	"github.com/usbarmory/keyfob/entropy"
	"github.com/usbarmory/keyfob/indicator"
	"github.com/usbarmory/keyfob/link"
	"github.com/usbarmory/keyfob/link/proto"
	"github.com/usbarmory/keyfob/sign"
	"github.com/usbarmory/keyfob/store"
)

const (
	// Budget is the timer armed on UNLOCK_REQ; the car always waits it
	// out before acting on the verification result, so timing does not
	// distinguish a fast reject from a slow one (spec.md §4.7.1).
	Budget = 500 * time.Millisecond
	// Penalty is the additional sleep on a failed verification.
	Penalty = 4500 * time.Millisecond
)

// ErrUnlockRejected is returned (after UNLOCK_RST has already been sent)
// when the fob's response did not verify.
var ErrUnlockRejected = errors.New("unlock: response did not verify")

// Car drives the car side of the unlock and feature-delivery protocol.
type Car struct {
	Store  store.Car
	Host   link.Stream
	Board  link.Stream
	Stream *entropy.Stream
	Tick   entropy.TickTimer
	Clock  delay.Clock
	LED    indicator.Indicator
}

// HandleUnlockReq runs one full UNLOCK_REQ transaction: challenge, response
// verification, unlock-flag emission and the feature-delivery phase.
func (c *Car) HandleUnlockReq() error {
	if c.LED != nil {
		c.LED.Busy(true)
		defer c.LED.Busy(false)
	}

	timer := delay.New(c.Clock)
	timer.Start(Budget)

	secret, err := c.Store.Secret()
	if err != nil {
		return err
	}
	fobPublic, err := c.Store.FobPublic()
	if err != nil {
		return err
	}

	// N is re-mixed with a fresh tick sample on every unlock so two
	// back-to-back unlocks never repeat a nonce even if the pool output
	// were unchanged (spec.md §4.2).
	n := c.Stream.Uint64() ^ c.Tick.Sample()

	var nonce [proto.NonceLen]byte
	binary.BigEndian.PutUint64(nonce[:], n)

	chalSig, err := sign.SignWithRand(c.Stream, secret, nonce[:])
	if err != nil {
		return err
	}

	chal := append(append([]byte{}, nonce[:]...), chalSig...)
	if err := link.WriteFrame(c.Board, proto.UnlockChal, chal); err != nil {
		return err
	}

	magic, payload, err := link.ReadMagic(c.Board)
	if err != nil {
		return err
	}

	verified := false
	if magic == proto.UnlockResp && len(payload) == proto.UnlockRespLen {
		// The echoed nonce field (payload[:8]) is advisory only: the
		// car verifies against N+1 as it computed it, not whatever
		// the fob claims to have received.
		respSig := payload[proto.NonceLen:]

		var next [proto.NonceLen]byte
		binary.BigEndian.PutUint64(next[:], n+1)

		verified = sign.Verify(fobPublic, next[:], respSig)
	}

	timer.Wait()

	if !verified {
		if c.LED != nil {
			c.LED.Fault(true)
			defer c.LED.Fault(false)
		}

		c.Clock.Sleep(Penalty)

		if err := link.WriteFrame(c.Board, proto.UnlockRst, nil); err != nil {
			return err
		}
		return ErrUnlockRejected
	}

	msg, err := c.Store.MsgUnlock()
	if err != nil {
		return err
	}
	if err := c.Host.WriteAll(msg); err != nil {
		return err
	}

	if err := link.WriteFrame(c.Board, proto.UnlockGood, nil); err != nil {
		return err
	}

	return c.featurePhase()
}

// featurePhase reads the three feature signatures the fob sends after
// UNLOCK_GOOD and independently verifies each against manufacturer_public.
// Failures are silent: there is no RST for a failed feature token,
// only the absence of its host-side message (spec.md §4.7.1).
func (c *Car) featurePhase() error {
	payload, err := link.ExpectMagic(c.Board, proto.UnlockFeat)
	if err != nil {
		return err
	}

	manufacturerPublic, err := c.Store.ManufacturerPublic()
	if err != nil {
		return err
	}
	carID, err := c.Store.CarID()
	if err != nil {
		return err
	}

	for i := 1; i <= 3; i++ {
		sig := payload[(i-1)*sign.SignatureLen : i*sign.SignatureLen]

		msg := make([]byte, 4+4)
		binary.BigEndian.PutUint32(msg[0:4], carID)
		binary.BigEndian.PutUint32(msg[4:8], uint32(i))

		if !sign.Verify(manufacturerPublic, msg, sig) {
			continue
		}

		flag, err := c.Store.MsgFeat(i)
		if err != nil {
			return err
		}
		if err := c.Host.WriteAll(flag); err != nil {
			return err
		}
	}

	return nil
}
