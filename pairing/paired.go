// Pairing protocol, paired-fob side.
// https://github.com/usbarmory/keyfob
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package pairing implements the four-message handshake that clones a
// paired fob onto a blank fob under PIN authentication (spec.md §4.5).
// Paired and Unpaired are independent, non-reentrant handlers: each runs to
// completion on a single PAIR_REQ or PAIR_SYN magic byte.
package pairing

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/usbarmory/keyfob/delay"
	"github.com/usbarmory/keyfob/indicator"
	"github.com/usbarmory/keyfob/link"
	"github.com/usbarmory/keyfob/link/proto"
	"github.com/usbarmory/keyfob/store"
	"github.com/usbarmory/keyfob/wrap"
)

const (
	// Budget is the total handler timer armed on PAIR_REQ (spec.md
	// §4.5.1). A successful pairing takes exactly this long; timing
	// must not distinguish match from PAIR_ACK being well-formed.
	Budget = 1 * time.Second
	// PreAckWait is how much of Budget elapses before the paired side
	// looks for PAIR_ACK — long enough that the unpaired fob has
	// finished sending it.
	PreAckWait = 800 * time.Millisecond
	// Penalty is the additional sleep applied on a wrong-PIN attempt,
	// on top of waiting out Budget, giving a wrong guess a wall-clock
	// cost of at least Budget+Penalty = 5s.
	Penalty = 4 * time.Second
)

// ErrWrongPIN is returned (after the handler has already paid the full
// timing penalty and sent PAIR_RST) when the supplied PIN did not match.
var ErrWrongPIN = errors.New("pairing: wrong pin")

// Paired drives the paired-fob side of the handshake.
type Paired struct {
	Fob   store.Fob
	Board link.Stream
	Clock delay.Clock
	LED   indicator.Indicator
}

// HandlePairReq runs the full paired-side handshake for one PAIR_REQ,
// given its 3-byte PIN payload. It is a closed transaction: every return
// path leaves persistent state unchanged, the paired fob never writes
// anything during pairing.
func (p *Paired) HandlePairReq(pin []byte) error {
	if p.LED != nil {
		p.LED.Busy(true)
		defer p.LED.Busy(false)
	}

	timer := delay.New(p.Clock)
	timer.Start(Budget)

	if err := link.WriteFrame(p.Board, proto.PairSyn, pin); err != nil {
		return err
	}

	salt, err := p.Fob.Salt()
	if err != nil {
		return err
	}
	h := wrap.PinHash(salt, pin)

	timer.WaitUntilElapsed(PreAckWait)

	if !p.Board.Available() {
		return nil // missing PAIR_ACK: abort silently
	}

	magic, _, err := link.ReadMagic(p.Board)
	if err != nil {
		return err
	}
	if magic != proto.PairAck {
		return nil // wrong magic: abort silently
	}

	stored, err := p.Fob.PinHash()
	if err != nil {
		return err
	}

	if !wrap.Equal(h, stored) {
		if p.LED != nil {
			p.LED.Fault(true)
			defer p.LED.Fault(false)
		}

		timer.Wait()
		p.Clock.Sleep(Penalty)

		if err := link.WriteFrame(p.Board, proto.PairRst, nil); err != nil {
			return err
		}

		return ErrWrongPIN
	}

	secretEnc, err := p.Fob.SecretEnc()
	if err != nil {
		return err
	}

	secret := wrap.XOR(secretEnc, wrap.Key(pin, salt))

	payload, err := p.finPayload(secret)
	if err != nil {
		return err
	}

	if err := link.WriteFrame(p.Board, proto.PairFin, payload); err != nil {
		return err
	}

	timer.Wait()

	return nil
}

// finPayload assembles the PAIR_FIN body: secret, car_id, feat_1..3_sig,
// car_public (spec.md §6).
func (p *Paired) finPayload(secret []byte) ([]byte, error) {
	carID, err := p.Fob.CarID()
	if err != nil {
		return nil, err
	}

	feat1, err := p.Fob.FeatureSig(1)
	if err != nil {
		return nil, err
	}
	feat2, err := p.Fob.FeatureSig(2)
	if err != nil {
		return nil, err
	}
	feat3, err := p.Fob.FeatureSig(3)
	if err != nil {
		return nil, err
	}

	carPublic, err := p.Fob.CarPublic()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, proto.PairFinLen)
	out = append(out, secret...)
	var idBuf [store.FobCarIDLen]byte
	binary.BigEndian.PutUint32(idBuf[:], carID)
	out = append(out, idBuf[:]...)
	out = append(out, feat1...)
	out = append(out, feat2...)
	out = append(out, feat3...)
	out = append(out, carPublic...)

	return out, nil
}
