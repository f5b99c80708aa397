// Top-level dispatch loops for the three firmware personalities.
// https://github.com/usbarmory/keyfob
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package device implements the cooperative poll loop shared by all three
// personalities (spec.md §2, §4.8): check the host stream, check the board
// stream, check the switch (fob only). A recognised magic byte runs its
// handler to completion before the loop resumes polling; an unrecognised
// one is discarded silently. There is no reentrancy and no task split —
// the loop is a straight-line procedure, matching the source's own tight
// polling shape (spec.md §9).
package device

import (
	"github.com/usbarmory/keyfob/feature"
	"github.com/usbarmory/keyfob/indicator"
	"github.com/usbarmory/keyfob/link"
	"github.com/usbarmory/keyfob/link/proto"
	"github.com/usbarmory/keyfob/pairing"
	"github.com/usbarmory/keyfob/unlock"
)

// Car is the top-level dispatch loop for the car personality: it only
// listens on the board link, for UNLOCK_REQ.
type Car struct {
	Board  link.Stream
	Unlock *unlock.Car
	LED    indicator.Indicator
}

// Poll runs at most one handler, if the board link has a frame ready.
func (c *Car) Poll() error {
	if !c.Board.Available() {
		if c.LED != nil {
			c.LED.Ready(true)
		}
		return nil
	}

	magic, _, err := link.ReadMagic(c.Board)
	if err != nil {
		return err
	}

	if magic != proto.UnlockReq {
		return nil // unrecognised or out-of-sequence magic: discard
	}

	if c.LED != nil {
		c.LED.Ready(false)
	}

	err = c.Unlock.HandleUnlockReq()
	if err == unlock.ErrUnlockRejected {
		return nil
	}
	return err
}

// Run polls in a tight loop until stop is closed.
func (c *Car) Run(stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		if err := c.Poll(); err != nil {
			return err
		}
	}
}

// PairedFob is the top-level dispatch loop for a paired fob: it listens on
// the host link for PAIR_REQ and ENAB_FEAT, and on the switch for an
// unlock attempt.
type PairedFob struct {
	Host      link.Stream
	Board     link.Stream
	Pairing   *pairing.Paired
	Enrolment *feature.Enrolment
	Unlock    *unlock.Fob
	Switch    Switch
	LED       indicator.Indicator

	edge *edgeSwitch
}

// Poll runs at most one handler, in host / board / switch priority order.
func (p *PairedFob) Poll() error {
	if p.edge == nil && p.Switch != nil {
		p.edge = newEdgeSwitch(p.Switch)
	}

	if p.Host != nil && p.Host.Available() {
		return p.pollHost()
	}

	if p.Board.Available() {
		// A paired fob initiates pairing and unlock itself; it never
		// expects an unsolicited board frame outside those handlers.
		// Drain and discard per spec.md §7's desync handling.
		if _, _, err := link.ReadMagic(p.Board); err != nil {
			return err
		}
		return nil
	}

	if p.edge != nil && p.edge.Fired() {
		if p.LED != nil {
			p.LED.Ready(false)
		}
		err := p.Unlock.OnSwitchPress()
		if err == unlock.ErrChallengeVerificationFailed {
			return nil
		}
		return err
	}

	if p.LED != nil {
		p.LED.Ready(true)
	}
	return nil
}

func (p *PairedFob) pollHost() error {
	magic, payload, err := link.ReadMagic(p.Host)
	if err != nil {
		return err
	}

	if p.LED != nil {
		p.LED.Ready(false)
	}

	switch magic {
	case proto.PairReq:
		err := p.Pairing.HandlePairReq(payload)
		if err == pairing.ErrWrongPIN {
			return nil
		}
		return err
	case proto.EnabFeat:
		err := p.Enrolment.HandleEnabFeat(payload)
		if err == feature.ErrInvalidFeatureNumber {
			return nil
		}
		return err
	default:
		return nil
	}
}

// Run polls in a tight loop until stop is closed.
func (p *PairedFob) Run(stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		if err := p.Poll(); err != nil {
			return err
		}
	}
}

// UnpairedFob is the top-level dispatch loop for a blank fob: it only
// listens on the board link, for PAIR_SYN from a paired fob.
type UnpairedFob struct {
	Board   link.Stream
	Pairing *pairing.Unpaired
	LED     indicator.Indicator
}

// Poll runs at most one handler, if the board link has a frame ready.
func (u *UnpairedFob) Poll() error {
	if !u.Board.Available() {
		if u.LED != nil {
			u.LED.Ready(true)
		}
		return nil
	}

	magic, payload, err := link.ReadMagic(u.Board)
	if err != nil {
		return err
	}

	if magic != proto.PairSyn {
		return nil
	}

	if u.LED != nil {
		u.LED.Ready(false)
	}

	return u.Pairing.HandlePairSyn(payload)
}

// Run polls in a tight loop until stop is closed.
func (u *UnpairedFob) Run(stop <-chan struct{}) error {
	for {
		select {
		case <-stop:
			return nil
		default:
		}
		if err := u.Poll(); err != nil {
			return err
		}
	}
}
