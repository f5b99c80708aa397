// Status indicators.
// https://github.com/usbarmory/keyfob
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package indicator drives the three status roles every personality's
// dispatch loop reports through its LEDs (spec.md §2, §4.8): idle/ready
// while parked waiting for a magic byte or switch press, busy for the
// duration of a protocol handler, and fault while a penalty delay runs
// after a crypto failure or wrong-PIN attempt.
package indicator

// Indicator is the pure status-output side of a personality's LEDs —
// synchronous, no return state, matching spec.md §5's "LEDs are pure
// status indicators, written synchronously."
type Indicator interface {
	Ready(on bool)
	Busy(on bool)
	Fault(on bool)
}

// Noop discards every call; used by tests and any build that has not
// wired a board's LEDs.
type Noop struct{}

func (Noop) Ready(bool) {}
func (Noop) Busy(bool)  {}
func (Noop) Fault(bool) {}
