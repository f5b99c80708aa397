// One-shot delay timer.
// https://github.com/usbarmory/keyfob
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package delay implements the one-shot budget timer every protocol
// handler uses to rate-limit guessing and bound its own runtime (spec.md
// §4.4, §4.8). Only one delay is ever active per Timer.
package delay

import "time"

// Clock abstracts wall-clock access so tests can assert the *500ms, 5s*
// style timing invariants from spec.md §8 without actually sleeping.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// RealClock is the Clock backed by the Go runtime's own timers — used by
// both the bare metal and host-simulation builds, since neither needs
// hardware-specific sleep (unlike the byte-level transport, a missed
// microsecond here and there does not affect protocol correctness, only
// the rate-limit bound).
type RealClock struct{}

func (RealClock) Now() time.Time       { return time.Now() }
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }

// Timer is a one-shot budget: Start records a deadline, Remaining reports
// time left, Wait blocks until the deadline passes.
type Timer struct {
	clock    Clock
	start    time.Time
	deadline time.Time
}

// New returns a Timer driven by clock.
func New(clock Clock) *Timer {
	return &Timer{clock: clock}
}

// Start begins a new budget of duration d, replacing any budget already in
// flight.
func (t *Timer) Start(d time.Duration) {
	t.start = t.clock.Now()
	t.deadline = t.start.Add(d)
}

// Remaining returns the time left in the current budget, zero or negative
// once expired.
func (t *Timer) Remaining() time.Duration {
	return t.deadline.Sub(t.clock.Now())
}

// Wait blocks until the current budget has fully elapsed.
func (t *Timer) Wait() {
	if d := t.Remaining(); d > 0 {
		t.clock.Sleep(d)
	}
}

// Elapsed returns the time passed since Start.
func (t *Timer) Elapsed() time.Duration {
	return t.clock.Now().Sub(t.start)
}

// WaitUntilElapsed blocks until d has passed since Start — used for the
// constant-time mid-budget rate-limit waits the pairing and enrolment
// handlers perform (spec.md §4.5.1, §4.6), distinct from waiting out the
// full budget.
func (t *Timer) WaitUntilElapsed(d time.Duration) {
	if remaining := d - t.Elapsed(); remaining > 0 {
		t.clock.Sleep(remaining)
	}
}
