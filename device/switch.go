// Unlock switch abstraction.
// https://github.com/usbarmory/keyfob
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package device

// Switch reports the instantaneous level of the unlock push-button.
type Switch interface {
	Pressed() bool
}

// edgeSwitch turns a level-reporting Switch into an edge trigger: Fired
// reports true once per press, not once per poll the button happens to
// still be held down. Source drafts disagreed on whether the paired fob
// should debounce the switch (spec.md §9); this target picks edge
// detection, the simplest debounce that still prevents one press from
// firing the unlock handler on every poll iteration for as long as the
// button is held.
type edgeSwitch struct {
	sw  Switch
	was bool
}

func newEdgeSwitch(sw Switch) *edgeSwitch {
	return &edgeSwitch{sw: sw}
}

// Fired reports whether the button transitioned from released to pressed
// since the last call.
func (e *edgeSwitch) Fired() bool {
	now := e.sw.Pressed()
	fired := now && !e.was
	e.was = now
	return fired
}
