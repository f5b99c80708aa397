// Feature enrolment protocol, paired-fob side.
// https://github.com/usbarmory/keyfob
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package feature implements ENAB_FEAT handling (spec.md §4.6): a paired
// fob accepts a manufacturer-signed feature token from the host and
// persists it without verifying it — the fob has no manufacturer public
// key, only the car does, at unlock time.
package feature

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/usbarmory/keyfob/delay"
	"github.com/usbarmory/keyfob/indicator"
	"github.com/usbarmory/keyfob/link"
	"github.com/usbarmory/keyfob/link/proto"
	"github.com/usbarmory/keyfob/store"
)

// Pause is the fixed delay observed before acting on every ENAB_FEAT,
// valid or not. It rate-limits the host link and absorbs host-side
// timing noise (spec.md §4.6).
const Pause = 800 * time.Millisecond

// ErrInvalidFeatureNumber is returned when ENAB_FEAT names a feature
// slot outside {1,2,3}. HOST_FAILURE has already been sent by the time
// this is returned.
var ErrInvalidFeatureNumber = errors.New("feature: invalid feature number")

// ErrMalformedEnabFeat is returned when the ENAB_FEAT payload is the
// wrong length, which should never happen given fixed-length framing.
var ErrMalformedEnabFeat = errors.New("feature: malformed ENAB_FEAT payload")

// Enrolment drives the paired-fob side of feature enrolment.
type Enrolment struct {
	Fob   store.Fob
	Host  link.Stream
	Clock delay.Clock
	LED   indicator.Indicator
}

// HandleEnabFeat runs one ENAB_FEAT transaction given its 72-byte
// payload (car_id, feature_number, signature). The enclosed car_id is
// not checked against the fob's own identity: the signature it
// accompanies already binds car_id and feature_number together, and
// only the car verifies it, at unlock time.
func (e *Enrolment) HandleEnabFeat(payload []byte) error {
	if e.LED != nil {
		e.LED.Busy(true)
		defer e.LED.Busy(false)
	}

	e.Clock.Sleep(Pause)

	if len(payload) != proto.EnabFeatLen {
		return ErrMalformedEnabFeat
	}

	n := binary.BigEndian.Uint32(payload[4:8])
	sig := payload[8:72]

	if n < 1 || n > 3 {
		if err := link.WriteFrame(e.Host, proto.HostFailure, nil); err != nil {
			return err
		}
		return ErrInvalidFeatureNumber
	}

	if err := e.Fob.SetFeatureSig(int(n), sig); err != nil {
		return err
	}

	return link.WriteFrame(e.Host, proto.HostSuccess, nil)
}
