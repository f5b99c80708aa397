// Persistent key/car state for the keyfob firmware core.
// https://github.com/usbarmory/keyfob
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package store implements the fixed, word-addressed non-volatile map that
// backs both the Car and Fob personalities: identities, keys, salts, flags
// and flag strings. The layout never moves and is shared byte-for-byte by
// every implementation of this protocol (see Fob/Car offset tables).
package store

import (
	"errors"
	"fmt"
)

// Size is the total addressable span of the store, in bytes.
const Size = 2048

// Align is the required alignment, in bytes, of every offset and length.
const Align = 4

var (
	ErrMisaligned = errors.New("store: misaligned offset or length")
	ErrOutOfRange = errors.New("store: offset+len exceeds store size")
)

// Store is the persistent, word-addressed, non-volatile map. Implementations
// must make Write synchronous and durable on return — the store is the only
// long-lived source of identity in this system, there is no RAM cache.
type Store interface {
	// Read returns len bytes starting at offset. Reads of never-written
	// regions yield zeros.
	Read(offset, length int) ([]byte, error)
	// Write persists b at offset. Returns once durable.
	Write(offset int, b []byte) error
}

func checkBounds(offset, length int) error {
	if offset%Align != 0 || length%Align != 0 {
		return fmt.Errorf("%w: offset=%d len=%d", ErrMisaligned, offset, length)
	}
	if offset < 0 || length < 0 || offset+length > Size {
		return fmt.Errorf("%w: offset=%d len=%d", ErrOutOfRange, offset, length)
	}
	return nil
}

// RAM is an in-memory Store, backing both the host-simulation build and unit
// tests. The bare metal build instead persists to on-chip EEPROM/flash
// behind the same interface — board bring-up for that driver is out of
// scope for this core (spec.md §1).
type RAM struct {
	mem [Size]byte
}

// NewRAM returns a zeroed store.
func NewRAM() *RAM {
	return &RAM{}
}

func (s *RAM) Read(offset, length int) ([]byte, error) {
	if err := checkBounds(offset, length); err != nil {
		return nil, err
	}

	out := make([]byte, length)
	copy(out, s.mem[offset:offset+length])

	return out, nil
}

func (s *RAM) Write(offset int, b []byte) error {
	if err := checkBounds(offset, len(b)); err != nil {
		return err
	}

	copy(s.mem[offset:offset+len(b)], b)

	return nil
}
