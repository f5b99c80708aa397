// Entropy pool: RAM-at-boot, temperature noise and tick-timer mixing.
// https://github.com/usbarmory/keyfob
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package entropy combines three independent noise sources into a 256-bit
// seed and exposes the counter-mode stream this seed drives. See spec.md
// §4.2: the car must use the full pool, the fob may use a zero seed since
// its signatures are deterministic relative to the car-chosen nonce.
package entropy

import (
	"crypto/sha256"
	"encoding/binary"
)

const (
	tempSamples = 1024
	tempOctet   = 8
	tickSamples = 128
)

// BootRAM samples the 32 KiB of uninitialised on-chip RAM exactly once,
// before anything else writes to it.
type BootRAM interface {
	Sample() []byte
}

// TempSensor samples the on-chip temperature sensor. Each call is one of
// the eight simultaneous reads that make up one round of the 1024-round
// sampling loop below.
type TempSensor interface {
	Sample() byte
}

// TickTimer samples the free-running cycle counter.
type TickTimer interface {
	Sample() uint64
}

// Seed produces the 256-bit entropy-pool output by XOR-folding the digests
// of the three sources.
func Seed(ram BootRAM, temp TempSensor, tick TickTimer) [32]byte {
	ramDigest := sha256.Sum256(ram.Sample())
	tempDigest := foldTemp(temp)
	tickDigest := foldTick(tick)

	var seed [32]byte
	for i := range seed {
		seed[i] = ramDigest[i] ^ tempDigest[i] ^ tickDigest[i]
	}

	return seed
}

func foldTemp(temp TempSensor) [32]byte {
	h := sha256.New()

	for round := 0; round < tempSamples; round++ {
		for lane := 0; lane < tempOctet; lane++ {
			h.Write([]byte{temp.Sample()})
		}
	}

	var digest [32]byte
	copy(digest[:], h.Sum(nil))

	return digest
}

func foldTick(tick TickTimer) [32]byte {
	h := sha256.New()
	var buf [8]byte

	for i := 0; i < tickSamples; i++ {
		binary.BigEndian.PutUint64(buf[:], tick.Sample())
		h.Write(buf[:])
	}

	var digest [32]byte
	copy(digest[:], h.Sum(nil))

	return digest
}
