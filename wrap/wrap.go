// PIN-derived hash and key-wrap primitives.
// https://github.com/usbarmory/keyfob
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package wrap implements the two SHA-256 constructions that stand between
// a PIN and a fob's private key (spec.md §3, §4.5, §9): a salted
// verification hash, and a one-shot XOR wrap of the private scalar. Note
// the byte orders differ between the two — PinHash salts before the PIN,
// Key salts after — and both must be preserved exactly for
// interoperability with any other implementation of this protocol.
package wrap

import (
	"crypto/sha256"
	"crypto/subtle"
)

// PinHash returns SHA256(salt || 0x00 || pin), compared against the
// stored pin_hash in full-length constant-time equality.
func PinHash(salt, pin []byte) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte{0x00})
	h.Write(pin)
	return h.Sum(nil)
}

// Key returns SHA256(pin || 0x00 || salt), the one-shot XOR key wrapping
// fob_secret_enc. This construction is the weakest link in the system's
// threat model (spec.md §9) — it is secure only because of the PIN space
// and the pairing rate limits, and must not be generalised to other uses.
func Key(pin, salt []byte) []byte {
	h := sha256.New()
	h.Write(pin)
	h.Write([]byte{0x00})
	h.Write(salt)
	return h.Sum(nil)
}

// XOR returns a ^ b, truncated to the shorter of the two operands' length
// (both are always 32-byte SHA-256 outputs in this protocol).
func XOR(a, b []byte) []byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	out := make([]byte, n)
	subtle.XORBytes(out, a[:n], b[:n])

	return out
}

// Equal reports whether a and b are identical, in full-length constant
// time regardless of where they first differ — required for the pin_hash
// comparison (spec.md §4.5.1).
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
