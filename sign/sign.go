// NIST P-256 ECDSA signing primitive.
// https://github.com/usbarmory/keyfob
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package sign implements the single cryptographic primitive this firmware
// core relies on: ECDSA over NIST P-256 with a SHA-256 pre-hash, untagged
// 64-byte signatures (r || s, each a 32-byte big-endian integer) and
// uncompressed 64-byte public keys (the affine X || Y coordinates, no 0x04
// prefix). See example/ecdsa.go in the framework for the stdlib idiom this
// package builds on.
package sign

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
	"math/big"
)

const (
	// ScalarLen is the length, in bytes, of a P-256 scalar (private key
	// or one half of a signature).
	ScalarLen = 32
	// PublicKeyLen is the length of an untagged uncompressed public key.
	PublicKeyLen = 2 * ScalarLen
	// SignatureLen is the length of an untagged r||s signature.
	SignatureLen = 2 * ScalarLen
)

var (
	ErrInvalidPrivateKey = errors.New("sign: invalid private scalar")
	ErrInvalidPublicKey  = errors.New("sign: invalid public key point")
	ErrInvalidSignature  = errors.New("sign: malformed signature")
)

var curve = elliptic.P256()

// PrivateKeyFromScalar rebuilds an *ecdsa.PrivateKey from a raw 32-byte
// big-endian scalar, the representation stored on both car and fob.
func PrivateKeyFromScalar(scalar []byte) (*ecdsa.PrivateKey, error) {
	if len(scalar) != ScalarLen {
		return nil, ErrInvalidPrivateKey
	}

	d := new(big.Int).SetBytes(scalar)
	if d.Sign() == 0 || d.Cmp(curve.Params().N) >= 0 {
		return nil, ErrInvalidPrivateKey
	}

	priv := new(ecdsa.PrivateKey)
	priv.PublicKey.Curve = curve
	priv.D = d
	priv.PublicKey.X, priv.PublicKey.Y = curve.ScalarBaseMult(scalar)

	return priv, nil
}

// PublicKeyFromPoint rebuilds an *ecdsa.PublicKey from the untagged 64-byte
// X||Y representation stored on the wire and in the store.
func PublicKeyFromPoint(point []byte) (*ecdsa.PublicKey, error) {
	if len(point) != PublicKeyLen {
		return nil, ErrInvalidPublicKey
	}

	x := new(big.Int).SetBytes(point[:ScalarLen])
	y := new(big.Int).SetBytes(point[ScalarLen:])

	if !curve.IsOnCurve(x, y) {
		return nil, ErrInvalidPublicKey
	}

	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

// MarshalPublicKey renders pub in the untagged 64-byte wire form.
func MarshalPublicKey(pub *ecdsa.PublicKey) []byte {
	out := make([]byte, PublicKeyLen)
	putScalar(out[:ScalarLen], pub.X)
	putScalar(out[ScalarLen:], pub.Y)
	return out
}

// Sign computes SHA-256(msg) and returns the untagged 64-byte r||s
// signature, drawing its per-signature nonce from crypto/rand. sk must be
// the raw 32-byte private scalar.
func Sign(sk []byte, msg []byte) ([]byte, error) {
	return SignWithRand(rand.Reader, sk, msg)
}

// SignWithRand is Sign with an explicit randomness source for the
// per-signature scalar — the car's entropy.Stream (full pool) or a fob's
// entropy.NewZero() stream (spec.md §4.2).
func SignWithRand(random io.Reader, sk []byte, msg []byte) ([]byte, error) {
	priv, err := PrivateKeyFromScalar(sk)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256(msg)

	r, s, err := ecdsa.Sign(random, priv, digest[:])
	if err != nil {
		return nil, err
	}

	out := make([]byte, SignatureLen)
	putScalar(out[:ScalarLen], r)
	putScalar(out[ScalarLen:], s)

	return out, nil
}

// Verify reports whether sig is a valid signature over msg under pk, the
// raw 64-byte uncompressed public key.
func Verify(pk []byte, msg []byte, sig []byte) bool {
	if len(sig) != SignatureLen {
		return false
	}

	pub, err := PublicKeyFromPoint(pk)
	if err != nil {
		return false
	}

	r := new(big.Int).SetBytes(sig[:ScalarLen])
	s := new(big.Int).SetBytes(sig[ScalarLen:])

	digest := sha256.Sum256(msg)

	return ecdsa.Verify(pub, digest[:], r, s)
}

func putScalar(dst []byte, v *big.Int) {
	b := v.Bytes()
	if len(b) > len(dst) {
		panic(ErrInvalidSignature)
	}
	copy(dst[len(dst)-len(b):], b)
}
