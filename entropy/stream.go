package entropy

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/hkdf"
)

// domainCSPRNG separates the keystream key from any other key the pool
// output might one day be asked to derive.
const domainCSPRNG = "keyfob-csprng-key-v1"

// Stream is a 256-bit-seeded counter-mode CSPRNG. It drives both the
// challenge nonce and the per-signature scalar ECDSA consumes as its
// randomness source (see sign.SignWithRand), the way the teacher's own
// packages keep a single PRNG behind a swappable backend
// (internal/rng.GetRandomDataFn).
type Stream struct {
	ks cipher.Stream
}

// New returns a Stream keyed from seed via HKDF-Expand, rather than a raw
// truncation, so the AES-128 key is domain-separated from the pool output
// in case the same seed is ever used to derive something else.
func New(seed [32]byte) *Stream {
	key := make([]byte, 16)
	kdf := hkdf.New(sha256.New, seed[:], nil, []byte(domainCSPRNG))
	if _, err := io.ReadFull(kdf, key); err != nil {
		// hkdf.New only fails once its output is exhausted, which lies
		// far beyond the 16 bytes drawn here.
		panic(err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		// aes.NewCipher only fails on a bad key length, impossible here.
		panic(err)
	}

	var iv [16]byte
	return &Stream{ks: cipher.NewCTR(block, iv[:])}
}

// NewZero returns the deterministic zero-seeded stream a fob may use in
// place of the car's full-quality pool (spec.md §4.2).
func NewZero() *Stream {
	var zero [32]byte
	return New(zero)
}

// Read fills p with keystream output, satisfying io.Reader so a Stream can
// be passed directly as crypto/ecdsa's randomness source.
func (s *Stream) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	s.ks.XORKeyStream(p, p)
	return len(p), nil
}

// Uint64 draws the 8-byte big-endian challenge nonce.
func (s *Stream) Uint64() uint64 {
	var b [8]byte
	s.Read(b[:])
	return binary.BigEndian.Uint64(b[:])
}
