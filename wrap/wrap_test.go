package wrap

import (
	"bytes"
	"testing"
)

func TestXORUnwrapRoundTrip(t *testing.T) {
	secret := bytes.Repeat([]byte{0x11}, 32)
	pin := []byte{0x11, 0x22, 0x33}
	salt := bytes.Repeat([]byte{0x99}, 12)

	key := Key(pin, salt)
	enc := XOR(secret, key)

	recovered := XOR(enc, Key(pin, salt))
	if !bytes.Equal(recovered, secret) {
		t.Fatalf("round trip mismatch: got %x want %x", recovered, secret)
	}
}

func TestXORUnwrapFailsOnWrongPIN(t *testing.T) {
	secret := bytes.Repeat([]byte{0x11}, 32)
	salt := bytes.Repeat([]byte{0x99}, 12)

	enc := XOR(secret, Key([]byte{1, 2, 3}, salt))
	recovered := XOR(enc, Key([]byte{1, 2, 4}, salt))

	if bytes.Equal(recovered, secret) {
		t.Fatal("expected wrong PIN to fail to recover the original secret")
	}
}

func TestPinHashDeterministic(t *testing.T) {
	salt := []byte("saltsaltsalt")
	pin := []byte{1, 2, 3}

	if !Equal(PinHash(salt, pin), PinHash(salt, pin)) {
		t.Fatal("expected identical inputs to hash identically")
	}
}

func TestPinHashOrderMatters(t *testing.T) {
	salt := []byte("saltsaltsalt")
	pin := []byte{1, 2, 3}

	if Equal(PinHash(salt, pin), Key(pin, salt)) {
		t.Fatal("PinHash and Key must not collide even with the same salt/pin")
	}
}
