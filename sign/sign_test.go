package sign

import (
	"crypto/ecdsa"
	"crypto/rand"
	"testing"
)

func genKey(t *testing.T) (sk []byte, pk []byte) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	sk = make([]byte, ScalarLen)
	putScalar(sk, priv.D)
	pk = MarshalPublicKey(&priv.PublicKey)

	return sk, pk
}

func TestSignVerifyRoundTrip(t *testing.T) {
	sk, pk := genKey(t)

	msg := []byte("unlock nonce payload")

	sig, err := Sign(sk, msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(sig) != SignatureLen {
		t.Fatalf("got signature len %d want %d", len(sig), SignatureLen)
	}

	if !Verify(pk, msg, sig) {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	sk, pk := genKey(t)

	msg := []byte("unlock nonce payload")
	sig, err := Sign(sk, msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tampered := append([]byte(nil), msg...)
	tampered[0] ^= 0xff

	if Verify(pk, tampered, sig) {
		t.Fatal("expected verification to fail on tampered message")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	sk, _ := genKey(t)
	_, otherPk := genKey(t)

	msg := []byte("unlock nonce payload")
	sig, err := Sign(sk, msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if Verify(otherPk, msg, sig) {
		t.Fatal("expected verification to fail under the wrong public key")
	}
}

func TestPrivateKeyFromScalarRejectsZero(t *testing.T) {
	zero := make([]byte, ScalarLen)
	if _, err := PrivateKeyFromScalar(zero); err == nil {
		t.Fatal("expected error for zero scalar")
	}
}

func TestPublicKeyFromPointRejectsOffCurve(t *testing.T) {
	bogus := make([]byte, PublicKeyLen)
	for i := range bogus {
		bogus[i] = 0x41
	}
	if _, err := PublicKeyFromPoint(bogus); err == nil {
		t.Fatal("expected error for off-curve point")
	}
}
