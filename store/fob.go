package store

import "encoding/binary"

// Fob gives typed access to a Fob record over a raw Store.
type Fob struct {
	S Store
}

func (f Fob) Secret() ([]byte, error) { return f.S.Read(FobSecretOffset, FobSecretLen) }
func (f Fob) SetSecret(b []byte) error { return f.S.Write(FobSecretOffset, b) }

func (f Fob) SecretEnc() ([]byte, error) { return f.S.Read(FobSecretEncOffset, FobSecretEncLen) }
func (f Fob) SetSecretEnc(b []byte) error { return f.S.Write(FobSecretEncOffset, b) }

func (f Fob) Salt() ([]byte, error) { return f.S.Read(FobSaltOffset, FobSaltLen) }
func (f Fob) SetSalt(b []byte) error { return f.S.Write(FobSaltOffset, b) }

func (f Fob) PinHash() ([]byte, error) { return f.S.Read(FobPinHashOffset, FobPinHashLen) }
func (f Fob) SetPinHash(b []byte) error { return f.S.Write(FobPinHashOffset, b) }

func (f Fob) CarID() (uint32, error) {
	b, err := f.S.Read(FobCarIDOffset, FobCarIDLen)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (f Fob) SetCarID(id uint32) error {
	var b [FobCarIDLen]byte
	binary.BigEndian.PutUint32(b[:], id)
	return f.S.Write(FobCarIDOffset, b[:])
}

func (f Fob) FeatureSig(n int) ([]byte, error) {
	off, ok := FeatureSigOffset(n)
	if !ok {
		return nil, ErrOutOfRange
	}
	return f.S.Read(off, FobFeatSigLen)
}

func (f Fob) SetFeatureSig(n int, sig []byte) error {
	off, ok := FeatureSigOffset(n)
	if !ok {
		return ErrOutOfRange
	}
	return f.S.Write(off, sig)
}

func (f Fob) CarPublic() ([]byte, error) { return f.S.Read(FobCarPublicOffset, FobCarPublicLen) }
func (f Fob) SetCarPublic(b []byte) error { return f.S.Write(FobCarPublicOffset, b) }

func (f Fob) IsPaired() (bool, error) {
	b, err := f.S.Read(FobIsPairedOffset, FobIsPairedLen)
	if err != nil {
		return false, err
	}
	return binary.BigEndian.Uint32(b) != 0, nil
}

// SetPaired must be the last write of a commit sequence (spec.md §4.5.2): a
// crash before this write leaves the device indistinguishable from an
// unpaired-failed attempt.
func (f Fob) SetPaired(paired bool) error {
	var v uint32
	if paired {
		v = 1
	}
	var b [FobIsPairedLen]byte
	binary.BigEndian.PutUint32(b[:], v)
	return f.S.Write(FobIsPairedOffset, b[:])
}
