package store

import "encoding/binary"

// Car gives typed access to a Car record over a raw Store.
type Car struct {
	S Store
}

func (c Car) Secret() ([]byte, error) { return c.S.Read(CarSecretOffset, CarSecretLen) }
func (c Car) SetSecret(b []byte) error { return c.S.Write(CarSecretOffset, b) }

func (c Car) ManufacturerPublic() ([]byte, error) {
	return c.S.Read(CarManufacturerPubOffset, CarManufacturerPubLen)
}
func (c Car) SetManufacturerPublic(b []byte) error {
	return c.S.Write(CarManufacturerPubOffset, b)
}

func (c Car) FobPublic() ([]byte, error) { return c.S.Read(CarFobPublicOffset, CarFobPublicLen) }
func (c Car) SetFobPublic(b []byte) error { return c.S.Write(CarFobPublicOffset, b) }

func (c Car) CarID() (uint32, error) {
	b, err := c.S.Read(CarCarIDOffset, CarCarIDLen)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (c Car) SetCarID(id uint32) error {
	var b [CarCarIDLen]byte
	binary.BigEndian.PutUint32(b[:], id)
	return c.S.Write(CarCarIDOffset, b[:])
}

func (c Car) MsgUnlock() ([]byte, error) { return c.S.Read(CarMsgUnlockOffset, CarMsgLen) }
func (c Car) SetMsgUnlock(b []byte) error { return c.S.Write(CarMsgUnlockOffset, b) }

// MsgFeat returns the flag string for feature slot n (1, 2 or 3).
func (c Car) MsgFeat(n int) ([]byte, error) {
	off, ok := c.msgFeatOffset(n)
	if !ok {
		return nil, ErrOutOfRange
	}
	return c.S.Read(off, CarMsgLen)
}

func (c Car) SetMsgFeat(n int, b []byte) error {
	off, ok := c.msgFeatOffset(n)
	if !ok {
		return ErrOutOfRange
	}
	return c.S.Write(off, b)
}

func (c Car) msgFeatOffset(n int) (int, bool) {
	switch n {
	case 1:
		return CarMsgFeat1Offset, true
	case 2:
		return CarMsgFeat2Offset, true
	case 3:
		return CarMsgFeat3Offset, true
	default:
		return 0, false
	}
}
