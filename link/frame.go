package link

import (
	"fmt"

	"github.com/usbarmory/keyfob/link/proto"
)

// ErrUnexpectedMagic is returned when a handler that expects exactly one
// magic byte sees something else; callers abort silently per spec.md §7.
var ErrUnexpectedMagic = fmt.Errorf("link: unexpected magic byte")

// ReadMagic reads one magic byte and its fixed-length payload (spec.md
// §4.4: the tag alone determines payload length, there is no in-band
// length field).
func ReadMagic(s Stream) (proto.Magic, []byte, error) {
	b, err := s.ReadByte()
	if err != nil {
		return 0, nil, err
	}

	m := proto.Magic(b)

	n, ok := proto.PayloadLen(m)
	if !ok {
		return m, nil, nil
	}

	if n == 0 {
		return m, nil, nil
	}

	payload := make([]byte, n)
	if err := s.ReadExact(payload); err != nil {
		return m, nil, err
	}

	return m, payload, nil
}

// ExpectMagic reads one frame and requires it to carry magic want,
// returning ErrUnexpectedMagic otherwise.
func ExpectMagic(s Stream, want proto.Magic) ([]byte, error) {
	got, payload, err := ReadMagic(s)
	if err != nil {
		return nil, err
	}
	if got != want {
		return nil, fmt.Errorf("%w: got 0x%02x want 0x%02x", ErrUnexpectedMagic, got, want)
	}
	return payload, nil
}

// WriteFrame writes magic followed by payload.
func WriteFrame(s Stream, m proto.Magic, payload []byte) error {
	if err := s.WriteByte(byte(m)); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	return s.WriteAll(payload)
}
