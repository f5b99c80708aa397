//go:build tamago

package link

import "github.com/usbarmory/keyfob/soc/nxp/uart"

// UARTStream adapts the teacher's NXP UART driver to the Stream interface.
// uart.UART.Rx is non-blocking (it reports valid=false when the RX FIFO is
// empty); UARTStream spins on it for the blocking ReadByte/ReadExact
// semantics this core requires, keeping a single byte of pushback so
// Available never discards data.
type UARTStream struct {
	HW *uart.UART

	buffered bool
	next     byte
}

func (s *UARTStream) Available() bool {
	if s.buffered {
		return true
	}

	c, valid := s.HW.Rx()
	if !valid {
		return false
	}

	s.next = c
	s.buffered = true

	return true
}

func (s *UARTStream) ReadByte() (byte, error) {
	for !s.Available() {
		// spin until the RX FIFO has a character
	}

	s.buffered = false

	return s.next, nil
}

func (s *UARTStream) ReadExact(buf []byte) error {
	for i := range buf {
		c, err := s.ReadByte()
		if err != nil {
			return err
		}
		buf[i] = c
	}

	return nil
}

func (s *UARTStream) WriteByte(b byte) error {
	s.HW.Tx(b)
	return nil
}

func (s *UARTStream) WriteAll(buf []byte) error {
	_, err := s.HW.Write(buf)
	return err
}
