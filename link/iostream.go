package link

import "io"

// IOStream adapts any io.ReadWriter — a net.Pipe half, a *tarm/serial.Port,
// an os.File — to the Stream interface. A background reader goroutine
// drains rw into a small buffered channel, giving Available() the
// non-blocking "is a byte already here" semantics the bare-metal UART gets
// for free from its RX FIFO register.
type IOStream struct {
	rw   io.ReadWriter
	rx   chan byte
	errs chan error
}

// NewIOStream starts the background reader and returns a ready Stream.
func NewIOStream(rw io.ReadWriter) *IOStream {
	s := &IOStream{
		rw:   rw,
		rx:   make(chan byte, 256),
		errs: make(chan error, 1),
	}

	go s.pump()

	return s
}

func (s *IOStream) pump() {
	var b [1]byte

	for {
		if _, err := io.ReadFull(s.rw, b[:]); err != nil {
			select {
			case s.errs <- err:
			default:
			}
			return
		}
		s.rx <- b[0]
	}
}

func (s *IOStream) Available() bool {
	return len(s.rx) > 0
}

func (s *IOStream) ReadByte() (byte, error) {
	select {
	case b := <-s.rx:
		return b, nil
	case err := <-s.errs:
		return 0, err
	}
}

func (s *IOStream) ReadExact(buf []byte) error {
	for i := range buf {
		b, err := s.ReadByte()
		if err != nil {
			return err
		}
		buf[i] = b
	}
	return nil
}

func (s *IOStream) WriteByte(b byte) error {
	_, err := s.rw.Write([]byte{b})
	return err
}

func (s *IOStream) WriteAll(buf []byte) error {
	_, err := s.rw.Write(buf)
	return err
}
