//go:build !tamago

package link

import "github.com/tarm/serial"

// OpenSerial opens a real or pty-emulated serial device for the
// host-simulation build, the same way the pack's seedhammer firmware opens
// its device link (driver/mjolnir/device.go) — used here to drive the
// protocol suite and development tooling against hardware without a target
// board.
func OpenSerial(device string, baud int) (*IOStream, error) {
	cfg := &serial.Config{Name: device, Baud: baud}

	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, err
	}

	return NewIOStream(port), nil
}
