//go:build !tamago

package device

import "sync/atomic"

// SimSwitch is a host-simulation Switch a test or CLI can drive directly,
// standing in for a GPIO button.
type SimSwitch struct {
	pressed atomic.Bool
}

// Press sets the simulated button to pressed.
func (s *SimSwitch) Press() { s.pressed.Store(true) }

// Release sets the simulated button to released.
func (s *SimSwitch) Release() { s.pressed.Store(false) }

func (s *SimSwitch) Pressed() bool { return s.pressed.Load() }
