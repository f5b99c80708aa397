//go:build tamago

package device

import "github.com/usbarmory/keyfob/soc/nxp/gpio"

// GPIOSwitch reads the unlock button off a single GPIO pin, configured as
// input by NewGPIOSwitch (soc/nxp/gpio.Pin.Value).
type GPIOSwitch struct {
	pin *gpio.Pin
}

// NewGPIOSwitch configures pin as an input and returns a Switch reading it.
func NewGPIOSwitch(pin *gpio.Pin) *GPIOSwitch {
	pin.In()
	return &GPIOSwitch{pin: pin}
}

func (s *GPIOSwitch) Pressed() bool {
	return s.pin.Value()
}
