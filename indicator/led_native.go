//go:build tamago

package indicator

import usbarmory "github.com/usbarmory/keyfob/usbarmory/mark-two"

// LEDs drives the board's two physical LEDs (usbarmory.LED) to carry the
// three status roles spec.md §2/§4.8 call for. The board only exposes two
// LEDs ("white", "blue"), one fewer than the three logical roles, so Fault
// is distinguished from Busy by driving both LEDs together rather than
// needing a third GPIO.
type LEDs struct{}

func (LEDs) Ready(on bool) { usbarmory.LED("white", on) }
func (LEDs) Busy(on bool)  { usbarmory.LED("blue", on) }
func (LEDs) Fault(on bool) {
	usbarmory.LED("white", on)
	usbarmory.LED("blue", on)
}
