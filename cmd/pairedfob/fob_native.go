//go:build tamago

package main

import (
	"github.com/usbarmory/keyfob/delay"
	"github.com/usbarmory/keyfob/device"
	"github.com/usbarmory/keyfob/feature"
	"github.com/usbarmory/keyfob/indicator"
	"github.com/usbarmory/keyfob/link"
	"github.com/usbarmory/keyfob/pairing"
	"github.com/usbarmory/keyfob/soc/nxp/imx6ul"
	"github.com/usbarmory/keyfob/store"
	"github.com/usbarmory/keyfob/unlock"

	_ "github.com/usbarmory/keyfob/usbarmory/mark-two"
)

// unlockSwitchGPIO is the board pin the unlock push-button is wired to.
const unlockSwitchGPIO = 4

func newPairedFob() *device.PairedFob {
	host := &link.UARTStream{HW: imx6ul.UART1}
	board := &link.UARTStream{HW: imx6ul.UART2}

	pin, err := imx6ul.GPIO1.Init(unlockSwitchGPIO)
	if err != nil {
		panic(err)
	}
	sw := device.NewGPIOSwitch(pin)

	fob := store.Fob{S: store.NewRAM()}
	clock := delay.RealClock{}

	return &device.PairedFob{
		Host:  host,
		Board: board,
		Pairing: &pairing.Paired{
			Fob:   fob,
			Board: board,
			Clock: clock,
			LED:   indicator.LEDs{},
		},
		Enrolment: &feature.Enrolment{
			Fob:   fob,
			Host:  host,
			Clock: clock,
			LED:   indicator.LEDs{},
		},
		Unlock: &unlock.Fob{Store: fob, Board: board, LED: indicator.LEDs{}},
		Switch: sw,
		LED:    indicator.LEDs{},
	}
}
