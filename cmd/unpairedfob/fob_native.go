//go:build tamago

package main

import (
	"github.com/usbarmory/keyfob/device"
	"github.com/usbarmory/keyfob/indicator"
	"github.com/usbarmory/keyfob/link"
	"github.com/usbarmory/keyfob/pairing"
	"github.com/usbarmory/keyfob/soc/nxp/imx6ul"
	"github.com/usbarmory/keyfob/store"

	_ "github.com/usbarmory/keyfob/usbarmory/mark-two"
)

func newUnpairedFob() *device.UnpairedFob {
	board := &link.UARTStream{HW: imx6ul.UART2}
	fob := store.Fob{S: store.NewRAM()}

	return &device.UnpairedFob{
		Board:   board,
		Pairing: &pairing.Unpaired{Fob: fob, Board: board},
		LED:     indicator.LEDs{},
	}
}
