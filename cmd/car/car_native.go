//go:build tamago

package main

import (
	"github.com/usbarmory/keyfob/delay"
	"github.com/usbarmory/keyfob/device"
	"github.com/usbarmory/keyfob/entropy"
	"github.com/usbarmory/keyfob/indicator"
	"github.com/usbarmory/keyfob/link"
	"github.com/usbarmory/keyfob/soc/nxp/imx6ul"
	"github.com/usbarmory/keyfob/store"
	"github.com/usbarmory/keyfob/unlock"

	_ "github.com/usbarmory/keyfob/usbarmory/mark-two"
)

// newCar wires a car personality to the board's two UARTs (UART1 host,
// UART2 board), the real entropy pool, and the physical status LEDs.
//
// There is no persistent non-volatile store driver in this tree — board
// bring-up for EEPROM/flash storage is out of scope (spec.md §1, an
// external collaborator this core assumes but does not implement) — so
// the identity record lives in store.RAM, lost on power cycle until a
// board integration supplies a durable Store.
func newCar() *device.Car {
	host := &link.UARTStream{HW: imx6ul.UART1}
	board := &link.UARTStream{HW: imx6ul.UART2}

	seed := entropy.Seed(
		entropy.BootRAMAt(0x80000000),
		entropy.TempMonSensor{HW: imx6ul.TEMPMON},
		entropy.ARMTick{},
	)

	return &device.Car{
		Board: board,
		Unlock: &unlock.Car{
			Store:  store.Car{S: store.NewRAM()},
			Host:   host,
			Board:  board,
			Stream: entropy.New(seed),
			Tick:   entropy.ARMTick{},
			Clock:  delay.RealClock{},
			LED:    indicator.LEDs{},
		},
		LED: indicator.LEDs{},
	}
}
