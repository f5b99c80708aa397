//go:build !tamago

package main

import (
	"flag"
	"log"

	"github.com/usbarmory/keyfob/config"
	"github.com/usbarmory/keyfob/delay"
	"github.com/usbarmory/keyfob/device"
	"github.com/usbarmory/keyfob/entropy"
	"github.com/usbarmory/keyfob/indicator"
	"github.com/usbarmory/keyfob/link"
	"github.com/usbarmory/keyfob/store"
	"github.com/usbarmory/keyfob/unlock"
)

// newCar wires a car personality to two host-simulation serial devices,
// opened over tarm/serial, for development and testing without target
// hardware.
func newCar() *device.Car {
	hostDev := flag.String("host", "", "serial device or pty for the host link")
	boardDev := flag.String("board", "", "serial device or pty for the board link")
	flag.Parse()

	if *hostDev == "" || *boardDev == "" {
		log.Fatal("car: both -host and -board must be set")
	}

	host, err := link.OpenSerial(*hostDev, config.DefaultBaud)
	if err != nil {
		log.Fatalf("car: opening host link: %v", err)
	}
	board, err := link.OpenSerial(*boardDev, config.DefaultBaud)
	if err != nil {
		log.Fatalf("car: opening board link: %v", err)
	}

	seed := entropy.Seed(entropy.BootRAMSim{}, entropy.TempSensorSim{}, entropy.TickSim{})

	return &device.Car{
		Board: board,
		Unlock: &unlock.Car{
			Store:  store.Car{S: store.NewRAM()},
			Host:   host,
			Board:  board,
			Stream: entropy.New(seed),
			Tick:   entropy.TickSim{},
			Clock:  delay.RealClock{},
			LED:    indicator.Noop{},
		},
		LED: indicator.Noop{},
	}
}
