//go:build !tamago

package main

import (
	"flag"
	"log"

	"github.com/usbarmory/keyfob/config"
	"github.com/usbarmory/keyfob/delay"
	"github.com/usbarmory/keyfob/device"
	"github.com/usbarmory/keyfob/feature"
	"github.com/usbarmory/keyfob/indicator"
	"github.com/usbarmory/keyfob/link"
	"github.com/usbarmory/keyfob/pairing"
	"github.com/usbarmory/keyfob/store"
	"github.com/usbarmory/keyfob/unlock"
)

func newPairedFob() *device.PairedFob {
	hostDev := flag.String("host", "", "serial device or pty for the host link")
	boardDev := flag.String("board", "", "serial device or pty for the board link")
	flag.Parse()

	if *hostDev == "" || *boardDev == "" {
		log.Fatal("pairedfob: both -host and -board must be set")
	}

	host, err := link.OpenSerial(*hostDev, config.DefaultBaud)
	if err != nil {
		log.Fatalf("pairedfob: opening host link: %v", err)
	}
	board, err := link.OpenSerial(*boardDev, config.DefaultBaud)
	if err != nil {
		log.Fatalf("pairedfob: opening board link: %v", err)
	}

	fob := store.Fob{S: store.NewRAM()}
	clock := delay.RealClock{}
	sw := &device.SimSwitch{}

	return &device.PairedFob{
		Host:  host,
		Board: board,
		Pairing: &pairing.Paired{
			Fob:   fob,
			Board: board,
			Clock: clock,
			LED:   indicator.Noop{},
		},
		Enrolment: &feature.Enrolment{
			Fob:   fob,
			Host:  host,
			Clock: clock,
			LED:   indicator.Noop{},
		},
		Unlock: &unlock.Fob{Store: fob, Board: board, LED: indicator.Noop{}},
		Switch: sw,
		LED:    indicator.Noop{},
	}
}
