//go:build !tamago

package main

import (
	"flag"
	"log"

	"github.com/usbarmory/keyfob/config"
	"github.com/usbarmory/keyfob/device"
	"github.com/usbarmory/keyfob/indicator"
	"github.com/usbarmory/keyfob/link"
	"github.com/usbarmory/keyfob/pairing"
	"github.com/usbarmory/keyfob/store"
)

func newUnpairedFob() *device.UnpairedFob {
	boardDev := flag.String("board", "", "serial device or pty for the board link")
	flag.Parse()

	if *boardDev == "" {
		log.Fatal("unpairedfob: -board must be set")
	}

	board, err := link.OpenSerial(*boardDev, config.DefaultBaud)
	if err != nil {
		log.Fatalf("unpairedfob: opening board link: %v", err)
	}

	fob := store.Fob{S: store.NewRAM()}

	return &device.UnpairedFob{
		Board:   board,
		Pairing: &pairing.Unpaired{Fob: fob, Board: board},
		LED:     indicator.Noop{},
	}
}
