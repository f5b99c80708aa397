// NXP i.MX6UL configuration and support
// https://github.com/usbarmory/keyfob
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package imx6ul provides support to Go bare metal unikernels, written using
// the TamaGo framework, on the NXP i.MX6UL family of System-on-Chip (SoC)
// application processors.
//
// The package implements initialization and drivers for NXP
// i.MX6UL/i.MX6ULL/i.MX6ULZ SoCs, adopting the following reference
// specifications:
//   - IMX6ULCEC  - i.MX6UL  Data Sheet                               - Rev 2.2 2015/05
//   - IMX6ULLCEC - i.MX6ULL Data Sheet                               - Rev 1.2 2017/11
//   - IMX6ULZCEC - i.MX6ULZ Data Sheet                               - Rev 0   2018/09
//   - IMX6ULRM   - i.MX 6UL  Applications Processor Reference Manual - Rev 1   2016/04
//   - IMX6ULLRM  - i.MX 6ULL Applications Processor Reference Manual - Rev 1   2017/11
//   - IMX6ULZRM  - i.MX 6ULZ Applications Processor Reference Manual - Rev 0   2018/10
//
// This package only declares and initializes the peripherals this firmware
// actually drives: the two UARTs carrying the host and board links, GPIO1
// for the unlock switch, TEMPMON for entropy sampling, the OCOTP fuse
// reader TEMPMON's calibration read depends on, the three watchdogs
// initialized at boot (see init.go), and the CAAM/RNGB random number
// generators the Go runtime itself seeds through (see rng.go). The status
// LEDs are on GPIO4 and are driven through package usbarmory/mark-two. The rest of the i.MX6UL peripheral set (Ethernet, USB, SD,
// I2C, the Bus Encryption Engine, Data Co-Processor, Central Security Unit,
// TrustZone Address Space Controller, Secure Non-Volatile Storage, the
// General Interrupt Controller) has no caller in this module and is not
// declared here.
//
// This package is only meant to be used with `GOOS=tamago GOARCH=arm` as
// supported by the TamaGo framework for bare metal Go on ARM SoCs, see
// https://github.com/usbarmory/keyfob.
package imx6ul

import (
	"encoding/binary"

	"github.com/usbarmory/keyfob/internal/reg"

	"github.com/usbarmory/keyfob/arm"

	"github.com/usbarmory/keyfob/soc/nxp/caam"
	"github.com/usbarmory/keyfob/soc/nxp/gpio"
	"github.com/usbarmory/keyfob/soc/nxp/ocotp"
	"github.com/usbarmory/keyfob/soc/nxp/rngb"
	"github.com/usbarmory/keyfob/soc/nxp/tempmon"
	"github.com/usbarmory/keyfob/soc/nxp/uart"
	"github.com/usbarmory/keyfob/soc/nxp/wdog"
)

// Peripheral registers
const (
	// Cryptographic Acceleration and Assurance Module (UL only), seeded
	// by the Go runtime's own RNG hook (rng.go), not by this module's
	// entropy pool.
	CAAM_BASE = 0x02140000

	// General Purpose I/O, used for the unlock switch.
	GPIO1_BASE = 0x0209c000

	// Multi Mode DDR Controller, the runtime's RAM start address.
	MMDC_BASE = 0x80000000

	// On-Chip OTP Controller, read by TEMPMON.Init for calibration data.
	OCOTP_BASE      = 0x021bc000
	OCOTP_BANK_BASE = 0x021bc400

	// On-Chip Random-Access Memory, the default DMA region.
	OCRAM_START = 0x00900000
	OCRAM_SIZE  = 0x20000

	// True Random Number Generator (ULL/ULZ only), seeded by the Go
	// runtime's own RNG hook (rng.go).
	RNGB_BASE = 0x02284000

	// Temperature Monitor, this module's third entropy source.
	TEMPMON_BASE = 0x020c8180

	// Serial ports: UART1 carries the host link, UART2 the board link.
	UART1_BASE = 0x02020000
	UART2_BASE = 0x021e8000

	// USB_ANALOG_DIGPROG only, read by SiliconVersion; the USB
	// controllers themselves are not used by this firmware.
	USB_ANALOG_DIGPROG = 0x020c8260

	// Watchdog Timers. Each is initialized at boot (init.go), which clears
	// its power-down counter, even though nothing in this module depends
	// on their interrupt: leaving any of the three uninitialized causes a
	// spontaneous reset within 16 seconds of boot
	// (p4085, 59.5.3 Power-down counter event, IMX6ULLRM). The
	// WDOGx_IRQ interrupt numbers are declared in wdog.go, not here.
	WDOG1_BASE = 0x020bc000
	WDOG2_BASE = 0x020c0000
	WDOG3_BASE = 0x021e4000
)

// Peripheral instances
var (
	// ARM core
	ARM = &arm.CPU{}

	// Cryptographic Acceleration and Assurance Module (UL only),
	// instantiated by rng.go's runtime RNG seeding hook, not by this
	// file's own init().
	CAAM *caam.CAAM

	// GPIO controller 1
	GPIO1 = &gpio.GPIO{
		Index: 1,
		Base:  GPIO1_BASE,
		CCGR:  CCM_CCGR1,
		CG:    CCGRx_CG13,
	}

	// On-Chip OTP Controller
	OCOTP = &ocotp.OCOTP{
		Base:     OCOTP_BASE,
		BankBase: OCOTP_BANK_BASE,
		CCGR:     CCM_CCGR2,
		CG:       CCGRx_CG6,
	}

	// True Random Number Generator (ULL/ULZ only), instantiated by
	// rng.go's runtime RNG seeding hook.
	RNGB *rngb.RNGB

	// Temperature Monitor
	TEMPMON = &tempmon.TEMPMON{
		Base: TEMPMON_BASE,
	}

	// Serial port 1 (host link)
	UART1 = &uart.UART{
		Index: 1,
		Base:  UART1_BASE,
		CCGR:  CCM_CCGR5,
		CG:    CCGRx_CG12,
		Clock: GetUARTClock,
	}

	// Serial port 2 (board link)
	UART2 = &uart.UART{
		Index: 2,
		Base:  UART2_BASE,
		CCGR:  CCM_CCGR0,
		CG:    CCGRx_CG14,
		Clock: GetUARTClock,
	}

	// Watchdog Timer 1
	WDOG1 = &wdog.WDOG{
		Index: 1,
		Base:  WDOG1_BASE,
		CCGR:  CCM_CCGR3,
		CG:    CCGRx_CG8,
		IRQ:   WDOG1_IRQ,
	}

	// Watchdog Timer 2
	WDOG2 = &wdog.WDOG{
		Index: 2,
		Base:  WDOG2_BASE,
		CCGR:  CCM_CCGR5,
		CG:    CCGRx_CG5,
		IRQ:   WDOG2_IRQ,
	}

	// Watchdog Timer 3
	WDOG3 = &wdog.WDOG{
		Index: 3,
		Base:  WDOG3_BASE,
		CCGR:  CCM_CCGR6,
		CG:    CCGRx_CG10,
		IRQ:   WDOG3_IRQ,
	}
)

// SiliconVersion returns the SoC silicon version information
// (p3945, 57.4.11 Chip Silicon Version (USB_ANALOG_DIGPROG), IMX6ULLRM).
func SiliconVersion() (sv, family, revMajor, revMinor uint32) {
	sv = reg.Read(USB_ANALOG_DIGPROG)

	family = (sv >> 16) & 0xff
	revMajor = (sv >> 8) & 0xff
	revMinor = sv & 0xff

	return
}

// UniqueID returns the NXP SoC Device Unique 64-bit ID.
func UniqueID() (uid [8]byte) {
	cfg0, _ := OCOTP.Read(0, 1)
	cfg1, _ := OCOTP.Read(0, 2)

	binary.LittleEndian.PutUint32(uid[0:4], cfg0)
	binary.LittleEndian.PutUint32(uid[4:8], cfg1)

	return
}

// Model returns the SoC model name.
func Model() (model string) {
	switch Family {
	case IMX6UL:
		model = "i.MX6UL"
	case IMX6ULL:
		cfg5, _ := OCOTP.Read(0, 6)

		if (cfg5>>6)&1 == 1 {
			model = "i.MX6ULZ"
		} else {
			model = "i.MX6ULL"
		}
	default:
		model = "unknown"
	}

	return
}
