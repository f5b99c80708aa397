// USB armory Mk II support for tamago/arm
// https://github.com/usbarmory/keyfob
//
// Copyright (c) F-Secure Corporation
// https://foundry.f-secure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package usbarmory provides hardware initialization, automatically on import,
// for the USB armory Mk II single board computer.
//
// This package is only meant to be used with `GOOS=tamago GOARCH=arm` as
// supported by the TamaGo framework for bare metal Go on ARM SoCs, see
// https://github.com/usbarmory/keyfob.
package usbarmory

import (
	_ "github.com/usbarmory/keyfob/imx6/imx6ul"
)
