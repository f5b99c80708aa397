// Build-time device configuration.
// https://github.com/usbarmory/keyfob
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package config holds the compile-time constants that distinguish one
// device build from another. Per-device identity — which personality,
// which serial baud rate, whether debug logging is compiled in — is
// selected at build time (board-select-by-import, the teacher's own
// convention: you get a board's behaviour by importing its package, not
// by runtime flag) plus a small set of constants a cmd/ binary wires
// directly into its device.Car/PairedFob/UnpairedFob construction.
package config

// DefaultBaud is the baud rate cmd/<personality>'s host-simulation build
// opens its board and host serial links with, absent a flag override.
const DefaultBaud = 115200
