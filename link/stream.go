// Framed serial I/O over the host and board byte streams.
// https://github.com/usbarmory/keyfob
//
// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package link implements the two independent byte streams every
// personality dispatches over — host (to the pairing/enrol tool or unlock
// host) and board (peer-to-peer between fob and car, or fob and fob) — plus
// the magic-byte frame catalogue shared by every protocol (spec.md §4.4,
// §6). Framing is entirely length-prefixed by context: a magic tag is
// followed by a fixed payload length determined solely by the tag. There is
// no in-band length, no CRC, no escaping.
package link

import "errors"

var ErrClosed = errors.New("link: stream closed")

// Stream is a blocking byte-oriented serial link. Read operations block
// until satisfied. UARTStream buffers only the single-byte pushback
// Available needs; IOStream buffers up to 256 received bytes.
type Stream interface {
	// Available reports whether at least one byte is buffered.
	Available() bool
	// ReadByte blocks until one byte arrives.
	ReadByte() (byte, error)
	// ReadExact blocks until buf is full.
	ReadExact(buf []byte) error
	// WriteByte blocks until the byte is drained.
	WriteByte(b byte) error
	// WriteAll blocks until buf is fully drained.
	WriteAll(buf []byte) error
}
