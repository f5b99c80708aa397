//go:build debug

// Package logctx provides the firmware's only logging surface: a tiny
// leveled wrapper that is entirely compiled out of production builds.
// Production builds never log to the host or board protocol streams
// (spec.md §7) — debug output, when built with `-tags debug`, goes to
// stderr (host-simulation build) or a secondary debug UART (native build),
// never to the framed links the protocols use.
package logctx

import "log"

// Debugf logs a formatted debug line. Compiled to nothing (see debug_off.go)
// in production builds.
func Debugf(format string, args ...any) {
	log.Printf("keyfob: "+format, args...)
}
