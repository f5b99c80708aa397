//go:build tamago

package entropy

import (
	"unsafe"

	"github.com/usbarmory/keyfob/arm"
	"github.com/usbarmory/keyfob/soc/nxp/tempmon"
)

// bootRAMSize is the 32 KiB window sampled once at boot, before anything
// else writes to it. The base address is board-specific scratch RAM
// reserved by the linker script; board bring-up that allocates it is out
// of scope for this core (spec.md §1) — it is supplied by the board's
// cmd/ entry point.
const bootRAMSize = 32 * 1024

// BootRAMAt reads a never-before-written window of on-chip RAM starting at
// addr, the way internal/reg reads hardware registers: a raw pointer over
// a fixed physical address.
type BootRAMAt uint32

func (b BootRAMAt) Sample() []byte {
	ptr := (*[bootRAMSize]byte)(unsafe.Pointer(uintptr(b)))
	out := make([]byte, bootRAMSize)
	copy(out, ptr[:])
	return out
}

// TempMonSensor adapts the NXP temperature monitor driver to the
// entropy.TempSensor interface, keeping only the LSB of each raw sample.
type TempMonSensor struct {
	HW *tempmon.TEMPMON
}

func (t TempMonSensor) Sample() byte {
	return byte(t.HW.RawSample())
}

// ARMTick samples the ARM tick timer (arm.TimerFn), the same free-running
// cycle counter the teacher's runtime uses for nanotime.
type ARMTick struct{}

func (ARMTick) Sample() uint64 {
	return uint64(arm.TimerFn())
}
