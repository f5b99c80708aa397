//go:build !tamago

package entropy

import (
	"crypto/rand"
	"sync/atomic"
	"time"
)

// BootRAMSim stands in for a real uninitialised-RAM read off target: each
// call draws a fresh true-random 32 KiB buffer. Seed calls it once, the
// same way the real source is sampled once before anything writes to it.
type BootRAMSim struct{}

func (BootRAMSim) Sample() []byte {
	buf := make([]byte, 32*1024)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing indicates a broken host environment;
		// nothing downstream can recover from it either.
		panic(err)
	}
	return buf
}

// TempSensorSim stands in for the on-chip temperature sensor off target.
type TempSensorSim struct{}

func (TempSensorSim) Sample() byte {
	var b [1]byte
	rand.Read(b[:])
	return b[0]
}

var tickCounter uint64

// TickSim stands in for the free-running cycle counter off target, using a
// monotonic nanosecond clock plus a per-call counter so consecutive
// samples never collide even on platforms with coarse clock resolution.
type TickSim struct{}

func (TickSim) Sample() uint64 {
	n := atomic.AddUint64(&tickCounter, 1)
	return uint64(time.Now().UnixNano()) ^ n
}
