//go:build rp2040

package main

import (
	"runtime/volatile"
	"unsafe"

	"shaftpos/core"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerTIMERAWL = timerBase + 0x0C // Raw timer low word
)

var timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))

// encoderTicks reads the 1 MHz hardware timer scaled down to the 16-bit
// encoder timer. 1 MHz / 16 gives core.TimerFreq.
func encoderTicks() uint16 {
	return uint16(timerRAWL.Get() >> 4)
}

// encoderClock is the raw encoder tick. Everything else reads it through
// the overflow detector set up in main.
var encoderClock core.TickSource = core.TickFunc(encoderTicks)
