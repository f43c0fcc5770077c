package core

// Timer frequency of the shared encoder timer. The calibration data and the
// default tuning are in ticks of this rate.
const (
	TimerFreq = 62500 // 16 MHz / 256 on the original board
)

// TimerFromMS converts milliseconds to timer ticks
func TimerFromMS(ms uint32) uint32 {
	return uint32(uint64(ms) * TimerFreq / 1000)
}

// TimerToMS converts timer ticks to milliseconds
func TimerToMS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000 / TimerFreq)
}

// OverflowDetector turns a 16-bit counter without an overflow interrupt into
// overflow events. It is itself a TickSource: every read through it, from an
// interrupt handler or the main loop, counts a wrap before the new value is
// used, so a capture never pairs a wrapped tick with a stale rollover count.
// Something must read it at least once per counter period; the main loop
// calls Poll for that.
type OverflowDetector struct {
	timer  TickSource
	onWrap func()
	last   uint16
	high   uint32
}

// NewOverflowDetector starts watching the timer from its current value
func NewOverflowDetector(timer TickSource) *OverflowDetector {
	return &OverflowDetector{timer: timer, last: timer.Ticks()}
}

// OnWrap sets the overflow handler, called with interrupts masked. Call
// during setup only.
func (d *OverflowDetector) OnWrap(handler func()) {
	d.onWrap = handler
}

// read samples the counter and raises the overflow handler on a wrap.
// Interrupts must be masked.
func (d *OverflowDetector) read() (uint16, bool) {
	now := d.timer.Ticks()
	wrapped := now < d.last
	if wrapped {
		d.high++
		if d.onWrap != nil {
			d.onWrap()
		}
	}
	d.last = now
	return now, wrapped
}

// Ticks implements TickSource
func (d *OverflowDetector) Ticks() uint16 {
	state := disableInterrupts()
	now, _ := d.read()
	restoreInterrupts(state)
	return now
}

// Poll reports whether the counter wrapped since the previous read
func (d *OverflowDetector) Poll() bool {
	state := disableInterrupts()
	_, wrapped := d.read()
	restoreInterrupts(state)
	return wrapped
}

// Now returns the counter extended to 32 bits as of the last read
func (d *OverflowDetector) Now() uint32 {
	state := disableInterrupts()
	now := d.high<<16 | uint32(d.last)
	restoreInterrupts(state)
	return now
}
