// Quadrature decoder for an optical shaft encoder
// Tracks shaft angle from pin-change interrupts and measures time between
// transitions against the shared 16-bit free-running timer.
package core

// MaxTimeAtAngle reports a shaft that is very slow or stalled
const MaxTimeAtAngle = 0xFFFF

// maxRollovers is where the timer overflow counter saturates. Two rollovers
// without a transition can't be distinguished from any longer interval.
const maxRollovers = 2

// Increment is the decoded result of one encoder transition
type Increment int8

const (
	IncZero      Increment = iota // no change
	IncPlus                       // one count forward
	IncMinus                      // one count backward
	IncAmbiguous                  // both bits flipped, an intermediate state was skipped
)

// String returns a short name for debug output
func (i Increment) String() string {
	switch i {
	case IncZero:
		return "zero"
	case IncPlus:
		return "plus"
	case IncMinus:
		return "minus"
	case IncAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

/*
 lookup index bit assignments
    +--------+--------+--------+--------+
 bit|   3    |   2    |   1    |   0    |
    +--------+--------+--------+--------+
    |new ch B|new ch A|old ch B|old ch A|
    +--------+--------+--------+--------+
*/

// Valid transitions follow the gray sequence 0, 1, 3, 2, 0, ...
var incrementTable = [16]Increment{
	IncZero,      // 0000  0 -> 0
	IncMinus,     // 0001  1 -> 0
	IncPlus,      // 0010  2 -> 0
	IncAmbiguous, // 0011  3 -> 0
	IncPlus,      // 0100  0 -> 1
	IncZero,      // 0101  1 -> 1
	IncAmbiguous, // 0110  2 -> 1
	IncMinus,     // 0111  3 -> 1
	IncMinus,     // 1000  0 -> 2
	IncAmbiguous, // 1001  1 -> 2
	IncZero,      // 1010  2 -> 2
	IncPlus,      // 1011  3 -> 2
	IncAmbiguous, // 1100  0 -> 3
	IncPlus,      // 1101  1 -> 3
	IncMinus,     // 1110  2 -> 3
	IncZero,      // 1111  3 -> 3
}

// DecodeTransition looks up the increment for a move from last to next
// (both 2-bit readings)
func DecodeTransition(last, next uint8) Increment {
	return incrementTable[(next&0x03)<<2|(last&0x03)]
}

// Snapshot is a consistent copy of the decoder state taken by AngleAndTime
type Snapshot struct {
	Angle       int32
	TimeAtAngle uint16 // timer ticks per gray cycle, MaxTimeAtAngle when stalled
	Errors      uint16 // decode errors since the previous snapshot

	// IndexDetected is set once an armed index reset has fired
	IndexDetected bool
}

// QuadratureEncoder is the state of one encoder. Update and TimerOverflow
// are the interrupt handlers; every other method is for the main loop and
// masks interrupts while it touches shared fields.
type QuadratureEncoder struct {
	timer TickSource

	timerStartValue  uint16
	timerRollovers   uint8 // saturates at maxRollovers
	timeAtAngle      uint16
	lastIncrement    Increment
	lastBits         uint8
	currentAngle     int32
	errorCount       uint16
	indexQualifyBits uint8
	indexArmed       bool
	indexDetected    bool
}

// NewQuadratureEncoder creates an encoder reading the given timer.
// initialBits is the 2-bit reading of the encoder port at power up and
// qualifyBits the reading at which the index switch is sampled.
func NewQuadratureEncoder(timer TickSource, initialBits, qualifyBits uint8) *QuadratureEncoder {
	return &QuadratureEncoder{
		timer:            timer,
		timerRollovers:   maxRollovers,
		timeAtAngle:      MaxTimeAtAngle,
		lastIncrement:    IncZero,
		lastBits:         initialBits & 0x03,
		indexQualifyBits: qualifyBits & 0x03,
	}
}

// computeTimeAtAngle returns the ticks elapsed since start given the number
// of timer rollovers seen in between
func computeTimeAtAngle(now, start uint16, rollovers uint8) uint16 {
	switch {
	case rollovers == 0:
		return now - start
	case rollovers == 1 && start > now:
		// wrapped once but less than a full period has passed
		return now - start
	default:
		return MaxTimeAtAngle
	}
}

// captureAndResetTimer records the interval that just ended and starts a new one
func (e *QuadratureEncoder) captureAndResetTimer() {
	now := e.timer.Ticks()
	e.timeAtAngle = computeTimeAtAngle(now, e.timerStartValue, e.timerRollovers)
	e.timerStartValue = now
	e.timerRollovers = 0
}

// Update is the pin-change interrupt handler. bits is the new 2-bit encoder
// reading and switchOn the state of the index switch at the same instant.
func (e *QuadratureEncoder) Update(bits uint8, switchOn bool) {
	bits &= 0x03
	inc := DecodeTransition(e.lastBits, bits)

	var delta int32
	switch inc {
	case IncPlus:
		delta = 1
	case IncMinus:
		delta = -1
	case IncAmbiguous:
		// Assume the shaft kept turning the way it was last seen to turn.
		// A skipped state means two counts moved.
		switch e.lastIncrement {
		case IncPlus:
			delta = 2
		case IncMinus:
			delta = -2
		default:
			e.errorCount++
		}
	}
	e.currentAngle += delta

	// Timing is only captured at one reading so every interval spans a
	// whole gray cycle regardless of duty asymmetry between the channels.
	if bits == 0 && delta != 0 {
		e.captureAndResetTimer()
	}

	if e.indexArmed && bits == e.indexQualifyBits && switchOn {
		e.indexDetected = true
		e.currentAngle = 0
		e.indexArmed = false
	}

	e.lastIncrement = inc
	e.lastBits = bits
}

// TimerOverflow is the timer overflow interrupt handler. It may also be
// raised from the main loop, so the count is updated with interrupts masked.
func (e *QuadratureEncoder) TimerOverflow() {
	state := disableInterrupts()
	if e.timerRollovers < maxRollovers {
		e.timerRollovers++
	}
	restoreInterrupts(state)
}

// AngleAndTime returns the current angle, the time at angle and the number
// of decode errors, and clears the error count.
//
// The time at angle is the larger of the last captured interval and the
// interval that is still running, so a shaft that stops between transitions
// reports slow instead of its last (fast) speed.
func (e *QuadratureEncoder) AngleAndTime() Snapshot {
	state := disableInterrupts()
	now := e.timer.Ticks()
	start := e.timerStartValue
	rollovers := e.timerRollovers
	captured := e.timeAtAngle
	snap := Snapshot{
		Angle:         e.currentAngle,
		Errors:        e.errorCount,
		IndexDetected: e.indexDetected,
	}
	e.errorCount = 0
	restoreInterrupts(state)

	snap.TimeAtAngle = captured
	if running := computeTimeAtAngle(now, start, rollovers); running > captured {
		snap.TimeAtAngle = running
	}
	return snap
}

// SetReading records the current encoder reading without counting a
// transition. Used at power up once the pins can be read.
func (e *QuadratureEncoder) SetReading(bits uint8) {
	state := disableInterrupts()
	e.lastBits = bits & 0x03
	e.lastIncrement = IncZero
	restoreInterrupts(state)
}

// Angle returns the raw angle without touching the error count
func (e *QuadratureEncoder) Angle() int32 {
	state := disableInterrupts()
	angle := e.currentAngle
	restoreInterrupts(state)
	return angle
}

// EnableIndexReset arms a one-shot reset of the angle to zero at the next
// index mark
func (e *QuadratureEncoder) EnableIndexReset() {
	state := disableInterrupts()
	e.indexArmed = true
	e.indexDetected = false
	restoreInterrupts(state)
}

// DisableIndexReset disarms the index reset
func (e *QuadratureEncoder) DisableIndexReset() {
	state := disableInterrupts()
	e.indexArmed = false
	restoreInterrupts(state)
}

// IndexMarkDetected reports whether the armed reset has fired
func (e *QuadratureEncoder) IndexMarkDetected() bool {
	state := disableInterrupts()
	detected := e.indexDetected
	restoreInterrupts(state)
	return detected
}

// IndexResetArmed reports whether the index reset is still waiting for a mark
func (e *QuadratureEncoder) IndexResetArmed() bool {
	state := disableInterrupts()
	armed := e.indexArmed
	restoreInterrupts(state)
	return armed
}
