package core

// MotorID selects one of the two motor/encoder pairs (1 or 2)
type MotorID uint8

const (
	Motor1 MotorID = 1
	Motor2 MotorID = 2
)

// Signed duty limits accepted by the drive stage
const (
	MaxForwardSpeed = 255
	MaxReverseSpeed = -254
)

// MotorDriver is the abstract drive stage that the controllers use.
// Platform-specific implementations handle the actual H-bridge.
type MotorDriver interface {
	// Drive runs the motor open loop at a signed duty.
	// Positive values increase the encoder angle, negative decrease it,
	// zero lets the motor coast.
	Drive(id MotorID, speed int16) error

	// Brake shorts the motor windings (active electrical braking).
	// This is distinct from Drive(id, 0), which coasts.
	Brake(id MotorID) error
}

// TickSource reads the shared free-running 16-bit hardware timer.
// The overflow of this timer must be reported to every encoder through
// QuadratureEncoder.TimerOverflow (or MotorSet.TimerOverflow).
type TickSource interface {
	Ticks() uint16
}

// TickFunc adapts a plain function to TickSource
type TickFunc func() uint16

// Ticks implements TickSource
func (f TickFunc) Ticks() uint16 {
	return f()
}
