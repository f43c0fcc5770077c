// Package sim models the motors, encoders, index switches and timer that the
// controllers drive, raising the encoder and timer interrupts in software.
package sim

import (
	"errors"
	"math"

	"shaftpos/core"
)

var ErrNotAttached = errors.New("plant has no interrupt handlers attached")

// grayCode is the encoder reading at each count
var grayCode = [4]uint8{0, 1, 3, 2}

// MotorConfig describes one gear motor and its encoder disc
type MotorConfig struct {
	MaxVelocity   float64 // counts per tick at full forward duty
	TimeConstant  float64 // ticks to reach the commanded velocity, instant when <= 0
	BrakeDecel    float64 // counts per tick^2 while braking, instant when <= 0
	Friction      float64 // counts per tick^2 while coasting
	IndexPosition int32   // count at the centre of the index switch window
	CountsPerRev  int32   // the switch window repeats every revolution, never when <= 0
	StartPosition int32   // count at power up
}

// DefaultMotorConfig is a slow gear motor that crosses its index mark a
// quarter turn from power up
func DefaultMotorConfig() MotorConfig {
	return MotorConfig{
		MaxVelocity:   0.05,
		TimeConstant:  200,
		BrakeDecel:    0.0005,
		Friction:      0.00002,
		IndexPosition: 1000,
		CountsPerRev:  4000,
	}
}

// Motor is the state of one simulated shaft
type Motor struct {
	cfg      MotorConfig
	position float64 // in counts
	velocity float64 // counts per tick
	duty     int16
	braking  bool
	count    int64
}

func newMotor(cfg MotorConfig) *Motor {
	return &Motor{
		cfg:      cfg,
		position: float64(cfg.StartPosition) + 0.5,
		count:    int64(cfg.StartPosition),
	}
}

// Count returns the physical position in whole counts
func (m *Motor) Count() int64 {
	return m.count
}

// Velocity returns the shaft speed in counts per tick
func (m *Motor) Velocity() float64 {
	return m.velocity
}

// Duty returns the last drive command, zero while braking
func (m *Motor) Duty() int16 {
	return m.duty
}

// Braking reports whether the windings are shorted
func (m *Motor) Braking() bool {
	return m.braking
}

// Reading returns the 2-bit encoder output at a count
func Reading(count int64) uint8 {
	return grayCode[((count%4)+4)%4]
}

// switchOn reports whether the index switch sees its mark at a count. The
// window is four counts wide so every reading occurs once inside it.
func (m *Motor) switchOn(count int64) bool {
	offset := count - int64(m.cfg.IndexPosition)
	if rev := int64(m.cfg.CountsPerRev); rev > 0 {
		offset = ((offset % rev) + rev) % rev
		if offset > rev/2 {
			offset -= rev
		}
	}
	return offset >= -1 && offset <= 2
}

func approach(v, target, step float64) float64 {
	if v < target {
		return math.Min(v+step, target)
	}
	return math.Max(v-step, target)
}

// tick advances the shaft by one timer tick
func (m *Motor) tick() {
	switch {
	case m.braking:
		if m.cfg.BrakeDecel <= 0 {
			m.velocity = 0
		} else {
			m.velocity = approach(m.velocity, 0, m.cfg.BrakeDecel)
		}
	case m.duty == 0:
		m.velocity = approach(m.velocity, 0, m.cfg.Friction)
	default:
		target := float64(m.duty) / core.MaxForwardSpeed * m.cfg.MaxVelocity
		if m.cfg.TimeConstant <= 0 {
			m.velocity = target
		} else {
			m.velocity += (target - m.velocity) / m.cfg.TimeConstant
		}
	}
	m.position += m.velocity
}

// Plant is both simulated motors sharing one 16-bit timer. It is the drive
// stage and the tick source of a core.MotorSet.
type Plant struct {
	timer  uint16
	ticks  uint64
	motors [2]*Motor
	irq    Interrupts
}

// Interrupts are the handlers the plant raises, satisfied by core.MotorSet
type Interrupts interface {
	Encoder(id core.MotorID) (*core.QuadratureEncoder, error)
	TimerOverflow()
}

// NewPlant creates both motors
func NewPlant(motor1, motor2 MotorConfig) *Plant {
	return &Plant{
		motors: [2]*Motor{newMotor(motor1), newMotor(motor2)},
	}
}

// Attach connects the interrupt handlers and reports the power up encoder
// readings to them
func (p *Plant) Attach(irq Interrupts) error {
	for i, m := range p.motors {
		enc, err := irq.Encoder(core.MotorID(i + 1))
		if err != nil {
			return err
		}
		enc.SetReading(Reading(m.count))
	}
	p.irq = irq
	return nil
}

// Motor returns one simulated shaft
func (p *Plant) Motor(id core.MotorID) (*Motor, error) {
	if id != core.Motor1 && id != core.Motor2 {
		return nil, core.ErrInvalidMotor
	}
	return p.motors[id-1], nil
}

// Ticks implements core.TickSource
func (p *Plant) Ticks() uint16 {
	return p.timer
}

// Elapsed returns the ticks simulated so far
func (p *Plant) Elapsed() uint64 {
	return p.ticks
}

// Drive implements core.MotorDriver
func (p *Plant) Drive(id core.MotorID, speed int16) error {
	m, err := p.Motor(id)
	if err != nil {
		return err
	}
	if speed > core.MaxForwardSpeed || speed < core.MaxReverseSpeed {
		return core.ErrSpeedOutOfRange
	}
	m.duty = speed
	m.braking = false
	return nil
}

// Brake implements core.MotorDriver
func (p *Plant) Brake(id core.MotorID) error {
	m, err := p.Motor(id)
	if err != nil {
		return err
	}
	m.duty = 0
	m.braking = true
	return nil
}

// Advance runs the plant for a number of ticks, raising an encoder
// interrupt for every count crossed and a timer interrupt on every wrap
func (p *Plant) Advance(ticks int) error {
	if p.irq == nil {
		return ErrNotAttached
	}
	var encoders [2]*core.QuadratureEncoder
	for i := range encoders {
		enc, err := p.irq.Encoder(core.MotorID(i + 1))
		if err != nil {
			return err
		}
		encoders[i] = enc
	}

	for ; ticks > 0; ticks-- {
		p.ticks++
		p.timer++
		if p.timer == 0 {
			p.irq.TimerOverflow()
		}

		for i, m := range p.motors {
			m.tick()
			next := int64(math.Floor(m.position))
			for m.count != next {
				if next > m.count {
					m.count++
				} else {
					m.count--
				}
				encoders[i].Update(Reading(m.count), m.switchOn(m.count))
			}
		}
	}
	return nil
}
