//go:build rp2040

package main

import (
	"machine"

	"tinygo.org/x/drivers/l293x"

	"shaftpos/core"
)

// bridgePins wires one motor to half of an L293D
type bridgePins struct {
	a1, a2 machine.Pin // direction inputs
	en     machine.Pin // enable, PWM
}

type bridge struct {
	dev     l293x.PWMDevice
	pins    bridgePins
	pwm     pwmPeripheral
	channel uint8
}

// L293Driver implements core.MotorDriver on an L293D dual H-bridge
type L293Driver struct {
	bridges [2]bridge
}

// NewL293Driver configures both bridges, motors coasting
func NewL293Driver(motor1, motor2 bridgePins) (*L293Driver, error) {
	d := &L293Driver{}
	for i, pins := range [2]bridgePins{motor1, motor2} {
		pwm, channel, err := configurePWM(pins.en)
		if err != nil {
			return nil, err
		}
		dev := l293x.NewWithSpeed(pins.a1, pins.a2, channel, pwm)
		if err := dev.Configure(); err != nil {
			return nil, err
		}
		d.bridges[i] = bridge{dev: dev, pins: pins, pwm: pwm, channel: channel}
	}
	return d, nil
}

func (d *L293Driver) bridge(id core.MotorID) (*bridge, error) {
	if id != core.Motor1 && id != core.Motor2 {
		return nil, core.ErrInvalidMotor
	}
	return &d.bridges[id-1], nil
}

// dutyPercent scales a duty magnitude to the driver's percentage, rounding
// up so a small non-zero duty still turns the motor
func dutyPercent(magnitude int16) uint32 {
	return (uint32(magnitude)*100 + core.MaxForwardSpeed - 1) / core.MaxForwardSpeed
}

// Drive implements core.MotorDriver
func (d *L293Driver) Drive(id core.MotorID, speed int16) error {
	b, err := d.bridge(id)
	if err != nil {
		return err
	}
	switch {
	case speed > 0:
		b.dev.Forward(dutyPercent(speed))
	case speed < 0:
		b.dev.Backward(dutyPercent(-speed))
	default:
		b.dev.Stop()
	}
	return nil
}

// Brake implements core.MotorDriver by pulling both motor terminals high
// with the bridge fully enabled
func (d *L293Driver) Brake(id core.MotorID) error {
	b, err := d.bridge(id)
	if err != nil {
		return err
	}
	b.pins.a1.High()
	b.pins.a2.High()
	b.pwm.Set(b.channel, b.pwm.Top())
	return nil
}
