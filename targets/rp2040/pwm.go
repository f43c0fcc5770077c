//go:build rp2040

package main

import (
	"machine"
)

// pwmPeriod of the H-bridge enable inputs, 20 kHz is above the audible range
const pwmPeriod = 1e9 / 20000 // ns

// pwmPeripheral is an interface for PWM hardware peripherals
// This abstracts over TinyGo's unexported *pwmGroup type and satisfies
// l293x.PWM
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
	SetPeriod(period uint64) error
}

// configurePWM sets up the slice driving a pin and returns its channel
func configurePWM(pin machine.Pin) (pwmPeripheral, uint8, error) {
	// RP2040: GPIO pin N maps to slice (N >> 1) & 0x7, channel N & 1
	pwm := getPWMPeripheral(uint8((uint32(pin) >> 1) & 0x7))

	err := pwm.Configure(machine.PWMConfig{
		Period: pwmPeriod,
	})
	if err != nil {
		return nil, 0, err
	}

	channel, err := pwm.Channel(pin)
	if err != nil {
		return nil, 0, err
	}
	return pwm, channel, nil
}

// getPWMPeripheral returns the PWM peripheral for a given slice number
// RP2040 has 8 PWM slices: PWM0-PWM7
func getPWMPeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	case 7:
		return machine.PWM7
	default:
		// Should never happen with proper masking
		return machine.PWM0
	}
}
