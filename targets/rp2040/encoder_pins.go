//go:build rp2040

package main

import (
	"machine"

	"shaftpos/core"
)

// encoderPins wires one quadrature encoder and its index switch. The
// optical switch pulls its pin low while the flag is in the slot.
type encoderPins struct {
	a, b   machine.Pin
	index  machine.Pin
	encode *core.QuadratureEncoder
}

func (p *encoderPins) reading() uint8 {
	var bits uint8
	if p.a.Get() {
		bits |= 1
	}
	if p.b.Get() {
		bits |= 2
	}
	return bits
}

func (p *encoderPins) onEdge(machine.Pin) {
	p.encode.Update(p.reading(), !p.index.Get())
}

// attach configures the pins, seeds the encoder with the current reading
// and starts counting edges
func (p *encoderPins) attach(enc *core.QuadratureEncoder) error {
	p.encode = enc
	for _, pin := range []machine.Pin{p.a, p.b, p.index} {
		pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}
	enc.SetReading(p.reading())
	if err := p.a.SetInterrupt(machine.PinToggle, p.onEdge); err != nil {
		return err
	}
	return p.b.SetInterrupt(machine.PinToggle, p.onEdge)
}
