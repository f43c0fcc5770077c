package core

import (
	"errors"
	"testing"
)

// fakeTimer is a TickSource the test sets by hand
type fakeTimer struct {
	now uint16
}

func (t *fakeTimer) Ticks() uint16 {
	return t.now
}

type driveCall struct {
	id    MotorID
	speed int16
	brake bool
}

// fakeDriver records every drive stage call
type fakeDriver struct {
	calls []driveCall
	fail  bool
}

var errDriveFailed = errors.New("drive failed")

func (d *fakeDriver) Drive(id MotorID, speed int16) error {
	d.calls = append(d.calls, driveCall{id: id, speed: speed})
	if d.fail {
		return errDriveFailed
	}
	return nil
}

func (d *fakeDriver) Brake(id MotorID) error {
	d.calls = append(d.calls, driveCall{id: id, brake: true})
	if d.fail {
		return errDriveFailed
	}
	return nil
}

func (d *fakeDriver) last() (driveCall, bool) {
	if len(d.calls) == 0 {
		return driveCall{}, false
	}
	return d.calls[len(d.calls)-1], true
}

// grayForward is the reading sequence of a shaft turning forward
var grayForward = [4]uint8{0, 1, 3, 2}

// stepEncoder moves an encoder n counts from the given reading (negative n
// turns backward) and returns the final reading
func stepEncoder(e *QuadratureEncoder, bits uint8, n int) uint8 {
	pos := 0
	for i, b := range grayForward {
		if b == bits {
			pos = i
		}
	}
	for ; n > 0; n-- {
		pos = (pos + 1) % 4
		e.Update(grayForward[pos], false)
	}
	for ; n < 0; n++ {
		pos = (pos + 3) % 4
		e.Update(grayForward[pos], false)
	}
	return grayForward[pos]
}

// rig is one controller wired to fakes. The shaft only moves when the test
// turns it.
type rig struct {
	timer  *fakeTimer
	driver *fakeDriver
	enc    *QuadratureEncoder
	c      *MotorController
	pos    int // index into grayForward
	step   uint16
}

// flatTable predicts no coast at any measurable speed
var flatTable = &BrakingTable{distances: []uint16{0}}

func newRig(params Params, table *BrakingTable, qualifyBits uint8) *rig {
	r := &rig{
		timer:  &fakeTimer{now: 1},
		driver: &fakeDriver{},
		step:   25,
	}
	r.enc = NewQuadratureEncoder(r.timer, 0, qualifyBits)
	r.c = NewMotorController(Motor1, r.driver, r.enc, table, params)
	return r
}

// advance moves the timer, raising overflows on wrap
func (r *rig) advance(ticks uint32) {
	for ticks > 0 {
		d := uint16(0xFFFF)
		if ticks < 0xFFFF {
			d = uint16(ticks)
		}
		before := r.timer.now
		r.timer.now += d
		if r.timer.now < before {
			r.enc.TimerOverflow()
		}
		ticks -= uint32(d)
	}
}

// turn moves the shaft n counts, r.step ticks apart
func (r *rig) turn(n int) {
	for n != 0 {
		r.advance(uint32(r.step))
		if n > 0 {
			r.pos = (r.pos + 1) % 4
			n--
		} else {
			r.pos = (r.pos + 3) % 4
			n++
		}
		r.enc.Update(grayForward[r.pos], false)
	}
}

// turnOverSwitch moves the shaft one count forward with the index switch on
func (r *rig) turnOverSwitch() {
	r.advance(uint32(r.step))
	r.pos = (r.pos + 1) % 4
	r.enc.Update(grayForward[r.pos], true)
}

// settle lets the shaft sit long enough to count as stopped
func (r *rig) settle() {
	r.advance(uint32(r.c.params.StoppedTime) + 1)
}

func (r *rig) update(t *testing.T) bool {
	t.Helper()
	stopped, err := r.c.Update()
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	return stopped
}
