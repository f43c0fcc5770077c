package console

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"shaftpos/core"
)

type nullDriver struct {
	drives []int16
}

func (d *nullDriver) Drive(id core.MotorID, speed int16) error {
	d.drives = append(d.drives, speed)
	return nil
}

func (d *nullDriver) Brake(id core.MotorID) error {
	return nil
}

type stepTimer struct {
	now uint16
}

func (t *stepTimer) Ticks() uint16 {
	return t.now
}

func newConsole(t *testing.T) (*Console, *bytes.Buffer, *nullDriver, *stepTimer) {
	t.Helper()
	driver := &nullDriver{}
	timer := &stepTimer{}
	set, err := core.NewMotorSet(driver, timer, nil, core.DefaultParams(), [2]uint8{})
	if err != nil {
		t.Fatalf("NewMotorSet failed: %v", err)
	}
	var out bytes.Buffer
	return New(set, &out), &out, driver, timer
}

func TestExecuteCommands(t *testing.T) {
	c, out, driver, _ := newConsole(t)

	if err := c.Execute("speed 1 -120"); err != nil {
		t.Fatalf("speed failed: %v", err)
	}
	if err := c.Execute("run 1"); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(driver.drives) != 1 || driver.drives[0] != -120 {
		t.Errorf("Expected one drive at -120, got %v", driver.drives)
	}
	if err := c.Execute("state 1"); err != nil {
		t.Fatalf("state failed: %v", err)
	}

	want := "OK\nOK\n1 running speed=-120\n"
	if out.String() != want {
		t.Errorf("Expected %q, got %q", want, out.String())
	}
}

func TestExecuteAngle(t *testing.T) {
	c, out, _, _ := newConsole(t)

	enc, _ := c.set.Encoder(core.Motor2)
	enc.Update(2, false)
	enc.Update(3, false) // two counts backward

	if err := c.Execute("angle 2"); err != nil {
		t.Fatalf("angle failed: %v", err)
	}
	if out.String() != "A-2\n" {
		t.Errorf("Expected A-2, got %q", out.String())
	}
}

func TestExecuteErrors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"spin 1", ErrUnknownCommand},
		{"run", ErrUsage},
		{"goto 1", ErrUsage},
		{"run 3", core.ErrInvalidMotor},
		{"run x", core.ErrInvalidMotor},
		{"speed 1 300", core.ErrSpeedOutOfRange},
		{"angle 0", core.ErrInvalidMotor},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			c, out, _, _ := newConsole(t)
			err := c.Execute(tt.line)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
			if !strings.HasPrefix(out.String(), "ERROR ") {
				t.Errorf("Expected an ERROR reply, got %q", out.String())
			}
		})
	}
}

func TestExecuteBadNumber(t *testing.T) {
	c, out, _, _ := newConsole(t)
	if err := c.Execute("goto 1 far"); err == nil {
		t.Error("Expected an error")
	}
	if !strings.HasPrefix(out.String(), "ERROR angle:") {
		t.Errorf("Expected an angle error, got %q", out.String())
	}
}

func TestExecuteQuoting(t *testing.T) {
	c, out, _, _ := newConsole(t)
	if err := c.Execute(`  goto "1"   '-500'  `); err != nil {
		t.Fatalf("goto failed: %v", err)
	}
	if out.String() != "OK\n" {
		t.Errorf("Expected OK, got %q", out.String())
	}
	if err := c.Execute(""); err != nil {
		t.Errorf("Expected a blank line to be ignored, got %v", err)
	}
}

func TestFeed(t *testing.T) {
	c, out, driver, _ := newConsole(t)

	for _, b := range []byte("rux\x7fn 2\r\n") {
		if err := c.Feed(b); err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
	}
	if out.String() != "OK\n" {
		t.Errorf("Expected OK, got %q", out.String())
	}
	if len(driver.drives) != 1 {
		t.Errorf("Expected one drive, got %v", driver.drives)
	}

	out.Reset()
	long := strings.Repeat("x", MaxLineLength+5) + "\r"
	var err error
	for _, b := range []byte(long) {
		err = c.Feed(b)
	}
	if !errors.Is(err, ErrLineTooLong) {
		t.Errorf("Expected ErrLineTooLong, got %v", err)
	}

	// the console recovers on the next line
	out.Reset()
	for _, b := range []byte("brake 2\r") {
		c.Feed(b)
	}
	if out.String() != "OK\n" {
		t.Errorf("Expected OK, got %q", out.String())
	}
}

func TestPollReportsStop(t *testing.T) {
	c, out, _, timer := newConsole(t)

	c.Execute("run 1")
	c.Execute("brake 1")
	out.Reset()

	if err := c.Poll(); err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	// motor 1 has never turned so it already reads as stalled
	if out.String() != "S1\n" {
		t.Errorf("Expected S1, got %q", out.String())
	}

	out.Reset()
	timer.now += 5000
	c.Poll()
	if out.String() != "" {
		t.Errorf("Expected no more reports, got %q", out.String())
	}
}
