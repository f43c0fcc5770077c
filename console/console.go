// Package console is the line oriented text interface to the motor
// controllers, used over the firmware's serial port and by the simulator.
//
//	speed M S   set the commanded speed of motor M (-254..255)
//	goto M A    seek motor M to angle A
//	run M       drive motor M open loop
//	brake M     brake motor M to a stop
//	home M      search for motor M's index mark
//	angle M     report motor M's angle: A[E]<angle>
//	state M     report motor M's state
//	events      dump the controller event ring to the debug writer
//
// Every command except angle and state answers OK or ERROR <reason>.
// A motor that comes to rest is announced with S<M>.
package console

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/shlex"

	"shaftpos/core"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("wrong number of arguments")
	ErrLineTooLong    = errors.New("line too long")
)

// MaxLineLength is the longest command line Feed accepts
const MaxLineLength = 40

const (
	replyAngle   = 'A'
	replyStopped = 'S'
	keyDelete    = 0x7f
	keyBackspace = 0x08
)

// Console executes command lines against a motor set and writes replies
type Console struct {
	set *core.MotorSet
	out io.Writer

	line     []byte
	overflow bool
}

// New creates a console writing replies to out
func New(set *core.MotorSet, out io.Writer) *Console {
	return &Console{
		set:  set,
		out:  out,
		line: make([]byte, 0, MaxLineLength),
	}
}

// Feed collects one received byte and executes the line on carriage return
// or newline. Lines longer than MaxLineLength are rejected whole.
func (c *Console) Feed(b byte) error {
	switch b {
	case '\r', '\n':
		if len(c.line) == 0 && !c.overflow {
			return nil
		}
		line := string(c.line)
		overflow := c.overflow
		c.line = c.line[:0]
		c.overflow = false
		if overflow {
			c.reply(ErrLineTooLong)
			return ErrLineTooLong
		}
		return c.Execute(line)
	case keyDelete, keyBackspace:
		if n := len(c.line); n > 0 {
			c.line = c.line[:n-1]
		}
	default:
		if len(c.line) == MaxLineLength {
			c.overflow = true
			return nil
		}
		c.line = append(c.line, b)
	}
	return nil
}

// Execute runs one command line and writes its reply
func (c *Console) Execute(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		c.reply(err)
		return err
	}
	if len(args) == 0 {
		return nil
	}

	err = c.dispatch(args[0], args[1:])
	if err != nil || !isQuery(args[0]) {
		c.reply(err)
	}
	return err
}

func isQuery(name string) bool {
	return name == "angle" || name == "state"
}

func (c *Console) dispatch(name string, args []string) error {
	switch name {
	case "events":
		if len(args) != 0 {
			return ErrUsage
		}
		core.DumpEventRing()
		return nil
	case "speed", "goto":
		if len(args) != 2 {
			return ErrUsage
		}
	case "run", "brake", "home", "angle", "state":
		if len(args) != 1 {
			return ErrUsage
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	id, err := parseMotor(args[0])
	if err != nil {
		return err
	}

	switch name {
	case "speed":
		speed, err := strconv.ParseInt(args[1], 10, 16)
		if err != nil {
			return fmt.Errorf("speed: %w", err)
		}
		return c.set.SetSpeed(id, int16(speed))
	case "goto":
		angle, err := strconv.ParseInt(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("angle: %w", err)
		}
		return c.set.MoveToAngle(id, int32(angle))
	case "run":
		return c.set.Run(id)
	case "brake":
		return c.set.BrakeToStop(id)
	case "home":
		return c.set.FindIndexMark(id)
	case "angle":
		return core.QueryMotorPosition(c.out, c.set, id, replyAngle)
	default: // state
		return c.reportState(id)
	}
}

func parseMotor(arg string) (core.MotorID, error) {
	n, err := strconv.ParseUint(arg, 10, 8)
	if err != nil || (core.MotorID(n) != core.Motor1 && core.MotorID(n) != core.Motor2) {
		return 0, fmt.Errorf("%w: %s", core.ErrInvalidMotor, arg)
	}
	return core.MotorID(n), nil
}

func (c *Console) reportState(id core.MotorID) error {
	ctrl, err := c.set.Controller(id)
	if err != nil {
		return err
	}
	line := ctrl.State().String()
	if ctrl.State() == core.StateFindingIndexMark {
		line += " (" + ctrl.HomingState().String() + ")"
	}
	if ctrl.IndexMarkFound() {
		line += " homed"
	}
	_, err = fmt.Fprintf(c.out, "%d %s speed=%d\n", id, line, ctrl.Speed())
	return err
}

func (c *Console) reply(err error) {
	if err != nil {
		fmt.Fprintf(c.out, "ERROR %v\n", err)
		return
	}
	io.WriteString(c.out, "OK\n")
}

// Poll runs one main loop pass of both controllers and announces motors
// that have just stopped. It returns the first error from either.
func (c *Console) Poll() error {
	var first error
	for _, id := range []core.MotorID{core.Motor1, core.Motor2} {
		stopped, err := c.set.Update(id)
		if err != nil && first == nil {
			first = err
		}
		if stopped {
			c.ReportStopped(id)
		}
	}
	return first
}

// ReportStopped announces that a motor has come to rest
func (c *Console) ReportStopped(id core.MotorID) {
	fmt.Fprintf(c.out, "%c%d\n", replyStopped, id)
}
