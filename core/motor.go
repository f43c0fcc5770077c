// Motor controller
// Closed-loop angle positioning for a gearmotor shaft using its optical
// encoder. Each controller is driven by periodic calls to Update from the
// main loop; commands take effect immediately and replace whatever the
// controller was doing.
package core

import "errors"

var (
	ErrSpeedOutOfRange = errors.New("motor speed out of range")
	ErrZeroSeekSpeed   = errors.New("cannot seek an angle with zero speed")
	ErrInvalidParams   = errors.New("invalid motor controller parameters")
)

// ControllerState is the top level operating state of a controller
type ControllerState uint8

const (
	StateStopped ControllerState = iota
	StateRunning
	StateSeekingAngle
	StateFindingIndexMark
	StateBraking
)

// String returns the state name
func (s ControllerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateSeekingAngle:
		return "seeking"
	case StateFindingIndexMark:
		return "homing"
	case StateBraking:
		return "braking"
	default:
		return "unknown"
	}
}

// Params holds the tuning of a controller
type Params struct {
	// StoppedTime is the number of timer ticks without a transition after
	// which the shaft is considered at rest. Must exceed the longest
	// transition period seen while coasting.
	StoppedTime uint16

	// Deadband is how close to the target a seek brakes without consulting
	// the braking table
	Deadband int32

	SearchSpeed  int16 // index mark search duty
	SearchSweep  int32 // forward sweep, the reverse sweep is twice this
	DefaultSpeed int16 // commanded speed at power up
}

// DefaultParams returns the tuning of the original gearmotor
func DefaultParams() Params {
	return Params{
		StoppedTime:  4000,
		Deadband:     50,
		SearchSpeed:  100,
		SearchSweep:  6000,
		DefaultSpeed: 64,
	}
}

// Validate checks that the parameters can drive a controller
func (p Params) Validate() error {
	switch {
	case p.StoppedTime == 0:
		return &ParamError{Param: "stopped time", Reason: "must be positive"}
	case p.Deadband < 0:
		return &ParamError{Param: "deadband", Reason: "must not be negative"}
	case p.SearchSpeed <= 0 || !speedInRange(-p.SearchSpeed):
		return &ParamError{Param: "search speed", Reason: "must be positive and within drive limits both ways"}
	case p.SearchSweep <= 0:
		return &ParamError{Param: "search sweep", Reason: "must be positive"}
	case !speedInRange(p.DefaultSpeed):
		return &ParamError{Param: "default speed", Reason: "out of drive limits"}
	}
	return nil
}

// ParamError reports which parameter failed validation
type ParamError struct {
	Param  string
	Reason string
}

func (e *ParamError) Error() string {
	return "invalid " + e.Param + ": " + e.Reason
}

func (e *ParamError) Unwrap() error {
	return ErrInvalidParams
}

func speedInRange(speed int16) bool {
	return speed >= MaxReverseSpeed && speed <= MaxForwardSpeed
}

func absSpeed(speed int16) int16 {
	if speed < 0 {
		return -speed
	}
	return speed
}

// MotorController positions one motor shaft
type MotorController struct {
	id      MotorID
	driver  MotorDriver
	encoder *QuadratureEncoder
	table   *BrakingTable
	params  Params

	state     ControllerState
	speed     int16
	numErrors uint16 // accumulated from the encoder until read

	// used during seek to angle
	targetAngle int32
	seekSpeed   int16 // magnitude of speed, sign locked toward the target at seek start

	// used during search for index mark
	homingState      HomingState
	searchStartAngle int32
	searchLimitAngle int32
	indexFound       bool
}

// NewMotorController creates a stopped controller
func NewMotorController(id MotorID, driver MotorDriver, encoder *QuadratureEncoder, table *BrakingTable, params Params) *MotorController {
	return &MotorController{
		id:      id,
		driver:  driver,
		encoder: encoder,
		table:   table,
		params:  params,
		state:   StateStopped,
		speed:   params.DefaultSpeed,
	}
}

// ID returns the motor this controller drives
func (c *MotorController) ID() MotorID {
	return c.id
}

// State returns the top level state
func (c *MotorController) State() ControllerState {
	return c.state
}

// Speed returns the commanded speed
func (c *MotorController) Speed() int16 {
	return c.speed
}

// SeekSpeed returns the signed speed of the current (or last) seek
func (c *MotorController) SeekSpeed() int16 {
	return c.seekSpeed
}

// TargetAngle returns the target of the current (or last) seek
func (c *MotorController) TargetAngle() int32 {
	return c.targetAngle
}

// Update advances the state machine from one encoder snapshot. It reports
// true exactly once when a braking motor comes to rest.
func (c *MotorController) Update() (justStopped bool, err error) {
	switch c.state {
	case StateStopped, StateRunning:
		// nothing to do until the next command
	case StateSeekingAngle:
		err = c.seekAngle(c.snapshot())
	case StateFindingIndexMark:
		err = c.findIndexMark()
	case StateBraking:
		if c.isStopped(c.snapshot()) {
			c.setState(StateStopped)
			justStopped = true
		}
	}
	return justStopped, err
}

// CurrentAngle returns the shaft angle and the decode errors seen since the
// last call, then clears the error count
func (c *MotorController) CurrentAngle() (angle int32, numErrors uint16) {
	snap := c.encoder.AngleAndTime()
	numErrors = addSaturating(c.numErrors, snap.Errors)
	c.numErrors = 0
	return snap.Angle, numErrors
}

// SetSpeed sets the signed speed used by Run, and the magnitude used by
// MoveToAngle. A running motor changes speed at once.
func (c *MotorController) SetSpeed(speed int16) error {
	if !speedInRange(speed) {
		return ErrSpeedOutOfRange
	}
	c.speed = speed
	if c.state == StateRunning {
		return c.drive(speed)
	}
	return nil
}

// Run drives the motor open loop at the commanded speed until braked
func (c *MotorController) Run() error {
	c.leaveHoming()
	c.setState(StateRunning)
	return c.drive(c.speed)
}

// MoveToAngle starts a closed-loop seek. Update reports when the motor has
// stopped at (or near) the target.
func (c *MotorController) MoveToAngle(target int32) error {
	if c.speed == 0 {
		return ErrZeroSeekSpeed
	}
	c.leaveHoming()
	return c.startSeeking(target, absSpeed(c.speed))
}

// BrakeToStop brakes a moving motor. Update reports when it has stopped.
// A stopped or already braking motor is left alone.
func (c *MotorController) BrakeToStop() error {
	switch c.state {
	case StateRunning, StateSeekingAngle, StateFindingIndexMark:
		c.leaveHoming()
		c.setState(StateBraking)
		return c.brakeMotor(c.encoder.Angle(), 0)
	}
	return nil
}

// FindIndexMark starts searching for the index mark. The angle is reset to
// zero when the mark is found; Update reports when the search is over.
func (c *MotorController) FindIndexMark() error {
	c.setState(StateFindingIndexMark)
	c.homingState = HomingStartSearch
	c.indexFound = false
	return nil
}

// startSeeking locks the seek direction from the current angle and takes
// the first seek step at once
func (c *MotorController) startSeeking(target int32, magnitude int16) error {
	snap := c.snapshot()
	c.targetAngle = target
	if target > snap.Angle {
		c.seekSpeed = magnitude
	} else {
		c.seekSpeed = -magnitude
	}
	c.setState(StateSeekingAngle)
	return c.seekAngle(snap)
}

// seekAngle is one step of the seek loop
func (c *MotorController) seekAngle(snap Snapshot) error {
	remaining := int64(c.targetAngle) - int64(snap.Angle)
	if c.seekSpeed < 0 {
		remaining = -remaining
	}

	if remaining <= int64(c.params.Deadband) {
		// close enough to the target, or overshot
		c.setState(StateBraking)
		return c.brakeMotor(snap.Angle, 0)
	}

	predicted := c.table.PredictedDistance(snap.TimeAtAngle)
	if remaining <= int64(predicted) {
		// at this speed the shaft coasts the rest of the way
		c.setState(StateBraking)
		return c.brakeMotor(snap.Angle, predicted)
	}

	return c.drive(c.seekSpeed)
}

// snapshot reads the encoder once and folds its errors into the total
func (c *MotorController) snapshot() Snapshot {
	snap := c.encoder.AngleAndTime()
	if snap.Errors > 0 {
		c.numErrors = addSaturating(c.numErrors, snap.Errors)
		RecordEvent(EvtEncoderErrors, c.id, c.ticks(), int32(snap.Errors), 0)
	}
	return snap
}

func (c *MotorController) isStopped(snap Snapshot) bool {
	return snap.TimeAtAngle >= c.params.StoppedTime
}

// leaveHoming disarms the index reset when a command interrupts a search
func (c *MotorController) leaveHoming() {
	if c.state == StateFindingIndexMark {
		c.encoder.DisableIndexReset()
	}
}

func (c *MotorController) setState(state ControllerState) {
	if state != c.state {
		RecordEvent(EvtStateChange, c.id, c.ticks(), int32(c.state), int32(state))
		if debugEnabled {
			DebugPrintln("motor " + itoa(int(c.id)) + ": " + c.state.String() + " -> " + state.String())
		}
	}
	c.state = state
}

func (c *MotorController) drive(speed int16) error {
	if err := c.driver.Drive(c.id, speed); err != nil {
		RecordEvent(EvtDriveError, c.id, c.ticks(), int32(speed), 0)
		return err
	}
	return nil
}

func (c *MotorController) brakeMotor(angle int32, predicted uint16) error {
	RecordEvent(EvtBrake, c.id, c.ticks(), angle, int32(predicted))
	if err := c.driver.Brake(c.id); err != nil {
		RecordEvent(EvtDriveError, c.id, c.ticks(), 0, 0)
		return err
	}
	return nil
}

func (c *MotorController) ticks() uint16 {
	return c.encoder.timer.Ticks()
}

func addSaturating(a, b uint16) uint16 {
	if sum := a + b; sum >= a {
		return sum
	}
	return 0xFFFF
}
