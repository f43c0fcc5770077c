package core

import "errors"

var ErrInvalidMotor = errors.New("invalid motor id")

// MotorSet owns the two controller/decoder pairs sharing one timer and
// addresses them by motor id
type MotorSet struct {
	timer       TickSource
	encoders    [2]*QuadratureEncoder
	controllers [2]*MotorController
}

// NewMotorSet creates both pairs. qualifyBits holds the encoder reading at
// which each motor's index switch is sampled. Both encoders assume a zero
// reading until Encoder(id).SetReading reports the pins.
func NewMotorSet(driver MotorDriver, timer TickSource, table *BrakingTable, params Params, qualifyBits [2]uint8) (*MotorSet, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if table == nil {
		table = DefaultBrakingTable()
	}

	s := &MotorSet{timer: timer}
	for i := range s.controllers {
		id := MotorID(i + 1)
		s.encoders[i] = NewQuadratureEncoder(timer, 0, qualifyBits[i])
		s.controllers[i] = NewMotorController(id, driver, s.encoders[i], table, params)
	}
	return s, nil
}

// Controller returns the controller for a motor
func (s *MotorSet) Controller(id MotorID) (*MotorController, error) {
	if id != Motor1 && id != Motor2 {
		return nil, ErrInvalidMotor
	}
	return s.controllers[id-1], nil
}

// Encoder returns the decoder for a motor so its interrupts can be wired
func (s *MotorSet) Encoder(id MotorID) (*QuadratureEncoder, error) {
	if id != Motor1 && id != Motor2 {
		return nil, ErrInvalidMotor
	}
	return s.encoders[id-1], nil
}

// TimerOverflow is the handler for the shared timer's overflow interrupt
func (s *MotorSet) TimerOverflow() {
	for _, e := range s.encoders {
		e.TimerOverflow()
	}
}

// Update runs one pass of a motor's state machine and reports whether the
// motor has just come to rest
func (s *MotorSet) Update(id MotorID) (bool, error) {
	c, err := s.Controller(id)
	if err != nil {
		return false, err
	}
	return c.Update()
}

// GetCurrentAngle returns the motor's angle and its decode errors since the
// last query
func (s *MotorSet) GetCurrentAngle(id MotorID) (int32, uint16, error) {
	c, err := s.Controller(id)
	if err != nil {
		return 0, 0, err
	}
	angle, numErrors := c.CurrentAngle()
	return angle, numErrors, nil
}

func (s *MotorSet) SetSpeed(id MotorID, speed int16) error {
	c, err := s.Controller(id)
	if err != nil {
		return err
	}
	return c.SetSpeed(speed)
}

func (s *MotorSet) MoveToAngle(id MotorID, target int32) error {
	c, err := s.Controller(id)
	if err != nil {
		return err
	}
	return c.MoveToAngle(target)
}

func (s *MotorSet) Run(id MotorID) error {
	c, err := s.Controller(id)
	if err != nil {
		return err
	}
	return c.Run()
}

func (s *MotorSet) BrakeToStop(id MotorID) error {
	c, err := s.Controller(id)
	if err != nil {
		return err
	}
	return c.BrakeToStop()
}

func (s *MotorSet) FindIndexMark(id MotorID) error {
	c, err := s.Controller(id)
	if err != nil {
		return err
	}
	return c.FindIndexMark()
}
