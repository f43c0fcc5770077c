package core

// HomingState is the step of an index mark search
type HomingState uint8

const (
	HomingStartSearch HomingState = iota
	HomingSearchingForward
	HomingBrakingAfterForwardSearch
	HomingSearchingReverse
	HomingBrakingAfterReverseSearch
	HomingBrakingAfterFindingMark
)

// String returns the state name
func (s HomingState) String() string {
	switch s {
	case HomingStartSearch:
		return "start"
	case HomingSearchingForward:
		return "searching forward"
	case HomingBrakingAfterForwardSearch:
		return "braking after forward search"
	case HomingSearchingReverse:
		return "searching reverse"
	case HomingBrakingAfterReverseSearch:
		return "braking after reverse search"
	case HomingBrakingAfterFindingMark:
		return "braking after finding mark"
	default:
		return "unknown"
	}
}

// HomingState returns the step of the current (or last) index mark search
func (c *MotorController) HomingState() HomingState {
	return c.homingState
}

// IndexMarkFound reports whether the last index mark search found the mark.
// Both outcomes end in StateStopped; this is the only way to tell them apart.
func (c *MotorController) IndexMarkFound() bool {
	return c.indexFound
}

// findIndexMark is one step of the index mark search. The search sweeps
// forward, then back twice as far, and gives up by returning to where it
// started.
func (c *MotorController) findIndexMark() error {
	switch c.homingState {
	case HomingStartSearch:
		c.encoder.EnableIndexReset()
		snap := c.snapshot()
		c.searchStartAngle = snap.Angle
		c.searchLimitAngle = snap.Angle + c.params.SearchSweep
		c.setHomingState(HomingSearchingForward)
		return c.drive(c.params.SearchSpeed)

	case HomingSearchingForward:
		snap := c.snapshot()
		if snap.IndexDetected {
			return c.brakeOnMark(snap)
		}
		if snap.Angle >= c.searchLimitAngle {
			c.setHomingState(HomingBrakingAfterForwardSearch)
			return c.brakeMotor(snap.Angle, 0)
		}

	case HomingBrakingAfterForwardSearch:
		snap := c.snapshot()
		if snap.IndexDetected {
			// coasted onto the mark while braking
			return c.brakeOnMark(snap)
		}
		if c.isStopped(snap) {
			c.searchLimitAngle = snap.Angle - 2*c.params.SearchSweep
			c.setHomingState(HomingSearchingReverse)
			return c.drive(-c.params.SearchSpeed)
		}

	case HomingSearchingReverse:
		snap := c.snapshot()
		if snap.IndexDetected {
			return c.brakeOnMark(snap)
		}
		if snap.Angle <= c.searchLimitAngle {
			c.setHomingState(HomingBrakingAfterReverseSearch)
			return c.brakeMotor(snap.Angle, 0)
		}

	case HomingBrakingAfterReverseSearch:
		snap := c.snapshot()
		if snap.IndexDetected {
			return c.brakeOnMark(snap)
		}
		if c.isStopped(snap) {
			c.encoder.DisableIndexReset()
			RecordEvent(EvtHomingFailed, c.id, c.ticks(), c.searchStartAngle, snap.Angle)
			return c.startSeeking(c.searchStartAngle, c.homingSeekSpeed())
		}

	case HomingBrakingAfterFindingMark:
		snap := c.snapshot()
		if c.isStopped(snap) {
			c.indexFound = true
			RecordEvent(EvtIndexFound, c.id, c.ticks(), snap.Angle, 0)
			return c.startSeeking(0, c.homingSeekSpeed())
		}
	}
	return nil
}

func (c *MotorController) brakeOnMark(snap Snapshot) error {
	c.setHomingState(HomingBrakingAfterFindingMark)
	return c.brakeMotor(snap.Angle, 0)
}

// homingSeekSpeed is the speed magnitude of the seek that ends a search
func (c *MotorController) homingSeekSpeed() int16 {
	if c.speed == 0 {
		return c.params.SearchSpeed
	}
	return absSpeed(c.speed)
}

func (c *MotorController) setHomingState(state HomingState) {
	if debugEnabled && state != c.homingState {
		DebugPrintln("motor " + itoa(int(c.id)) + " homing: " + c.homingState.String() + " -> " + state.String())
	}
	c.homingState = state
}
