package sim

import (
	"errors"

	"shaftpos/core"
)

var ErrTimeout = errors.New("simulation did not settle in time")

// Runner couples a plant with a motor set and plays the main loop: every
// TicksPerUpdate ticks it runs one pass of the task list
type Runner struct {
	plant          *Plant
	set            *core.MotorSet
	ticksPerUpdate int
	tasks          core.TaskList

	// OnStopped is called on each just-stopped edge
	OnStopped func(id core.MotorID)

	err error
}

// NewRunner attaches the plant to the set. The first task of the main loop
// updates both controllers; callers may add more with AddTask.
func NewRunner(plant *Plant, set *core.MotorSet, ticksPerUpdate int) (*Runner, error) {
	if ticksPerUpdate <= 0 {
		ticksPerUpdate = 1
	}
	if err := plant.Attach(set); err != nil {
		return nil, err
	}
	r := &Runner{
		plant:          plant,
		set:            set,
		ticksPerUpdate: ticksPerUpdate,
	}
	r.tasks.Add(r.updateMotors)
	return r, nil
}

// Plant returns the simulated hardware
func (r *Runner) Plant() *Plant {
	return r.plant
}

// Set returns the controllers
func (r *Runner) Set() *core.MotorSet {
	return r.set
}

// AddTask adds a task to the main loop
func (r *Runner) AddTask(task core.Task) {
	r.tasks.Add(task)
}

func (r *Runner) updateMotors() {
	for _, id := range []core.MotorID{core.Motor1, core.Motor2} {
		stopped, err := r.set.Update(id)
		if err != nil && r.err == nil {
			r.err = err
		}
		if stopped && r.OnStopped != nil {
			r.OnStopped(id)
		}
	}
}

// Step advances one main loop period and runs the task list once
func (r *Runner) Step() error {
	if err := r.plant.Advance(r.ticksPerUpdate); err != nil {
		return err
	}
	r.tasks.RunOnce()
	err := r.err
	r.err = nil
	return err
}

// Run steps for at least the given number of ticks
func (r *Runner) Run(ticks int) error {
	for elapsed := 0; elapsed < ticks; elapsed += r.ticksPerUpdate {
		if err := r.Step(); err != nil {
			return err
		}
	}
	return nil
}

// RunUntilStopped steps until the motor's controller is stopped
func (r *Runner) RunUntilStopped(id core.MotorID, maxTicks int) error {
	c, err := r.set.Controller(id)
	if err != nil {
		return err
	}
	for elapsed := 0; c.State() != core.StateStopped; elapsed += r.ticksPerUpdate {
		if elapsed >= maxTicks {
			return ErrTimeout
		}
		if err := r.Step(); err != nil {
			return err
		}
	}
	return nil
}
