package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	"shaftpos/config"
	"shaftpos/console"
	"shaftpos/core"
	"shaftpos/sim"
)

// backend is where console lines go: a device on a serial port or an
// in-process simulation
type backend interface {
	Command(ctx context.Context, line string) (string, error)
	OnNotify(fn func(line string))
	Close() error
}

// simBackend runs the firmware core against the simulated plant
type simBackend struct {
	mu      sync.Mutex
	runner  *sim.Runner
	console *console.Console
	out     bytes.Buffer
	notify  func(line string)

	ticksPerMS int
	stop       chan struct{}
	done       chan struct{}
}

func newSimBackend(profile *config.Profile) (*simBackend, error) {
	table, err := profile.Table()
	if err != nil {
		return nil, err
	}

	motor := sim.DefaultMotorConfig()
	ticksPerUpdate := 16
	if p := profile.Plant; p != nil {
		motor = sim.MotorConfig{
			MaxVelocity:   p.MaxVelocity,
			TimeConstant:  p.TimeConstant,
			BrakeDecel:    p.BrakeDecel,
			Friction:      p.Friction,
			IndexPosition: p.IndexPosition,
			CountsPerRev:  p.CountsPerRev,
		}
		ticksPerUpdate = p.TicksPerUpdate
	}

	plant := sim.NewPlant(motor, motor)
	set, err := core.NewMotorSet(plant, plant, table, profile.Params(), profile.QualifyBits)
	if err != nil {
		return nil, err
	}
	runner, err := sim.NewRunner(plant, set, ticksPerUpdate)
	if err != nil {
		return nil, err
	}

	b := &simBackend{
		runner:     runner,
		ticksPerMS: int(core.TimerFromMS(1)),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	b.console = console.New(set, &b.out)
	runner.OnStopped = func(id core.MotorID) {
		if b.notify != nil {
			b.notify(fmt.Sprintf("S%d", id))
		}
	}
	return b, nil
}

// start runs the simulation in real time, speedup times faster
func (b *simBackend) start(speedup int) {
	if speedup < 1 {
		speedup = 1
	}
	go func() {
		defer close(b.done)
		ticker := time.NewTicker(time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-b.stop:
				return
			case <-ticker.C:
				if err := b.advance(b.ticksPerMS * speedup); err != nil {
					glog.Errorf("simulation: %v", err)
				}
			}
		}
	}()
}

func (b *simBackend) advance(ticks int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.runner.Run(ticks)
}

func (b *simBackend) Command(ctx context.Context, line string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.out.Reset()
	if err := b.console.Execute(line); err != nil {
		return "", err
	}
	reply := strings.TrimSpace(b.out.String())
	if reply == "OK" {
		return "", nil
	}
	return reply, nil
}

func (b *simBackend) OnNotify(fn func(line string)) {
	b.mu.Lock()
	b.notify = fn
	b.mu.Unlock()
}

func (b *simBackend) Close() error {
	select {
	case <-b.stop:
	default:
		close(b.stop)
		b.mu.Lock()
		elapsed := b.runner.Plant().Elapsed()
		b.mu.Unlock()
		glog.Infof("simulated %d ms", core.TimerToMS(uint32(elapsed)))
	}
	return nil
}
