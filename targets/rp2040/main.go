//go:build rp2040

package main

import (
	"machine"
	"time"

	"shaftpos/config"
	"shaftpos/console"
	"shaftpos/core"
)

// Board wiring: one L293D for both motors, encoders on GPIO10-15
var (
	motor1Bridge = bridgePins{a1: machine.GPIO2, a2: machine.GPIO3, en: machine.GPIO4}
	motor2Bridge = bridgePins{a1: machine.GPIO6, a2: machine.GPIO7, en: machine.GPIO8}

	encoders = [2]encoderPins{
		{a: machine.GPIO10, b: machine.GPIO11, index: machine.GPIO12},
		{a: machine.GPIO13, b: machine.GPIO14, index: machine.GPIO15},
	}
)

func main() {
	// CRITICAL: Disable watchdog on boot to clear any previous state
	// This prevents issues with watchdog persisting across resets
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	serial := machine.Serial
	core.SetDebugWriter(func(s string) {
		serial.Write([]byte("# " + s + "\n"))
	})

	driver, err := NewL293Driver(motor1Bridge, motor2Bridge)
	if err != nil {
		halt(err)
	}

	profile := config.DefaultProfile()
	table, err := profile.Table()
	if err != nil {
		halt(err)
	}
	// Every tick read, from the encoder interrupts or the main loop, goes
	// through the detector so a wrap is counted before any capture uses it
	overflow := core.NewOverflowDetector(encoderClock)
	set, err := core.NewMotorSet(driver, overflow, table, profile.Params(), profile.QualifyBits)
	if err != nil {
		halt(err)
	}
	overflow.OnWrap(set.TimerOverflow)

	for i := range encoders {
		enc, _ := set.Encoder(core.MotorID(i + 1))
		if err := encoders[i].attach(enc); err != nil {
			halt(err)
		}
	}

	con := console.New(set, serial)

	var tasks core.TaskList
	tasks.Add(func() {
		overflow.Poll()
	})
	tasks.Add(func() {
		// Drive failures are already in the event ring
		if err := con.Poll(); err != nil {
			core.DebugPrintln("poll: " + err.Error())
		}
	})
	tasks.Add(func() {
		for serial.Buffered() > 0 {
			b, err := serial.ReadByte()
			if err != nil {
				return
			}
			con.Feed(b)
		}
	})

	// Main loop - start immediately
	for {
		// Recover from panics in the main loop to prevent a firmware crash
		func() {
			defer func() {
				if r := recover(); r != nil {
					// Leave both motors coasting
					driver.Drive(core.Motor1, 0)
					driver.Drive(core.Motor2, 0)
					core.DebugPrintln("main loop recovered from a panic")
					core.DumpEventRing()
				}
			}()
			tasks.RunOnce()
		}()

		// Yield to other goroutines
		time.Sleep(10 * time.Microsecond)
	}
}

// halt reports a boot failure forever
func halt(err error) {
	for {
		machine.Serial.Write([]byte("ERROR " + err.Error() + "\n"))
		time.Sleep(time.Second)
	}
}
