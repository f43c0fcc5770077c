// shaftctl is an interactive shell for the shaft positioning controller,
// either on a device over its serial console or simulated in process.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"shaftpos/config"
	"shaftpos/core"
	"shaftpos/host/device"
	"shaftpos/host/serial"
)

var (
	devicePath = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud       = flag.Int("baud", 9600, "Baud rate of the controller console")
	simulate   = flag.Bool("sim", false, "Run the controller core against a simulated plant")
	speedup    = flag.Int("speedup", 1, "Simulation speed relative to real time")
	profile    = flag.String("profile", "", "Tuning profile (.json, .yaml) for the simulation")
	debug      = flag.Bool("debug", false, "Log controller debug output (simulation)")
)

func openBackend() (backend, error) {
	if !*simulate {
		cfg := serial.DefaultConfig(*devicePath)
		cfg.Baud = *baud
		glog.Infof("connecting to %s at %d baud", cfg.Device, cfg.Baud)
		return device.Connect(cfg)
	}

	prof := config.DefaultProfile()
	if *profile != "" {
		var err error
		if prof, err = config.LoadFile(*profile); err != nil {
			return nil, err
		}
	}

	core.SetDebugWriter(func(s string) { glog.Info(s) })
	core.SetDebugEnabled(*debug)

	b, err := newSimBackend(prof)
	if err != nil {
		return nil, err
	}
	glog.Infof("simulating profile %q", prof.Name)
	b.start(*speedup)
	return b, nil
}

func main() {
	flag.Parse()
	defer glog.Flush()

	b, err := openBackend()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer b.Close()

	shell := ishell.New()
	stops := newStopWaiter()
	b.OnNotify(func(line string) {
		stops.notify(line)
		glog.V(1).Infof("motor stopped: %s", line)
	})

	shell.Set(backendKey, b)
	shell.Set(stopsKey, stops)
	for _, cmd := range commands {
		shell.AddCmd(cmd)
	}

	// commands on the command line run once without a prompt
	if flag.NArg() > 0 {
		if err := shell.Process(flag.Args()...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	shell.Println("Shaft positioning controller shell ('help' for commands)")
	shell.Run()
}
