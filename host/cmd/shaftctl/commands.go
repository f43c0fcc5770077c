package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
)

const (
	backendKey = "$backend"
	stopsKey   = "$stops"
)

var commandTimeout = 2 * time.Second

func backendFrom(c *ishell.Context) backend {
	return c.Get(backendKey).(backend)
}

func stopsFrom(c *ishell.Context) *stopWaiter {
	return c.Get(stopsKey).(*stopWaiter)
}

// consoleCmd forwards the shell command to the controller console as is
func consoleCmd(name, usage, help string, nargs int) *ishell.Cmd {
	return &ishell.Cmd{
		Name:      name,
		Help:      usage + " - " + help,
		Completer: motorCompleter,
		Func: func(c *ishell.Context) {
			if len(c.Args) != nargs {
				c.Err(fmt.Errorf("usage: %s", usage))
				return
			}
			runLine(c, strings.Join(append([]string{name}, c.Args...), " "))
		},
	}
}

func motorCompleter(args []string) []string {
	if len(args) == 0 {
		return []string{"1", "2"}
	}
	return nil
}

func runLine(c *ishell.Context, line string) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	reply, err := backendFrom(c).Command(ctx, line)
	if err != nil {
		c.Err(err)
		return
	}
	if reply == "" {
		reply = "OK"
	}
	c.Println(reply)
}

var commands = []*ishell.Cmd{
	consoleCmd("speed", "speed <motor> <speed>", "set the commanded speed (-254..255)", 2),
	consoleCmd("goto", "goto <motor> <angle>", "seek an angle", 2),
	consoleCmd("run", "run <motor>", "drive open loop at the commanded speed", 1),
	consoleCmd("brake", "brake <motor>", "brake to a stop", 1),
	consoleCmd("home", "home <motor>", "search for the index mark", 1),
	consoleCmd("angle", "angle <motor>", "report the angle and decode errors", 1),
	consoleCmd("state", "state <motor>", "report the controller state", 1),
	consoleCmd("events", "events", "dump the controller event ring", 0),
	{
		Name: "raw",
		Help: "raw <line> - send a console line unchanged",
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(errors.New("usage: raw <line>"))
				return
			}
			runLine(c, strings.Join(c.Args, " "))
		},
	},
	{
		Name:      "wait",
		Help:      "wait <motor> [seconds] - wait until the motor reports stopped",
		Completer: motorCompleter,
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 || len(c.Args) > 2 {
				c.Err(errors.New("usage: wait <motor> [seconds]"))
				return
			}
			timeout := 30 * time.Second
			if len(c.Args) == 2 {
				secs, err := strconv.ParseFloat(c.Args[1], 64)
				if err != nil {
					c.Err(fmt.Errorf("seconds: %w", err))
					return
				}
				timeout = time.Duration(secs * float64(time.Second))
			}
			if err := stopsFrom(c).wait("S"+c.Args[0], timeout); err != nil {
				c.Err(err)
				return
			}
			c.Println("stopped")
		},
	},
}
