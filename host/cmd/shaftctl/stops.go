package main

import (
	"errors"
	"sync"
	"time"
)

var errWaitTimeout = errors.New("timed out waiting for the motor to stop")

// stopWaiter latches stop notifications until a wait consumes them
type stopWaiter struct {
	mu      sync.Mutex
	pending map[string]int
	signal  chan struct{}
}

func newStopWaiter() *stopWaiter {
	return &stopWaiter{
		pending: make(map[string]int),
		signal:  make(chan struct{}, 1),
	}
}

func (w *stopWaiter) notify(line string) {
	w.mu.Lock()
	w.pending[line]++
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *stopWaiter) take(line string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending[line] == 0 {
		return false
	}
	w.pending[line]--
	return true
}

// wait returns once the notification has been seen
func (w *stopWaiter) wait(line string, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for !w.take(line) {
		select {
		case <-w.signal:
		case <-deadline.C:
			return errWaitTimeout
		}
	}
	return nil
}
