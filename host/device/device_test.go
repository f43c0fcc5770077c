package device

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"
)

type pipePort struct {
	net.Conn
	flushed bool
}

func (p *pipePort) Flush() error {
	p.flushed = true
	return nil
}

// fakeFirmware answers console lines with canned replies
func fakeFirmware(t *testing.T, conn net.Conn, replies map[string][]string) {
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\r')
		if err != nil {
			return
		}
		for _, reply := range replies[strings.TrimSuffix(line, "\r")] {
			if _, err := conn.Write([]byte(reply + "\r\n")); err != nil {
				return
			}
		}
	}
}

func newTestDevice(t *testing.T, replies map[string][]string) *Device {
	host, fw := net.Pipe()
	go fakeFirmware(t, fw, replies)
	port := &pipePort{Conn: host}
	d := New(port)
	if !port.flushed {
		t.Error("Expected stale input to be flushed on connect")
	}
	t.Cleanup(func() {
		d.Close()
		fw.Close()
	})
	return d
}

func TestCommandReplies(t *testing.T) {
	d := newTestDevice(t, map[string][]string{
		"run 1":   {"OK"},
		"angle 1": {"AE-12"},
		"run 3":   {"ERROR invalid motor id: 3"},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	reply, err := d.Command(ctx, "run 1")
	if err != nil || reply != "" {
		t.Errorf("Expected empty OK, got %q, %v", reply, err)
	}

	reply, err = d.Command(ctx, "angle 1")
	if err != nil || reply != "AE-12" {
		t.Errorf("Expected AE-12, got %q, %v", reply, err)
	}

	_, err = d.Command(ctx, "run 3")
	if !errors.Is(err, ErrCommandFailed) {
		t.Fatalf("Expected ErrCommandFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid motor id: 3") {
		t.Errorf("Expected the firmware reason, got %v", err)
	}
}

func TestNotifications(t *testing.T) {
	d := newTestDevice(t, map[string][]string{
		"brake 2": {"OK", "S2"},
		"state 2": {"2 stopped speed=64"},
	})

	notified := make(chan string, 1)
	d.OnNotify(func(line string) { notified <- line })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := d.Command(ctx, "brake 2"); err != nil {
		t.Fatalf("brake failed: %v", err)
	}
	select {
	case line := <-notified:
		if line != "S2" {
			t.Errorf("Expected S2, got %q", line)
		}
	case <-ctx.Done():
		t.Fatal("Expected a stop notification")
	}

	reply, err := d.Command(ctx, "state 2")
	if err != nil || reply != "2 stopped speed=64" {
		t.Errorf("Expected the state line, got %q, %v", reply, err)
	}
}

func TestCommandTimeout(t *testing.T) {
	d := newTestDevice(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := d.Command(ctx, "home 1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestCommandAfterClose(t *testing.T) {
	d := newTestDevice(t, nil)
	d.Close()

	if _, err := d.Command(context.Background(), "run 1"); err == nil {
		t.Error("Expected an error after close")
	}
}

func TestDebugLinesAreNotReplies(t *testing.T) {
	d := newTestDevice(t, map[string][]string{
		"events": {
			"# [EVENTS] === Event Ring Dump ===",
			"# [EVENTS] STATE motor=1 ticks=5 v1=0 v2=1",
			"# [EVENTS] === End Dump ===",
			"OK",
		},
		"angle 1": {"A5"},
	})
	debug := make(chan string, 1)
	d.OnDebug(func(line string) {
		select {
		case debug <- line:
		default:
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for i := 0; i < 20; i++ {
		reply, err := d.Command(ctx, "events")
		if err != nil || reply != "" {
			t.Fatalf("Expected empty OK for events, got %q, %v", reply, err)
		}
		reply, err = d.Command(ctx, "angle 1")
		if err != nil || reply != "A5" {
			t.Fatalf("Expected A5, got %q, %v", reply, err)
		}
	}

	select {
	case line := <-debug:
		if line != "# [EVENTS] === Event Ring Dump ===" {
			t.Errorf("Expected the dump header, got %q", line)
		}
	case <-time.After(time.Second):
		t.Error("Expected debug lines to reach the handler")
	}
}
