// Package device talks to the controller firmware over its serial console
package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/golang/glog"

	"shaftpos/host/serial"
)

var (
	ErrClosed        = errors.New("device connection closed")
	ErrCommandFailed = errors.New("command failed")
)

// Device is a connection to a controller
type Device struct {
	port serial.Port

	// serialises commands so each reply is matched to its command
	cmdMu sync.Mutex

	replies chan string
	closed  chan struct{}
	once    sync.Once

	notifyMu sync.Mutex
	notify   func(line string)
	debug    func(line string)
}

// Connect opens the serial port and starts reading
func Connect(cfg *serial.Config) (*Device, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return New(port), nil
}

// New wraps an open port and starts reading. Input received before the
// connection, such as boot messages, is discarded.
func New(port serial.Port) *Device {
	if err := port.Flush(); err != nil {
		glog.Warningf("flush serial input: %v", err)
	}
	d := &Device{
		port:    port,
		replies: make(chan string, 16),
		closed:  make(chan struct{}),
	}
	go d.readLoop()
	return d
}

// OnNotify sets the handler for unsolicited lines (motor stopped reports)
func (d *Device) OnNotify(fn func(line string)) {
	d.notifyMu.Lock()
	d.notify = fn
	d.notifyMu.Unlock()
}

// OnDebug sets the handler for firmware debug lines ("# ..."). Without one
// they are logged.
func (d *Device) OnDebug(fn func(line string)) {
	d.notifyMu.Lock()
	d.debug = fn
	d.notifyMu.Unlock()
}

// isDebug reports whether a line came from the firmware's debug writer
func isDebug(line string) bool {
	return strings.HasPrefix(line, "#")
}

// isNotification reports whether a line is an unsolicited S<motor> report
func isNotification(line string) bool {
	return len(line) == 2 && line[0] == 'S' && line[1] >= '1' && line[1] <= '2'
}

func (d *Device) readLoop() {
	r := bufio.NewReader(d.port)
	var partial strings.Builder
	for {
		chunk, err := r.ReadString('\n')
		partial.WriteString(chunk)
		if err != nil {
			// a read timeout shows up as EOF; keep waiting unless closed
			if errors.Is(err, io.EOF) {
				select {
				case <-d.closed:
					return
				default:
					continue
				}
			}
			glog.Errorf("serial read: %v", err)
			d.Close()
			return
		}

		line := strings.TrimRight(partial.String(), "\r\n")
		partial.Reset()
		if line == "" {
			continue
		}
		glog.V(2).Infof("<- %s", line)

		if isDebug(line) {
			d.notifyMu.Lock()
			fn := d.debug
			d.notifyMu.Unlock()
			if fn != nil {
				fn(line)
			} else {
				glog.Infof("firmware: %s", strings.TrimSpace(strings.TrimPrefix(line, "#")))
			}
			continue
		}

		if isNotification(line) {
			d.notifyMu.Lock()
			fn := d.notify
			d.notifyMu.Unlock()
			if fn != nil {
				fn(line)
			}
			continue
		}

		select {
		case d.replies <- line:
		case <-d.closed:
			return
		}
	}
}

// Command sends one console line and waits for its reply. OK replies come
// back empty, ERROR replies as an error wrapping ErrCommandFailed and
// anything else (angle and state reports) as the reply line.
func (d *Device) Command(ctx context.Context, line string) (string, error) {
	d.cmdMu.Lock()
	defer d.cmdMu.Unlock()

	// drop replies left over from a command that timed out
	for drained := false; !drained; {
		select {
		case stale := <-d.replies:
			glog.Warningf("dropping stale reply %q", stale)
		default:
			drained = true
		}
	}

	glog.V(2).Infof("-> %s", line)
	if _, err := io.WriteString(d.port, line+"\r"); err != nil {
		return "", fmt.Errorf("write %q: %w", line, err)
	}

	select {
	case reply := <-d.replies:
		switch {
		case reply == "OK":
			return "", nil
		case strings.HasPrefix(reply, "ERROR"):
			return "", fmt.Errorf("%w: %s", ErrCommandFailed, strings.TrimSpace(strings.TrimPrefix(reply, "ERROR")))
		default:
			return reply, nil
		}
	case <-ctx.Done():
		return "", ctx.Err()
	case <-d.closed:
		return "", ErrClosed
	}
}

// Close closes the connection
func (d *Device) Close() error {
	var err error
	d.once.Do(func() {
		close(d.closed)
		err = d.port.Close()
	})
	return err
}
