package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// ControllerEvent captures a controller decision for post-mortem analysis
type ControllerEvent struct {
	EventType uint8   // Event type code
	Motor     MotorID // Motor the event belongs to
	Ticks     uint16  // Free-running timer at the event
	Value1    int32   // Context-dependent value
	Value2    int32   // Context-dependent value
}

// Event type codes
const (
	EvtStateChange   = 1 // Value1=old state, Value2=new state
	EvtBrake         = 2 // Value1=angle, Value2=predicted coast distance
	EvtIndexFound    = 3 // Value1=angle after braking
	EvtHomingFailed  = 4 // Value1=search start angle
	EvtEncoderErrors = 5 // Value1=errors in this snapshot
	EvtDriveError    = 6 // Value1=speed requested
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	eventRing     [EventRingSize]ControllerEvent
	eventRingHead uint8
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, a logger etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordEvent stores a controller event in the ring buffer.
// Never blocks; the oldest event is overwritten.
func RecordEvent(eventType uint8, motor MotorID, ticks uint16, value1, value2 int32) {
	idx := eventRingHead
	eventRing[idx] = ControllerEvent{
		EventType: eventType,
		Motor:     motor,
		Ticks:     ticks,
		Value1:    value1,
		Value2:    value2,
	}
	eventRingHead = (idx + 1) % EventRingSize
}

// Events returns the recorded events, oldest first
func Events() []ControllerEvent {
	events := make([]ControllerEvent, 0, EventRingSize)
	start := eventRingHead
	for i := uint8(0); i < EventRingSize; i++ {
		evt := eventRing[(start+i)%EventRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		events = append(events, evt)
	}
	return events
}

// eventName returns the label used in dumps
func eventName(eventType uint8) string {
	switch eventType {
	case EvtStateChange:
		return "STATE"
	case EvtBrake:
		return "BRAKE"
	case EvtIndexFound:
		return "INDEX_FOUND"
	case EvtHomingFailed:
		return "HOMING_FAILED!"
	case EvtEncoderErrors:
		return "ENC_ERRORS"
	case EvtDriveError:
		return "DRIVE_ERROR!"
	default:
		return "UNKNOWN"
	}
}

// DumpEventRing writes the event ring through the debug writer, regardless
// of whether debug output is enabled (call on fault or from a console command)
func DumpEventRing() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[EVENTS] === Event Ring Dump ===")
	for _, evt := range Events() {
		debugPrintln("[EVENTS] " + eventName(evt.EventType) +
			" motor=" + itoa(int(evt.Motor)) +
			" ticks=" + itoa(int(evt.Ticks)) +
			" v1=" + itoa(int(evt.Value1)) +
			" v2=" + itoa(int(evt.Value2)))
	}
	debugPrintln("[EVENTS] === End Dump ===")
}

// ClearEventRing clears the event buffer
func ClearEventRing() {
	for i := range eventRing {
		eventRing[i] = ControllerEvent{}
	}
	eventRingHead = 0
}
