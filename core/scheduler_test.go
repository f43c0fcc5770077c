package core

import "testing"

func TestTaskListRunOnce(t *testing.T) {
	var order []int
	var tasks TaskList
	tasks.Add(func() { order = append(order, 1) })
	tasks.Add(func() { order = append(order, 2) })

	if tasks.Len() != 2 {
		t.Fatalf("Expected 2 tasks, got %d", tasks.Len())
	}

	tasks.RunOnce()
	tasks.RunOnce()

	want := []int{1, 2, 1, 2}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, order)
			break
		}
	}
}

func TestOverflowDetector(t *testing.T) {
	timer := &fakeTimer{now: 65000}
	d := NewOverflowDetector(timer)

	timer.now = 65500
	if d.Poll() {
		t.Error("Unexpected overflow")
	}

	timer.now = 20
	if !d.Poll() {
		t.Error("Expected overflow")
	}
	if got := d.Now(); got != 1<<16|20 {
		t.Errorf("Expected extended time %d, got %d", 1<<16|20, got)
	}

	timer.now = 20
	if d.Poll() {
		t.Error("Unexpected overflow without movement")
	}
}

func TestOverflowDetectorTicksRaiseWrap(t *testing.T) {
	timer := &fakeTimer{now: 60000}
	d := NewOverflowDetector(timer)
	wraps := 0
	d.OnWrap(func() { wraps++ })

	timer.now = 100
	if got := d.Ticks(); got != 100 {
		t.Errorf("Expected ticks 100, got %d", got)
	}
	if wraps != 1 {
		t.Errorf("Expected 1 wrap, got %d", wraps)
	}
	if d.Poll() {
		t.Error("Expected the wrap to be reported once")
	}
	if wraps != 1 {
		t.Errorf("Expected 1 wrap after poll, got %d", wraps)
	}
}

func TestTimerConversions(t *testing.T) {
	if got := TimerFromMS(64); got != 4000 {
		t.Errorf("Expected 4000 ticks, got %d", got)
	}
	if got := TimerToMS(62500); got != 1000 {
		t.Errorf("Expected 1000 ms, got %d", got)
	}
}
