package core

// Task is one step of the cooperative main loop. Tasks must not block.
type Task func()

// TaskList is the main loop's round robin of tasks
type TaskList struct {
	tasks []Task
}

// Add registers a task. Call during setup only.
func (l *TaskList) Add(task Task) {
	l.tasks = append(l.tasks, task)
}

// Len returns the number of registered tasks
func (l *TaskList) Len() int {
	return len(l.tasks)
}

// RunOnce calls every task once in registration order
func (l *TaskList) RunOnce() {
	for _, task := range l.tasks {
		task()
	}
}
