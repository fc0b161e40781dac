package worker

import (
	"sync"
	"time"
)

// Scheduler runs one-shot deferred actions.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) *Task
}

// Task is a handle to a scheduled action.
type Task struct {
	mu       sync.Mutex
	dueAt    time.Time
	fired    bool
	canceled bool
	stop     func() bool
}

// NewTask builds a handle for a scheduler implementation. stop, when not nil,
// must prevent fn from running if called before it starts.
func NewTask(dueAt time.Time, stop func() bool) *Task {
	return &Task{dueAt: dueAt, stop: stop}
}

// DueAt is when the action is scheduled to run.
func (t *Task) DueAt() time.Time {
	return t.dueAt
}

// Cancel stops the action if it has not started. It reports whether the
// action was prevented from running.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired || t.canceled {
		return false
	}
	t.canceled = true
	if t.stop != nil {
		t.stop()
	}
	return true
}

// begin marks the task as started; it returns false if it was canceled.
func (t *Task) begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.canceled || t.fired {
		return false
	}
	t.fired = true
	return true
}

// Run executes fn through the task's cancellation guard. Scheduler
// implementations call it when the task comes due.
func (t *Task) Run(fn func()) {
	if t.begin() {
		fn()
	}
}

// TimerScheduler schedules actions on wall clock timers.
type TimerScheduler struct{}

// NewTimerScheduler returns a scheduler backed by time.AfterFunc.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{}
}

// Schedule implements Scheduler.
func (TimerScheduler) Schedule(delay time.Duration, fn func()) *Task {
	task := NewTask(time.Now().Add(delay), nil)
	task.mu.Lock()
	defer task.mu.Unlock()
	timer := time.AfterFunc(delay, func() { task.Run(fn) })
	task.stop = timer.Stop
	return task
}
