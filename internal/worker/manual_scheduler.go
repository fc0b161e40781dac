package worker

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler queues actions until Advance moves its clock past their
// due time. It makes deferred work deterministic in tests and tools.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Time
	pending []manualEntry
}

type manualEntry struct {
	task *Task
	fn   func()
}

// NewManualScheduler starts the clock at now.
func NewManualScheduler(now time.Time) *ManualScheduler {
	return &ManualScheduler{now: now}
}

// Now returns the scheduler clock.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Schedule implements Scheduler.
func (s *ManualScheduler) Schedule(delay time.Duration, fn func()) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := NewTask(s.now.Add(delay), nil)
	s.pending = append(s.pending, manualEntry{task: task, fn: fn})
	return task
}

// Pending counts queued, not yet run, actions including canceled ones.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Advance moves the clock forward by d and runs every action that came due,
// in due order, outside the scheduler lock.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	var due, rest []manualEntry
	for _, e := range s.pending {
		if !e.task.DueAt().After(s.now) {
			due = append(due, e)
		} else {
			rest = append(rest, e)
		}
	}
	s.pending = rest
	s.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].task.DueAt().Before(due[j].task.DueAt())
	})
	for _, e := range due {
		e.task.Run(e.fn)
	}
}
