// Package sched provides a cancellable delayed-task scheduler driven by the
// host's tick loop, so timer-dependent logic runs identically under a real
// ticker and under a manual clock in tests.
package sched

import (
	"sort"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function into a Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Task is a handle to a scheduled callback. Cancelling a task prevents a
// future dispatch; a task already being dispatched runs to completion.
type Task struct {
	id        uint64
	at        time.Time
	fn        func(now time.Time)
	cancelled bool
	fired     bool
	sched     *Scheduler
}

// Cancel marks the task so Advance skips it. Safe on nil and repeated calls.
func (t *Task) Cancel() {
	if t == nil {
		return
	}
	t.cancelled = true
}

// Pending reports whether the task is still waiting to fire.
func (t *Task) Pending() bool {
	return t != nil && !t.cancelled && !t.fired
}

// When returns the scheduled fire time.
func (t *Task) When() time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.at
}

// Scheduler owns a set of pending one-shot tasks. It is cooperative: tasks
// only run inside Advance, on the caller's goroutine, so everything the
// tasks touch is serialized by whoever drives the loop.
type Scheduler struct {
	nextID uint64
	tasks  []*Task
}

// New constructs an empty scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// At schedules fn to run once Advance reaches at.
func (s *Scheduler) At(at time.Time, fn func(now time.Time)) *Task {
	if s == nil || fn == nil {
		return nil
	}
	s.nextID++
	task := &Task{id: s.nextID, at: at, fn: fn, sched: s}
	s.tasks = append(s.tasks, task)
	return task
}

// After schedules fn to run d after now.
func (s *Scheduler) After(now time.Time, d time.Duration, fn func(now time.Time)) *Task {
	return s.At(now.Add(d), fn)
}

// Advance fires every non-cancelled task due at or before now, in time
// order (insertion order breaking ties). Tasks scheduled during dispatch
// are considered on the next Advance, never in the current one.
func (s *Scheduler) Advance(now time.Time) int {
	if s == nil || len(s.tasks) == 0 {
		return 0
	}

	due := make([]*Task, 0, len(s.tasks))
	remaining := s.tasks[:0]
	for _, task := range s.tasks {
		if task.cancelled {
			continue
		}
		if !task.at.After(now) {
			due = append(due, task)
			continue
		}
		remaining = append(remaining, task)
	}
	s.tasks = remaining

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].at.Equal(due[j].at) {
			return due[i].id < due[j].id
		}
		return due[i].at.Before(due[j].at)
	})

	fired := 0
	for _, task := range due {
		if task.cancelled {
			continue
		}
		task.fired = true
		task.fn(now)
		fired++
	}
	return fired
}

// PendingCount reports how many tasks are waiting.
func (s *Scheduler) PendingCount() int {
	if s == nil {
		return 0
	}
	count := 0
	for _, task := range s.tasks {
		if !task.cancelled {
			count++
		}
	}
	return count
}

// Clear drops every pending task without running it.
func (s *Scheduler) Clear() {
	if s == nil {
		return
	}
	for _, task := range s.tasks {
		task.cancelled = true
	}
	s.tasks = nil
}
