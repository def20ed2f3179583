package sched

import (
	"testing"
	"time"
)

func baseTime() time.Time {
	return time.UnixMilli(1_700_000_000_000)
}

func TestAdvanceFiresDueTasksOnly(t *testing.T) {
	s := New()
	now := baseTime()

	var fired []string
	s.After(now, 100*time.Millisecond, func(time.Time) { fired = append(fired, "early") })
	s.After(now, 500*time.Millisecond, func(time.Time) { fired = append(fired, "late") })

	if n := s.Advance(now.Add(99 * time.Millisecond)); n != 0 {
		t.Fatalf("fired %d tasks before any was due", n)
	}
	if n := s.Advance(now.Add(100 * time.Millisecond)); n != 1 {
		t.Fatalf("fired %d tasks at first deadline, want 1", n)
	}
	if n := s.Advance(now.Add(time.Second)); n != 1 {
		t.Fatalf("fired %d tasks at second deadline, want 1", n)
	}
	if len(fired) != 2 || fired[0] != "early" || fired[1] != "late" {
		t.Fatalf("fire order = %v", fired)
	}
	if s.PendingCount() != 0 {
		t.Fatalf("pending = %d after all fired", s.PendingCount())
	}
}

func TestAdvanceFiresInTimeOrderWithinOneCall(t *testing.T) {
	s := New()
	now := baseTime()

	var fired []int
	s.At(now.Add(300*time.Millisecond), func(time.Time) { fired = append(fired, 3) })
	s.At(now.Add(100*time.Millisecond), func(time.Time) { fired = append(fired, 1) })
	s.At(now.Add(200*time.Millisecond), func(time.Time) { fired = append(fired, 2) })

	s.Advance(now.Add(time.Second))
	if len(fired) != 3 || fired[0] != 1 || fired[1] != 2 || fired[2] != 3 {
		t.Fatalf("fire order = %v", fired)
	}
}

func TestTiesFireInScheduleOrder(t *testing.T) {
	s := New()
	at := baseTime().Add(time.Second)

	var fired []string
	s.At(at, func(time.Time) { fired = append(fired, "first") })
	s.At(at, func(time.Time) { fired = append(fired, "second") })

	s.Advance(at)
	if len(fired) != 2 || fired[0] != "first" || fired[1] != "second" {
		t.Fatalf("fire order = %v", fired)
	}
}

func TestCancelPreventsDispatch(t *testing.T) {
	s := New()
	now := baseTime()

	ran := false
	task := s.After(now, time.Second, func(time.Time) { ran = true })
	if !task.Pending() {
		t.Fatal("freshly scheduled task not pending")
	}

	task.Cancel()
	task.Cancel() // repeated cancel is fine
	if task.Pending() {
		t.Fatal("cancelled task still pending")
	}
	if s.PendingCount() != 0 {
		t.Fatalf("pending = %d after cancel", s.PendingCount())
	}
	if n := s.Advance(now.Add(time.Minute)); n != 0 || ran {
		t.Fatal("cancelled task fired")
	}
}

func TestCancelDuringDispatchSkipsLaterDueTask(t *testing.T) {
	s := New()
	at := baseTime().Add(time.Second)

	ran := false
	var second *Task
	s.At(at, func(time.Time) { second.Cancel() })
	second = s.At(at, func(time.Time) { ran = true })

	if n := s.Advance(at); n != 1 {
		t.Fatalf("fired = %d, want 1", n)
	}
	if ran {
		t.Fatal("task cancelled mid-dispatch still ran")
	}
}

func TestTasksScheduledDuringDispatchWaitForNextAdvance(t *testing.T) {
	s := New()
	now := baseTime()

	reran := 0
	s.After(now, time.Second, func(fireNow time.Time) {
		// Reschedule immediately due; it must not run in this Advance.
		s.At(fireNow, func(time.Time) { reran++ })
	})

	s.Advance(now.Add(time.Second))
	if reran != 0 {
		t.Fatal("nested task ran inside the same Advance")
	}
	s.Advance(now.Add(time.Second))
	if reran != 1 {
		t.Fatalf("nested task ran %d times on next Advance", reran)
	}
}

func TestAdvancePassesCurrentTimeToCallbacks(t *testing.T) {
	s := New()
	now := baseTime()

	var got time.Time
	s.After(now, time.Second, func(fireNow time.Time) { got = fireNow })

	want := now.Add(3 * time.Second)
	s.Advance(want)
	if !got.Equal(want) {
		t.Fatalf("callback now = %v, want %v", got, want)
	}
}

func TestClearDropsEverything(t *testing.T) {
	s := New()
	now := baseTime()

	ran := false
	s.After(now, time.Second, func(time.Time) { ran = true })
	s.Clear()

	if s.PendingCount() != 0 {
		t.Fatalf("pending = %d after clear", s.PendingCount())
	}
	if s.Advance(now.Add(time.Minute)); ran {
		t.Fatal("cleared task still fired")
	}
}

func TestNilSafety(t *testing.T) {
	var s *Scheduler
	if task := s.At(baseTime(), func(time.Time) {}); task != nil {
		t.Fatal("nil scheduler returned a task")
	}
	if s.Advance(baseTime()) != 0 || s.PendingCount() != 0 {
		t.Fatal("nil scheduler reported work")
	}
	s.Clear()

	var task *Task
	task.Cancel()
	if task.Pending() {
		t.Fatal("nil task pending")
	}
	if !task.When().IsZero() {
		t.Fatal("nil task has a fire time")
	}
}

func TestWhenReportsDeadline(t *testing.T) {
	s := New()
	now := baseTime()
	task := s.After(now, 250*time.Millisecond, func(time.Time) {})
	if !task.When().Equal(now.Add(250 * time.Millisecond)) {
		t.Fatalf("When() = %v", task.When())
	}
}
