package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock is a small abstraction for obtaining the current time and scheduling
// callbacks. Use this in application code to make time and timers testable.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer (false if it already fired or was stopped).
	Stop() bool
}

// RealClock uses the wall clock and runtime timers.
type RealClock struct{}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

func (RealClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// FakeClock is a controllable clock for tests. Timers fire synchronously
// inside Advance/Set, in deadline order.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	c       *FakeClock
	at      time.Time
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// NewFake creates a FakeClock set to the given time (expected in UTC).
func NewFake(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

// Now returns the fake current time.
func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *FakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{c: f, at: f.now.Add(d), f: fn}
	f.timers = append(f.timers, t)
	return t
}

// Set sets the fake clock to a specific time, firing any timers that become due.
func (f *FakeClock) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	due := f.collectDue()
	f.mu.Unlock()
	for _, fn := range due {
		fn()
	}
}

// Advance moves the fake clock forward by duration d.
func (f *FakeClock) Advance(d time.Duration) {
	f.Set(f.Now().Add(d))
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (f *FakeClock) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// collectDue marks due timers as fired and returns their callbacks. Caller holds mu.
func (f *FakeClock) collectDue() []func() {
	sort.SliceStable(f.timers, func(i, j int) bool { return f.timers[i].at.Before(f.timers[j].at) })
	var due []func()
	keep := f.timers[:0]
	for _, t := range f.timers {
		switch {
		case t.stopped:
		case !t.at.After(f.now):
			t.stopped = true
			due = append(due, t.f)
		default:
			keep = append(keep, t)
		}
	}
	f.timers = keep
	return due
}
