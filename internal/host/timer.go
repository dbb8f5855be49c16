// Package host drives sensor engines: it owns the clock, the one-shot timers
// and the single goroutine every engine step runs on.
package host

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Timer is the one-shot timer capability an engine driver needs.
type Timer interface {
	Now() time.Time
	// ScheduleOnce runs fn once at (or after) at. Calling cancel before fn
	// has started guarantees fn never runs.
	ScheduleOnce(at time.Time, fn func()) (cancel func())
}

// Loop is the wall-clock Timer. Callbacks from expired timers are posted
// onto a queue and run one at a time by Run, so engines never see
// concurrent calls.
type Loop struct {
	jobs chan func()
	done chan struct{}
	once sync.Once
}

var _ Timer = (*Loop)(nil)

// NewLoop creates a loop. Nothing runs until Run is called.
func NewLoop() *Loop {
	return &Loop{
		jobs: make(chan func(), 64),
		done: make(chan struct{}),
	}
}

func (l *Loop) Now() time.Time { return time.Now() }

func (l *Loop) ScheduleOnce(at time.Time, fn func()) func() {
	var cancelled atomic.Bool
	t := time.AfterFunc(time.Until(at), func() {
		l.Post(func() {
			if !cancelled.Load() {
				fn()
			}
		})
	})
	return func() {
		cancelled.Store(true)
		t.Stop()
	}
}

// Post queues fn to run on the loop goroutine. It returns false when the loop
// has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.jobs <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Run executes posted callbacks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.jobs:
			fn()
		}
	}
}

// Manual is a virtual-clock Timer. Time only moves when AdvanceTo or Step is
// called, which makes whole days of scheduling replayable in a test.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	pending []*manualEntry
}

type manualEntry struct {
	at  time.Time
	seq uint64
	fn  func()
}

var _ Timer = (*Manual)(nil)

// NewManual creates a virtual clock reading start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) ScheduleOnce(at time.Time, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	e := &manualEntry{at: at, seq: m.seq, fn: fn}
	m.pending = append(m.pending, e)
	sort.SliceStable(m.pending, func(i, j int) bool {
		a, b := m.pending[i], m.pending[j]
		if a.at.Equal(b.at) {
			return a.seq < b.seq
		}
		return a.at.Before(b.at)
	})
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.drop(e)
	}
}

func (m *Manual) drop(e *manualEntry) {
	for i, p := range m.pending {
		if p == e {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

// Pending is the number of armed timers.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Next returns the earliest armed deadline.
func (m *Manual) Next() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pending) == 0 {
		return time.Time{}, false
	}
	return m.pending[0].at, true
}

// Step fires the earliest armed timer, moving the clock to its deadline
// (never backwards). It reports false when nothing is armed.
func (m *Manual) Step() (time.Time, bool) {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return time.Time{}, false
	}
	e := m.pending[0]
	m.pending = m.pending[1:]
	if e.at.After(m.now) {
		m.now = e.at
	}
	now := m.now
	m.mu.Unlock()

	e.fn()
	return now, true
}

// AdvanceTo fires, in deadline order, every timer due at or before t,
// including ones armed by the callbacks themselves, then leaves the clock
// at t. It returns how many callbacks ran.
func (m *Manual) AdvanceTo(t time.Time) int {
	fired := 0
	for {
		next, ok := m.Next()
		if !ok || next.After(t) {
			break
		}
		m.Step()
		fired++
	}
	m.mu.Lock()
	if t.After(m.now) {
		m.now = t
	}
	m.mu.Unlock()
	return fired
}

// Set moves the clock to t without firing anything, as a late wake-up would.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}
