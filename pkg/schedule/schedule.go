// Package schedule defers work past the client's drag transition.
//
// When an item moves between containers, the target list gains the item
// immediately but the source list must keep it until the client has finished
// animating the drop. A Scheduler runs such follow-up work exactly once,
// later, and never before. There is no way to cancel a deferred task.
package schedule

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultFrames is the number of frame boundaries a deferred task waits.
	DefaultFrames = 2

	// DefaultDelay is the fallback wait when no frame clock is available.
	DefaultDelay = 50 * time.Millisecond
)

// Scheduler defers a task until after the transition boundary.
type Scheduler interface {
	Defer(fn func())
}

// task is a deferred function and the frames it still has to wait.
type task struct {
	fn        func()
	remaining int
}

// FrameScheduler runs each deferred task after a fixed number of frame
// boundaries. The owner advances the clock by calling Tick once per frame,
// from the same goroutine that handles drag events.
type FrameScheduler struct {
	mu      sync.Mutex
	frames  int
	pending []*task
}

// NewFrameScheduler creates a scheduler that waits frames ticks.
// Values below 1 fall back to DefaultFrames.
func NewFrameScheduler(frames int) *FrameScheduler {
	if frames < 1 {
		frames = DefaultFrames
	}
	return &FrameScheduler{frames: frames}
}

// Defer queues fn to run on the frames-th Tick from now.
func (s *FrameScheduler) Defer(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.pending = append(s.pending, &task{fn: fn, remaining: s.frames})
	s.mu.Unlock()
}

// Tick marks one frame boundary and runs every task whose wait is over,
// in the order they were deferred. Tasks deferred while Tick is running
// wait for later frames. It returns the number of tasks run.
func (s *FrameScheduler) Tick() int {
	s.mu.Lock()
	var due []*task
	kept := s.pending[:0]
	for _, t := range s.pending {
		t.remaining--
		if t.remaining <= 0 {
			due = append(due, t)
		} else {
			kept = append(kept, t)
		}
	}
	for i := len(kept); i < len(s.pending); i++ {
		s.pending[i] = nil
	}
	s.pending = kept
	s.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
	return len(due)
}

// Pending returns the number of tasks still waiting.
func (s *FrameScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Drain ticks until nothing is pending. Owners call it on shutdown so no
// deferred task is lost.
func (s *FrameScheduler) Drain() int {
	n := 0
	for s.Pending() > 0 {
		n += s.Tick()
	}
	return n
}

// DelayScheduler runs deferred tasks after a fixed delay. Because timers fire
// on their own goroutine, each task is handed to dispatch, which must run it
// on the owner's event loop.
//
// The scheduler keeps every task until it has run. Drain runs the ones still
// waiting, so a task whose dispatch never reaches the loop is not lost. A task
// runs once whichever path gets to it first.
type DelayScheduler struct {
	delay    time.Duration
	dispatch func(func())

	mu      sync.Mutex
	seq     uint64
	pending map[*delayed]struct{}
}

type delayed struct {
	seq   uint64
	fn    func()
	timer *time.Timer
	ran   atomic.Bool
}

// NewDelayScheduler creates a fallback scheduler. A zero delay uses
// DefaultDelay. It panics if dispatch is nil.
func NewDelayScheduler(delay time.Duration, dispatch func(func())) *DelayScheduler {
	if dispatch == nil {
		panic("schedule: DelayScheduler needs a dispatch function")
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &DelayScheduler{
		delay:    delay,
		dispatch: dispatch,
		pending:  make(map[*delayed]struct{}),
	}
}

// Defer schedules fn to be dispatched after the delay.
func (s *DelayScheduler) Defer(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.seq++
	d := &delayed{seq: s.seq, fn: fn}
	s.pending[d] = struct{}{}
	d.timer = time.AfterFunc(s.delay, func() {
		s.dispatch(func() { s.run(d) })
	})
	s.mu.Unlock()
}

// run executes d unless it already ran. It must be called on the owner loop.
func (s *DelayScheduler) run(d *delayed) bool {
	if !d.ran.CompareAndSwap(false, true) {
		return false
	}
	s.mu.Lock()
	delete(s.pending, d)
	s.mu.Unlock()
	d.fn()
	return true
}

// Pending returns the number of tasks that have not run.
func (s *DelayScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Drain stops the timers of waiting tasks and runs them now in the order
// they were deferred, until nothing is pending. It must be called on the owner
// loop. It returns the number of tasks run.
func (s *DelayScheduler) Drain() int {
	n := 0
	for {
		s.mu.Lock()
		waiting := make([]*delayed, 0, len(s.pending))
		for d := range s.pending {
			waiting = append(waiting, d)
		}
		s.mu.Unlock()
		if len(waiting) == 0 {
			return n
		}
		slices.SortFunc(waiting, func(a, b *delayed) int { return cmp.Compare(a.seq, b.seq) })
		for _, d := range waiting {
			d.timer.Stop()
			if s.run(d) {
				n++
			}
		}
	}
}

// Immediate runs deferred tasks synchronously. It is meant for tools that
// replay drags without a frame clock, where the transition has no meaning.
type Immediate struct{}

// Defer runs fn now.
func (Immediate) Defer(fn func()) {
	if fn != nil {
		fn()
	}
}
