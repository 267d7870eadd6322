// Package timer implements the cooperative timer facility that drives every
// deferred UI mutation: scroll ticks, scheduled panel transitions, subtitle
// ticks and the connectivity poll. Callbacks run one at a time on the
// facility's own goroutine while holding the display lock.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/hammamikhairi/smartlearn/internal/domain"
	"github.com/hammamikhairi/smartlearn/internal/logger"
)

// Option configures the facility.
type Option func(*Facility)

// WithResolution sets how often the facility checks for due timers.
func WithResolution(d time.Duration) Option {
	return func(f *Facility) {
		f.resolution = d
	}
}

// WithClock replaces time.Now. Tests pair it with Step to drive time.
func WithClock(now func() time.Time) Option {
	return func(f *Facility) {
		f.now = now
	}
}

// Facility schedules callbacks and runs them under the display lock.
//
// Lock order is display lock, then the facility mutex. The facility never
// holds its own mutex while acquiring the display lock, so callbacks may
// freely create, pause, resume or delete timers.
type Facility struct {
	lock       sync.Locker
	log        *logger.Logger
	now        func() time.Time
	resolution time.Duration

	mu      sync.Mutex
	handles []*handle
	running bool
	cancel  context.CancelFunc
}

var _ domain.Scheduler = (*Facility)(nil)

// New creates a facility whose callbacks run while holding lock.
func New(lock sync.Locker, log *logger.Logger, opts ...Option) *Facility {
	f := &Facility{
		lock:       lock,
		log:        log,
		now:        time.Now,
		resolution: 10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create registers a timer firing every interval. repeat is the number of
// times it fires before expiring; repeat <= 0 fires until deleted.
func (f *Facility) Create(interval time.Duration, repeat int, fn func()) domain.Timer {
	if interval <= 0 {
		interval = f.resolution
	}
	h := &handle{
		f:        f,
		period:   interval,
		repeat:   repeat,
		fn:       fn,
		deadline: f.now().Add(interval),
	}

	f.mu.Lock()
	f.handles = append(f.handles, h)
	f.mu.Unlock()
	return h
}

// Len reports the number of live (not deleted or expired) timers.
func (f *Facility) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, h := range f.handles {
		if !h.deleted && !h.expired {
			n++
		}
	}
	return n
}

// Start begins the background loop. Non-blocking.
func (f *Facility) Start(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.running {
		f.log.Warn("timer facility already running")
		return
	}

	childCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.running = true

	go f.loop(childCtx)

	f.log.Info("timer facility started (resolution=%s)", f.resolution)
}

// Stop shuts down the background loop. Pending timers are kept.
func (f *Facility) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.running {
		return
	}

	f.cancel()
	f.running = false
	f.log.Info("timer facility stopped")
}

func (f *Facility) loop(ctx context.Context) {
	ticker := time.NewTicker(f.resolution)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Step(f.now())
		}
	}
}

// Step fires every timer due at now, in creation order, and returns how
// many callbacks ran. A timer due several periods ago fires once.
func (f *Facility) Step(now time.Time) int {
	f.mu.Lock()
	var due []*handle
	for _, h := range f.handles {
		if h.deleted || h.expired || h.paused || now.Before(h.deadline) {
			continue
		}
		due = append(due, h)
		h.deadline = now.Add(h.period)
		if h.repeat > 0 {
			h.repeat--
			if h.repeat == 0 {
				h.expired = true
			}
		}
	}
	f.mu.Unlock()

	fired := 0
	for _, h := range due {
		if f.fire(h) {
			fired++
		}
	}

	f.purge()
	return fired
}

func (f *Facility) fire(h *handle) bool {
	f.lock.Lock()
	defer f.lock.Unlock()

	// An earlier callback in this step may have paused or deleted it.
	f.mu.Lock()
	skip := h.deleted || h.paused
	f.mu.Unlock()
	if skip || h.fn == nil {
		return false
	}

	h.fn()
	return true
}

func (f *Facility) purge() {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.handles[:0]
	for _, h := range f.handles {
		if !h.deleted && !h.expired {
			kept = append(kept, h)
		}
	}
	for i := len(kept); i < len(f.handles); i++ {
		f.handles[i] = nil
	}
	f.handles = kept
}

// ── Handle ──────────────────────────────────────────────────────

type handle struct {
	f        *Facility
	period   time.Duration
	repeat   int
	fn       func()
	deadline time.Time
	paused   bool
	deleted  bool
	expired  bool
}

// Pause stops the timer from firing until Resume.
func (h *handle) Pause() {
	h.f.mu.Lock()
	h.paused = true
	h.f.mu.Unlock()
}

// Resume re-arms the timer one full period from now.
func (h *handle) Resume() {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	if !h.paused {
		return
	}
	h.paused = false
	h.deadline = h.f.now().Add(h.period)
}

// Delete removes the timer. Safe to call from its own callback.
func (h *handle) Delete() {
	h.f.mu.Lock()
	h.deleted = true
	h.f.mu.Unlock()
}
