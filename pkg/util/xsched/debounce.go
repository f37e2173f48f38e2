// Package xsched provides small scheduling helpers.
package xsched

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// NewDebouncer returns a *Debouncer that invokes fn once per burst of
// triggers: each Trigger restarts the delay, and when the delay elapses fn is
// called with the payload of the last Trigger.
func NewDebouncer[T any](delay time.Duration, fn func(T), opts ...DebounceOption) *Debouncer[T] {
	o := debounceOptions{clock: clock.New()}
	for _, apply := range opts {
		apply(&o)
	}
	return &Debouncer[T]{
		delay: delay,
		fn:    fn,
		clock: o.clock,
	}
}

type debounceOptions struct {
	clock clock.Clock
}

// DebounceOption configures a Debouncer.
type DebounceOption func(*debounceOptions)

// WithClock overrides the wall clock, for tests.
func WithClock(c clock.Clock) DebounceOption {
	return func(o *debounceOptions) {
		o.clock = c
	}
}

// Debouncer coalesces bursts of triggers into a single delayed invocation.
// It is safe for concurrent use.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)
	clock clock.Clock

	mu      sync.Mutex
	payload T
	timer   *clock.Timer
	stopped bool
}

// Trigger records the payload and (re)starts the delay. The callback runs on
// the timer goroutine with the most recent payload.
func (d *Debouncer[T]) Trigger(payload T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.payload = payload
	if d.timer != nil {
		d.timer.Reset(d.delay)
		return
	}
	d.timer = d.clock.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer[T]) fire() {
	d.mu.Lock()
	payload := d.payload
	d.timer = nil
	d.mu.Unlock()
	d.fn(payload)
}

// Stop cancels any pending invocation. Further triggers are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
