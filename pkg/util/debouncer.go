package util

import (
	"sync"
	"time"
)

// Debouncer runs fn once Trigger has not been called for the configured
// quiet period. fn runs on its own goroutine and never concurrently with
// itself for the same Debouncer.
//
// Example usage:
//
//	d := NewDebouncer(2*time.Second, commitAnswer)
//	defer d.Stop()
//
//	for t := range transcripts {
//	    appendText(t)
//	    d.Trigger() // Commit once the speaker pauses
//	}
type Debouncer struct {
	duration time.Duration
	fn       func()

	mu      sync.Mutex
	runMu   sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	stopped bool
}

// NewDebouncer creates a debouncer calling fn after duration of quiet.
func NewDebouncer(duration time.Duration, fn func()) *Debouncer {
	return &Debouncer{duration: duration, fn: fn}
}

// Trigger (re)starts the quiet period. No-op once stopped.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.pending = true
	d.timer = time.AfterFunc(d.duration, func() { d.fire(gen) })
}

// Flush runs fn now if a call is pending and reports whether it did.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	d.disarm()
	d.mu.Unlock()

	d.run()
	return true
}

// Cancel drops a pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disarm()
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels any pending call and prevents further triggers.
// It's safe to call Stop multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disarm()
	d.stopped = true
}

// disarm stops the timer and invalidates its callback. Callers hold mu.
func (d *Debouncer) disarm() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	d.pending = false
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	d.run()
}

func (d *Debouncer) run() {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	d.fn()
}
