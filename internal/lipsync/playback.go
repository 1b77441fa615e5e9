package lipsync

import (
	"context"
	"sync"
)

// Outcome is how a Playback resolved.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeCompleted
	OutcomeCanceled
	OutcomeFailed
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeCompleted:
		return "completed"
	case OutcomeCanceled:
		return "canceled"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Playback resolves exactly once when its utterance finishes, is cancelled
// or fails. Failures are not returned as errors by Wait; inspect Err.
type Playback struct {
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
	outcome Outcome
	err     error
}

func newPlayback() *Playback {
	return &Playback{done: make(chan struct{})}
}

func resolvedPlayback(o Outcome) *Playback {
	p := newPlayback()
	p.resolve(o, nil)
	return p
}

// resolve reports whether this call resolved p.
func (p *Playback) resolve(o Outcome, err error) bool {
	resolved := false
	p.once.Do(func() {
		p.mu.Lock()
		p.outcome = o
		p.err = err
		p.mu.Unlock()
		close(p.done)
		resolved = true
	})
	return resolved
}

// Done is closed once the playback resolves.
func (p *Playback) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the playback resolves or ctx ends. Only ctx errors are
// returned.
func (p *Playback) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-p.done:
		return p.Outcome(), nil
	case <-ctx.Done():
		return OutcomePending, ctx.Err()
	}
}

// Outcome returns the resolution, or OutcomePending.
func (p *Playback) Outcome() Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.outcome
}

// Err returns the engine error behind an OutcomeFailed.
func (p *Playback) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
