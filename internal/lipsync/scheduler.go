package lipsync

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Raikerian/go-interview-voice/internal/config"
)

// Hooks observe the scheduler. OnViseme and OnState run while the scheduler
// holds its lock and must not call back into it. OnOutcome runs after a
// playback resolves.
type Hooks struct {
	OnViseme  func(v Viseme)
	OnState   func(s State)
	OnOutcome func(o Outcome)
}

// Scheduler keeps the avatar's mouth in step with a speech engine. At most
// one utterance is active; playing a new one cancels the previous.
type Scheduler struct {
	logger   *zap.Logger
	engine   Engine
	patterns *PatternCache
	defaults VoiceOptions

	// playMu serialises Play and Stop. mu guards the fields below and is
	// the only lock taken by engine and timer callbacks.
	playMu  sync.Mutex
	mu      sync.Mutex
	hooks   []Hooks
	state   State
	viseme  Viseme
	session *session
}

type session struct {
	steps    []Step
	rate     float64
	started  bool
	timer    *time.Timer
	playback *Playback
}

func (s *session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// NewScheduler creates a Scheduler driving engine with the configured voice
// defaults.
func NewScheduler(logger *zap.Logger, engine Engine, cfg *config.Config) (*Scheduler, error) {
	patterns, err := NewPatternCache(cfg.Lipsync.PatternCacheSize)
	if err != nil {
		return nil, err
	}

	return &Scheduler{
		logger:   logger,
		engine:   engine,
		patterns: patterns,
		defaults: VoiceOptions{
			Rate:   cfg.Lipsync.Rate,
			Pitch:  cfg.Lipsync.Pitch,
			Volume: cfg.Lipsync.Volume,
		}.Normalize(DefaultVoiceOptions()),
		state:  StateIdle,
		viseme: VisemeSil,
	}, nil
}

// AddHooks registers an observer.
func (s *Scheduler) AddHooks(h Hooks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// State returns the current playback state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Viseme returns the mouth shape currently shown.
func (s *Scheduler) Viseme() Viseme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viseme
}

// Play speaks text and animates it. Any active utterance is cancelled
// first. Blank text resolves immediately as OutcomeSkipped.
func (s *Scheduler) Play(text string, opts VoiceOptions) *Playback {
	s.playMu.Lock()
	defer s.playMu.Unlock()

	s.teardown(nil)

	if strings.TrimSpace(text) == "" {
		pb := resolvedPlayback(OutcomeSkipped)
		s.notifyOutcome(OutcomeSkipped)
		return pb
	}

	opts = opts.Normalize(s.defaults)
	sess := &session{
		steps:    s.patterns.Pattern(text),
		rate:     opts.Rate,
		playback: newPlayback(),
	}

	s.mu.Lock()
	s.session = sess
	s.setState(StateStarting)
	s.mu.Unlock()

	s.logger.Debug("Starting utterance",
		zap.Int("steps", len(sess.steps)),
		zap.Float64("rate", opts.Rate),
		zap.Duration("pattern_duration", TotalDuration(sess.steps)))

	err := s.engine.Speak(Utterance{Text: text, Options: opts}, Callbacks{
		OnStart: func() { s.handleStart(sess) },
		OnEnd:   func() { s.finish(sess, OutcomeCompleted, nil) },
		OnError: func(err error) { s.handleError(sess, err) },
	})
	if err != nil {
		s.handleError(sess, err)
	}

	return sess.playback
}

// Speak plays text and blocks until it resolves. Cancelling ctx stops the
// utterance and returns the ctx error.
func (s *Scheduler) Speak(ctx context.Context, text string, opts VoiceOptions) error {
	pb := s.Play(text, opts)

	select {
	case <-pb.Done():
		return nil
	case <-ctx.Done():
		s.playMu.Lock()
		s.teardown(pb)
		s.playMu.Unlock()
		return ctx.Err()
	}
}

// Stop cancels the active utterance, if any. It is always safe to call.
func (s *Scheduler) Stop() {
	s.playMu.Lock()
	defer s.playMu.Unlock()
	s.teardown(nil)
}

// teardown cancels the active session. With a non-nil only, the session is
// cancelled only if it still owns that playback. Callers hold playMu.
func (s *Scheduler) teardown(only *Playback) {
	s.mu.Lock()
	sess := s.session
	if sess == nil || (only != nil && sess.playback != only) {
		s.mu.Unlock()
		return
	}
	s.session = nil
	sess.stopTimer()
	s.setState(StateStopping)
	s.mu.Unlock()

	// The engine may report ErrInterrupted synchronously; the session is
	// already detached so that report is ignored.
	s.engine.Cancel()

	s.mu.Lock()
	s.setViseme(VisemeSil)
	s.setState(StateIdle)
	s.mu.Unlock()

	if sess.playback.resolve(OutcomeCanceled, nil) {
		s.notifyOutcome(OutcomeCanceled)
	}
}

func (s *Scheduler) handleStart(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != sess || sess.started {
		return
	}
	sess.started = true
	s.setState(StateSpeaking)
	s.show(sess, 0)
}

// show displays step i and arms the timer for the next one. Callers hold mu.
func (s *Scheduler) show(sess *session, i int) {
	if i >= len(sess.steps) {
		sess.timer = nil
		s.setViseme(VisemeSil)
		return
	}

	step := sess.steps[i]
	s.setViseme(step.Viseme)
	hold := time.Duration(float64(step.Duration) / sess.rate)
	sess.timer = time.AfterFunc(hold, func() { s.advance(sess, i+1) })
}

func (s *Scheduler) advance(sess *session, i int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != sess {
		return
	}
	s.show(sess, i)
}

func (s *Scheduler) handleError(sess *session, err error) {
	if IsBenign(err) {
		s.finish(sess, OutcomeCanceled, nil)
		return
	}
	s.finish(sess, OutcomeFailed, err)
}

// finish tears down sess after an engine event. Events from a session that
// is no longer active are dropped.
func (s *Scheduler) finish(sess *session, o Outcome, err error) {
	s.mu.Lock()
	if s.session != sess {
		s.mu.Unlock()
		return
	}
	s.session = nil
	sess.stopTimer()
	s.setViseme(VisemeSil)
	s.setState(StateIdle)
	s.mu.Unlock()

	if !sess.playback.resolve(o, err) {
		return
	}
	if o == OutcomeFailed {
		s.logger.Warn("Speech engine failed", zap.Error(err))
	}
	s.notifyOutcome(o)
}

// setViseme publishes v when it changes. Callers hold mu.
func (s *Scheduler) setViseme(v Viseme) {
	if s.viseme == v {
		return
	}
	s.viseme = v
	for _, h := range s.hooks {
		if h.OnViseme != nil {
			h.OnViseme(v)
		}
	}
}

// setState publishes st when it changes. Callers hold mu.
func (s *Scheduler) setState(st State) {
	if s.state == st {
		return
	}
	s.state = st
	for _, h := range s.hooks {
		if h.OnState != nil {
			h.OnState(st)
		}
	}
}

func (s *Scheduler) notifyOutcome(o Outcome) {
	s.mu.Lock()
	hooks := append([]Hooks(nil), s.hooks...)
	s.mu.Unlock()

	for _, h := range hooks {
		if h.OnOutcome != nil {
			h.OnOutcome(o)
		}
	}
}
