package lipsync_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Raikerian/go-interview-voice/internal/config"
	"github.com/Raikerian/go-interview-voice/internal/lipsync"
)

// fakeEngine records utterances and lets the test fire their callbacks.
type fakeEngine struct {
	mu          sync.Mutex
	utterances  []lipsync.Utterance
	callbacks   []lipsync.Callbacks
	cancels     int
	speakErr    error
	interruptOn bool
}

func (e *fakeEngine) Speak(u lipsync.Utterance, cb lipsync.Callbacks) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.speakErr != nil {
		return e.speakErr
	}
	e.utterances = append(e.utterances, u)
	e.callbacks = append(e.callbacks, cb)
	return nil
}

func (e *fakeEngine) Cancel() {
	e.mu.Lock()
	e.cancels++
	var cb lipsync.Callbacks
	if e.interruptOn && len(e.callbacks) > 0 {
		cb = e.callbacks[len(e.callbacks)-1]
	}
	e.mu.Unlock()

	if cb.OnError != nil {
		cb.OnError(lipsync.ErrInterrupted)
	}
}

func (e *fakeEngine) last(t *testing.T) lipsync.Callbacks {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	require.NotEmpty(t, e.callbacks)
	return e.callbacks[len(e.callbacks)-1]
}

func (e *fakeEngine) speakCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.utterances)
}

func (e *fakeEngine) cancelCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancels
}

// recorder collects hook events.
type recorder struct {
	mu       sync.Mutex
	visemes  []lipsync.Viseme
	states   []lipsync.State
	outcomes []lipsync.Outcome
}

func (r *recorder) hooks() lipsync.Hooks {
	return lipsync.Hooks{
		OnViseme: func(v lipsync.Viseme) {
			r.mu.Lock()
			r.visemes = append(r.visemes, v)
			r.mu.Unlock()
		},
		OnState: func(s lipsync.State) {
			r.mu.Lock()
			r.states = append(r.states, s)
			r.mu.Unlock()
		},
		OnOutcome: func(o lipsync.Outcome) {
			r.mu.Lock()
			r.outcomes = append(r.outcomes, o)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) visemeLog() []lipsync.Viseme {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]lipsync.Viseme(nil), r.visemes...)
}

func (r *recorder) stateLog() []lipsync.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]lipsync.State(nil), r.states...)
}

func newScheduler(t *testing.T, engine lipsync.Engine, rate float64) (*lipsync.Scheduler, *recorder) {
	t.Helper()

	cfg := &config.Config{Lipsync: config.LipsyncConfig{Rate: rate, Pitch: 1.1, Volume: 1, PatternCacheSize: 8}}
	s, err := lipsync.NewScheduler(zaptest.NewLogger(t), engine, cfg)
	require.NoError(t, err)

	rec := &recorder{}
	s.AddHooks(rec.hooks())
	return s, rec
}

func waitResolved(t *testing.T, pb *lipsync.Playback) lipsync.Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	o, err := pb.Wait(ctx)
	require.NoError(t, err, "playback did not resolve")
	return o
}

func TestSchedulerCompletesOnEngineEnd(t *testing.T) {
	engine := &fakeEngine{}
	s, rec := newScheduler(t, engine, 20)

	pb := s.Play("hi", lipsync.VoiceOptions{})
	assert.Equal(t, lipsync.StateStarting, s.State())
	assert.Empty(t, rec.visemeLog(), "visemes must wait for the start event")

	cb := engine.last(t)
	cb.OnStart()
	assert.Equal(t, lipsync.StateSpeaking, s.State())

	// At rate 20 the whole pattern runs in a few milliseconds.
	require.Eventually(t, func() bool {
		v := rec.visemeLog()
		return len(v) >= 3 && v[len(v)-1] == lipsync.VisemeSil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []lipsync.Viseme{lipsync.VisemeAA, lipsync.VisemeI, lipsync.VisemeSil}, rec.visemeLog())

	select {
	case <-pb.Done():
		t.Fatal("playback resolved before the engine ended")
	default:
	}

	cb.OnEnd()
	assert.Equal(t, lipsync.OutcomeCompleted, waitResolved(t, pb))
	assert.Equal(t, lipsync.StateIdle, s.State())
	assert.Equal(t, lipsync.VisemeSil, s.Viseme())
	assert.Equal(t, []lipsync.State{lipsync.StateStarting, lipsync.StateSpeaking, lipsync.StateIdle}, rec.stateLog())
}

func TestSchedulerPassesNormalizedOptions(t *testing.T) {
	engine := &fakeEngine{}
	s, _ := newScheduler(t, engine, 1.25)

	s.Play("hello", lipsync.VoiceOptions{Volume: 0.5})

	engine.mu.Lock()
	defer engine.mu.Unlock()
	require.Len(t, engine.utterances, 1)
	assert.Equal(t, "hello", engine.utterances[0].Text)
	assert.Equal(t, lipsync.VoiceOptions{Rate: 1.25, Pitch: 1.1, Volume: 0.5}, engine.utterances[0].Options)
}

func TestSchedulerSecondPlayCancelsFirst(t *testing.T) {
	engine := &fakeEngine{interruptOn: true}
	s, rec := newScheduler(t, engine, 1)

	first := s.Play("first line", lipsync.VoiceOptions{})
	engine.last(t).OnStart()
	firstCallbacks := engine.last(t)

	second := s.Play("second line", lipsync.VoiceOptions{})

	assert.Equal(t, lipsync.OutcomeCanceled, waitResolved(t, first))
	assert.Equal(t, 1, engine.cancelCount())
	assert.Equal(t, 2, engine.speakCount())
	assert.Equal(t, lipsync.StateStarting, s.State())

	// Late events from the first utterance change nothing.
	firstCallbacks.OnEnd()
	firstCallbacks.OnError(errors.New("late failure"))
	assert.Equal(t, lipsync.OutcomeCanceled, first.Outcome())
	assert.Equal(t, lipsync.StateStarting, s.State())

	select {
	case <-second.Done():
		t.Fatal("second playback resolved by stale events")
	default:
	}

	s.Stop()
	assert.Equal(t, lipsync.OutcomeCanceled, waitResolved(t, second))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []lipsync.Outcome{lipsync.OutcomeCanceled, lipsync.OutcomeCanceled}, rec.outcomes)
}

func TestSchedulerOnlyNewUtteranceAnimates(t *testing.T) {
	engine := &fakeEngine{}
	s, rec := newScheduler(t, engine, 20)

	s.Play("oo", lipsync.VoiceOptions{})
	first := engine.last(t)
	first.OnStart()

	s.Play("pa", lipsync.VoiceOptions{})
	second := engine.last(t)
	mark := len(rec.visemeLog())

	// Events from the replaced utterance must not animate.
	first.OnStart()
	first.OnEnd()

	second.OnStart()
	require.Eventually(t, func() bool {
		v := rec.visemeLog()
		return len(v) > mark && v[len(v)-1] == lipsync.VisemeSil
	}, time.Second, 2*time.Millisecond)

	assert.Equal(t,
		[]lipsync.Viseme{lipsync.VisemePP, lipsync.VisemeAA, lipsync.VisemeSil},
		rec.visemeLog()[mark:])
}

func TestSchedulerLateInterruptAfterStopNotLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	engine := &fakeEngine{}
	cfg := &config.Config{Lipsync: config.LipsyncConfig{Rate: 1, Pitch: 1.1, Volume: 1, PatternCacheSize: 8}}
	s, err := lipsync.NewScheduler(zap.New(core), engine, cfg)
	require.NoError(t, err)

	pb := s.Play("goodbye", lipsync.VoiceOptions{})
	cb := engine.last(t)
	cb.OnStart()
	s.Stop()

	// The engine reports the interruption after Stop has returned.
	cb.OnError(lipsync.ErrInterrupted)

	assert.Equal(t, lipsync.OutcomeCanceled, waitResolved(t, pb))
	assert.NoError(t, pb.Err())
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Zero(t, logs.FilterMessage("Speech engine failed").Len())

	// A genuine failure on the active utterance is logged.
	pb = s.Play("again", lipsync.VoiceOptions{})
	engine.last(t).OnError(errors.New("device lost"))
	assert.Equal(t, lipsync.OutcomeFailed, waitResolved(t, pb))
	assert.Equal(t, 1, logs.FilterMessage("Speech engine failed").Len())
}

func TestSchedulerBlankTextSkipped(t *testing.T) {
	tests := map[string]string{
		"empty":      "",
		"whitespace": "  \t\n ",
	}

	for name, text := range tests {
		t.Run(name, func(t *testing.T) {
			engine := &fakeEngine{}
			s, rec := newScheduler(t, engine, 1)

			pb := s.Play(text, lipsync.VoiceOptions{})

			select {
			case <-pb.Done():
			default:
				t.Fatal("blank playback must resolve immediately")
			}
			assert.Equal(t, lipsync.OutcomeSkipped, pb.Outcome())
			assert.Zero(t, engine.speakCount())
			assert.Equal(t, lipsync.StateIdle, s.State())
			assert.Empty(t, rec.stateLog())
		})
	}
}

func TestSchedulerEngineErrors(t *testing.T) {
	boom := errors.New("audio device lost")

	tests := map[string]struct {
		err     error
		outcome lipsync.Outcome
		wantErr error
	}{
		"interrupted is benign": {err: lipsync.ErrInterrupted, outcome: lipsync.OutcomeCanceled},
		"canceled is benign":    {err: lipsync.ErrCanceled, outcome: lipsync.OutcomeCanceled},
		"other error fails":     {err: boom, outcome: lipsync.OutcomeFailed, wantErr: boom},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			engine := &fakeEngine{}
			s, _ := newScheduler(t, engine, 1)

			pb := s.Play("hello there", lipsync.VoiceOptions{})
			cb := engine.last(t)
			cb.OnStart()
			cb.OnError(tt.err)

			assert.Equal(t, tt.outcome, waitResolved(t, pb))
			assert.Equal(t, tt.wantErr, pb.Err())
			assert.Equal(t, lipsync.StateIdle, s.State())
			assert.Equal(t, lipsync.VisemeSil, s.Viseme())

			// A second report is ignored.
			cb.OnError(boom)
			assert.Equal(t, tt.outcome, pb.Outcome())
		})
	}
}

func TestSchedulerSpeakErrorFails(t *testing.T) {
	engine := &fakeEngine{speakErr: errors.New("no voices")}
	s, _ := newScheduler(t, engine, 1)

	pb := s.Play("hello", lipsync.VoiceOptions{})
	assert.Equal(t, lipsync.OutcomeFailed, waitResolved(t, pb))
	assert.EqualError(t, pb.Err(), "no voices")
	assert.Equal(t, lipsync.StateIdle, s.State())
}

func TestSchedulerStopIsSafe(t *testing.T) {
	engine := &fakeEngine{interruptOn: true}
	s, rec := newScheduler(t, engine, 1)

	s.Stop()
	assert.Zero(t, engine.cancelCount(), "nothing to cancel while idle")

	pb := s.Play("stop me", lipsync.VoiceOptions{})
	engine.last(t).OnStart()
	s.Stop()
	s.Stop()

	assert.Equal(t, lipsync.OutcomeCanceled, waitResolved(t, pb))
	assert.Equal(t, 1, engine.cancelCount())
	assert.Equal(t, lipsync.VisemeSil, s.Viseme())
	assert.Equal(t,
		[]lipsync.State{lipsync.StateStarting, lipsync.StateSpeaking, lipsync.StateStopping, lipsync.StateIdle},
		rec.stateLog())
}

func TestSchedulerSpeakContextCancel(t *testing.T) {
	engine := &fakeEngine{}
	s, _ := newScheduler(t, engine, 1)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Speak(ctx, "a long answer", lipsync.VoiceOptions{})
	}()

	require.Eventually(t, func() bool { return engine.speakCount() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Speak did not return after cancel")
	}
	assert.Equal(t, 1, engine.cancelCount())
	assert.Equal(t, lipsync.StateIdle, s.State())
}

func TestSchedulerSpeakReturnsOnEnd(t *testing.T) {
	engine := &fakeEngine{}
	s, _ := newScheduler(t, engine, 1)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Speak(context.Background(), "done", lipsync.VoiceOptions{})
	}()

	require.Eventually(t, func() bool { return engine.speakCount() == 1 }, time.Second, time.Millisecond)
	engine.last(t).OnError(errors.New("synthesis failed"))

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Speak did not return")
	}
}
