package room

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Raikerian/go-interview-voice/internal/capture"
	"github.com/Raikerian/go-interview-voice/internal/config"
	"github.com/Raikerian/go-interview-voice/internal/lipsync"
	"github.com/Raikerian/go-interview-voice/internal/observe"
	"github.com/Raikerian/go-interview-voice/internal/transcription"
	"github.com/Raikerian/go-interview-voice/pkg/util"
)

// Room is one interview: it listens to the candidate, keeps the running
// transcript and speaks the interviewer's lines.
type Room struct {
	logger   *zap.Logger
	mic      Microphone
	recorder *capture.Recorder
	provider transcription.Provider
	speaker  Speaker
	metrics  *observe.Metrics
	stream   transcription.StreamConfig
	answers  *util.Debouncer

	// ctx bounds every listening pipeline; it ends with the room.
	ctx    context.Context
	cancel context.CancelFunc

	listenMu  sync.Mutex
	listening *listener

	mu              sync.Mutex
	phase           Phase
	startedAt       time.Time
	transcript      string
	partial         string
	answerMark      int
	answerLog       []Answer
	answerHooks     []func(Answer)
	transcriptHooks []func(transcription.Transcript)
}

type listener struct {
	session transcription.Session
	// stopFrames releases a frame blocked in SendAudio.
	stopFrames context.CancelFunc
	cancel     context.CancelFunc
	group      *errgroup.Group
}

// NewRoom creates a room in PhaseStarting.
func NewRoom(
	logger *zap.Logger,
	mic Microphone,
	recorder *capture.Recorder,
	provider transcription.Provider,
	speaker Speaker,
	metrics *observe.Metrics,
	cfg *config.Config,
) *Room {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Room{
		logger:   logger,
		mic:      mic,
		recorder: recorder,
		provider: provider,
		speaker:  speaker,
		metrics:  metrics,
		stream: transcription.StreamConfig{
			SampleRate: cfg.Capture.SampleRate,
			Language:   cfg.Transcription.Language,
		},
		ctx:    ctx,
		cancel: cancel,
		phase:  PhaseStarting,
	}
	r.answers = util.NewDebouncer(cfg.Room.AnswerSilence, r.commitAnswer)

	return r
}

// Start opens the room.
func (r *Room) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase != PhaseStarting {
		return ErrNotActive
	}
	r.phase = PhaseActive
	r.startedAt = time.Now()
	r.logger.Info("Interview room active")

	return nil
}

// End stops listening and speaking, commits the last answer and closes the
// room. Calling End again is a no-op.
func (r *Room) End(context.Context) error {
	r.mu.Lock()
	if r.phase == PhaseEnding || r.phase == PhaseEnded {
		r.mu.Unlock()
		return nil
	}
	r.phase = PhaseEnding
	r.mu.Unlock()

	r.speaker.Stop()
	err := r.StopListening()
	r.answers.Flush()
	r.answers.Stop()
	r.cancel()

	r.mu.Lock()
	r.phase = PhaseEnded
	answers := len(r.answerLog)
	started := r.startedAt
	r.mu.Unlock()

	fields := []zap.Field{zap.Int("answers", answers)}
	if !started.IsZero() {
		fields = append(fields, zap.Duration("duration", time.Since(started)))
	}
	r.logger.Info("Interview room ended", fields...)

	return err
}

// StartListening opens a transcription stream and feeds it microphone
// frames until StopListening.
func (r *Room) StartListening(ctx context.Context) error {
	if !r.active() {
		return ErrNotActive
	}

	r.listenMu.Lock()
	defer r.listenMu.Unlock()

	if r.listening != nil {
		return ErrAlreadyListening
	}

	lctx, cancel := context.WithCancel(r.ctx)
	// The dial honours the caller's deadline; the stream outlives the call.
	stop := context.AfterFunc(ctx, cancel)
	sess, err := r.provider.StartStream(lctx, r.stream)
	stopped := stop()
	if err != nil || !stopped {
		cancel()
		if err == nil {
			_ = sess.Close()
			err = ctx.Err()
		}
		return wrapRoomError("start transcription", err)
	}

	frameCtx, stopFrames := context.WithCancel(lctx)
	l := &listener{session: sess, stopFrames: stopFrames, cancel: cancel, group: &errgroup.Group{}}
	l.group.Go(func() error { return r.pump(l) })

	if err := r.mic.Start(lctx, r.frameSink(frameCtx, sess)); err != nil {
		stopFrames()
		_ = sess.Close()
		_ = l.group.Wait()
		cancel()
		return wrapRoomError("start microphone", err)
	}
	micDone := r.mic.Done()
	l.group.Go(func() error {
		r.watchMicrophone(lctx, l, micDone)
		return nil
	})

	r.listening = l
	if r.metrics != nil {
		r.metrics.ActiveListeners.Add(lctx, 1)
	}
	r.logger.Info("Listening to candidate",
		zap.String("provider", r.provider.Name()),
		zap.Int("sample_rate", r.stream.SampleRate))

	return nil
}

// StopListening stops the microphone and closes the stream. It is safe to
// call when not listening.
func (r *Room) StopListening() error {
	return r.stopListener(nil)
}

// stopListener tears down the active listener, or only l when l is set.
func (r *Room) stopListener(only *listener) error {
	r.listenMu.Lock()
	defer r.listenMu.Unlock()

	l := r.listening
	if l == nil || (only != nil && l != only) {
		return nil
	}
	r.listening = nil

	// Frames stop first so that a send blocked on a stalled stream cannot
	// hold up the capture loop.
	l.stopFrames()
	errs := []error{r.mic.Stop(), l.session.Close()}
	l.cancel()
	errs = append(errs, l.group.Wait())

	if _, err := r.recorder.Save("candidate"); err != nil && !errors.Is(err, capture.ErrEmptyRecording) {
		r.logger.Warn("Failed to save candidate recording", zap.Error(err))
	}

	if r.metrics != nil {
		r.metrics.ActiveListeners.Add(context.Background(), -1)
	}
	r.logger.Info("Stopped listening")

	return errors.Join(errs...)
}

// Listening reports whether a listening pipeline is open.
func (r *Room) Listening() bool {
	r.listenMu.Lock()
	defer r.listenMu.Unlock()
	return r.listening != nil
}

func (r *Room) frameSink(ctx context.Context, sess transcription.Session) func([]byte) {
	var reported bool
	return func(frame []byte) {
		if r.metrics != nil {
			r.metrics.FramesEmitted.Add(ctx, 1)
			r.metrics.FrameBytes.Add(ctx, int64(len(frame)))
		}
		r.recorder.Record(frame)
		if err := sess.SendAudio(ctx, frame); err != nil && !reported {
			// Frames arrive on the capture goroutine only.
			reported = true
			r.logger.Warn("Dropping audio frames", zap.Error(err))
		}
	}
}

// pump consumes transcripts until the session ends.
func (r *Room) pump(l *listener) error {
	for t := range l.session.Transcripts() {
		r.handleTranscript(t)
	}

	err := l.session.Err()
	if err != nil {
		r.logger.Warn("Transcription stream ended", zap.Error(err))
	} else {
		r.logger.Info("Transcription stream closed")
	}
	// No retry: release the microphone and wait for a new start. When the
	// listener is being stopped already this is a no-op.
	go func() { _ = r.stopListener(l) }()

	return err
}

// watchMicrophone stops l when capture ends on its own.
func (r *Room) watchMicrophone(ctx context.Context, l *listener, micDone <-chan struct{}) {
	select {
	case <-ctx.Done():
		return
	case <-micDone:
	}

	if err := r.mic.Err(); err != nil {
		r.logger.Warn("Microphone capture failed", zap.Error(err))
		go func() { _ = r.stopListener(l) }()
	}
}

func (r *Room) handleTranscript(t transcription.Transcript) {
	if r.metrics != nil {
		kind := "partial"
		if t.Final {
			kind = "final"
		}
		r.metrics.Transcripts.Add(r.ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
	}

	r.mu.Lock()
	if t.Final {
		r.transcript = r.transcript + t.Text + " "
		r.partial = ""
	} else {
		r.partial = t.Text
	}
	hooks := slices.Clone(r.transcriptHooks)
	r.mu.Unlock()

	for _, h := range hooks {
		h(t)
	}

	if t.Final {
		r.answers.Trigger()
	}
}

// commitAnswer emits the transcript accumulated since the last answer.
func (r *Room) commitAnswer() {
	r.mu.Lock()
	text := strings.TrimSpace(r.transcript[r.answerMark:])
	r.answerMark = len(r.transcript)
	if text == "" {
		r.mu.Unlock()
		return
	}
	answer := Answer{Index: len(r.answerLog), Text: text, At: time.Now()}
	r.answerLog = append(r.answerLog, answer)
	hooks := slices.Clone(r.answerHooks)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.Answers.Add(r.ctx, 1)
	}
	r.logger.Debug("Candidate answer segmented",
		zap.Int("index", answer.Index),
		zap.Int("length", len(answer.Text)))

	for _, h := range hooks {
		h(answer)
	}
}

// OnAnswer registers fn for every segmented answer.
func (r *Room) OnAnswer(fn func(Answer)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answerHooks = append(r.answerHooks, fn)
}

// OnTranscript registers fn for every transcript, partial or final.
func (r *Room) OnTranscript(fn func(transcription.Transcript)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcriptHooks = append(r.transcriptHooks, fn)
}

// Say plays an interviewer line. A line already playing is cancelled.
func (r *Room) Say(text string, opts lipsync.VoiceOptions) (*lipsync.Playback, error) {
	if !r.active() {
		return nil, ErrNotActive
	}
	return r.speaker.Play(text, opts), nil
}

// StopSpeaking cancels the current line.
func (r *Room) StopSpeaking() {
	r.speaker.Stop()
}

// Transcript returns the final transcript so far.
func (r *Room) Transcript() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transcript
}

// Answers returns the answers segmented so far.
func (r *Room) Answers() []Answer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Answer(nil), r.answerLog...)
}

func (r *Room) Status() Status {
	listening := r.Listening()
	state := r.speaker.State()

	r.mu.Lock()
	defer r.mu.Unlock()

	return Status{
		Phase:      r.phase,
		Listening:  listening,
		Speaking:   state == lipsync.StateSpeaking,
		State:      state,
		Viseme:     r.speaker.Viseme(),
		Transcript: r.transcript,
		Partial:    r.partial,
		Answers:    len(r.answerLog),
		StartedAt:  r.startedAt,
	}
}

func (r *Room) active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase == PhaseActive
}
