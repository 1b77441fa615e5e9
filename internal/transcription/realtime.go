package transcription

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	openairt "github.com/WqyJh/go-openai-realtime"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Raikerian/go-interview-voice/pkg/audio"
)

// eventSender is the part of the realtime connection used by a session.
type eventSender interface {
	SendMessage(ctx context.Context, msg openairt.ClientEvent) error
}

// RealtimeProvider transcribes through the OpenAI Realtime API with input
// audio transcription enabled and no model responses.
type RealtimeProvider struct {
	logger *zap.Logger
	client *openairt.Client
	model  string
}

// NewRealtimeProvider creates a provider authenticating with apiKey.
func NewRealtimeProvider(logger *zap.Logger, apiKey, model string) *RealtimeProvider {
	if model == "" {
		model = openai.Whisper1
	}
	return &RealtimeProvider{
		logger: logger,
		client: openairt.NewClient(apiKey),
		model:  model,
	}
}

func (p *RealtimeProvider) Name() string {
	return "openai_realtime"
}

func (p *RealtimeProvider) StartStream(ctx context.Context, cfg StreamConfig) (Session, error) {
	p.logger.Info("Connecting to OpenAI Realtime API", zap.String("transcription_model", p.model))

	conn, err := p.client.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to OpenAI Realtime: %w", err)
	}

	sess := newRealtimeSession(p.logger, conn, cfg.SampleRate)

	update := &openairt.SessionUpdateEvent{
		Session: openairt.ClientSession{
			Modalities: []openairt.Modality{openairt.ModalityText},
			InputAudioTranscription: &openairt.InputAudioTranscription{
				Model: p.model,
			},
		},
	}
	if err := conn.SendMessage(ctx, update); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("configure realtime session: %w", err)
	}

	sess.closer = conn.Close
	handler := openairt.NewConnHandler(ctx, conn, sess.handleServerEvent)
	go func() {
		handler.Start()
		err := <-handler.Err()
		sess.finish(err)
	}()

	return sess, nil
}

type realtimeSession struct {
	logger      *zap.Logger
	sender      eventSender
	closer      func() error
	inputRate   int
	transcripts chan Transcript

	mu       sync.Mutex
	closed   bool
	finished bool
	err      error
}

func newRealtimeSession(logger *zap.Logger, sender eventSender, inputRate int) *realtimeSession {
	if inputRate <= 0 {
		inputRate = audio.CaptureSampleRate
	}
	return &realtimeSession{
		logger:      logger,
		sender:      sender,
		inputRate:   inputRate,
		transcripts: make(chan Transcript, 64),
	}
}

// SendAudio resamples a 16-bit LE frame to the realtime rate and appends it
// to the input buffer.
func (s *realtimeSession) SendAudio(ctx context.Context, frame []byte) error {
	s.mu.Lock()
	closed := s.closed || s.finished
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}

	pcm := audio.Resample(audio.LEToPCM16(frame), s.inputRate, audio.RealtimeSampleRate)
	event := &openairt.InputAudioBufferAppendEvent{
		Audio: base64.StdEncoding.EncodeToString(audio.PCM16ToLE(pcm)),
	}

	return s.sender.SendMessage(ctx, event)
}

func (s *realtimeSession) Transcripts() <-chan Transcript {
	return s.transcripts
}

func (s *realtimeSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *realtimeSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	closer := s.closer
	s.mu.Unlock()

	s.logger.Info("Closing OpenAI Realtime connection")

	if closer != nil {
		if err := closer(); err != nil {
			s.logger.Warn("Error closing connection", zap.Error(err))
		}
	}
	s.finish(nil)
	return nil
}

// finish closes the transcript channel once. Errors after Close are
// expected and dropped.
func (s *realtimeSession) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	if err != nil && !s.closed {
		s.err = err
	}
	close(s.transcripts)
}

func (s *realtimeSession) emit(t Transcript) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	select {
	case s.transcripts <- t:
	default:
		s.logger.Warn("Dropping transcript, consumer too slow", zap.Bool("final", t.Final))
	}
}

func (s *realtimeSession) handleServerEvent(_ context.Context, event openairt.ServerEvent) {
	s.logger.Debug("Received server event",
		zap.String("event_type", string(event.ServerEventType())))

	switch event.ServerEventType() {
	case openairt.ServerEventTypeConversationItemInputAudioTranscriptionCompleted:
		completed := event.(openairt.ConversationItemInputAudioTranscriptionCompletedEvent)
		if completed.Transcript == "" {
			return
		}
		s.emit(Transcript{Text: completed.Transcript, Final: true, At: time.Now()})

	case openairt.ServerEventTypeConversationItemInputAudioTranscriptionFailed:
		failed := event.(openairt.ConversationItemInputAudioTranscriptionFailedEvent)
		s.logger.Warn("Candidate audio transcription failed",
			zap.String("item_id", failed.ItemID),
			zap.String("error", failed.Error.Message))

	case openairt.ServerEventTypeError:
		errorEvent := event.(openairt.ErrorEvent)
		s.logger.Warn("OpenAI Realtime error", zap.String("error", errorEvent.Error.Message))
	}
}
