package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// Message types sent by the streaming endpoint.
const (
	messageSessionBegins     = "SessionBegins"
	messagePartialTranscript = "PartialTranscript"
	messageFinalTranscript   = "FinalTranscript"
	messageSessionTerminated = "SessionTerminated"
)

const closeTimeout = 3 * time.Second

// StreamingProvider streams raw PCM frames over a WebSocket and receives
// JSON transcripts.
type StreamingProvider struct {
	logger *zap.Logger
	url    string
	apiKey string
	tokens TokenSource
}

// NewStreamingProvider creates a provider for the endpoint at wsURL. With a
// TokenSource the connection authenticates with a temporary token in the
// query; otherwise apiKey is sent in the Authorization header.
func NewStreamingProvider(logger *zap.Logger, wsURL, apiKey string, tokens TokenSource) *StreamingProvider {
	return &StreamingProvider{
		logger: logger,
		url:    wsURL,
		apiKey: apiKey,
		tokens: tokens,
	}
}

func (p *StreamingProvider) Name() string {
	return "streaming"
}

// StartStream dials the endpoint. The session lives until ctx ends or
// Close is called.
func (p *StreamingProvider) StartStream(ctx context.Context, cfg StreamConfig) (Session, error) {
	wsURL, err := p.buildURL(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts := &websocket.DialOptions{}
	if p.tokens == nil && p.apiKey != "" {
		opts.HTTPHeader = http.Header{"Authorization": []string{p.apiKey}}
	}

	conn, _, err := websocket.Dial(ctx, wsURL, opts)
	if err != nil {
		return nil, fmt.Errorf("dial transcription endpoint: %w", err)
	}

	sess := &streamingSession{
		logger:      p.logger,
		conn:        conn,
		transcripts: make(chan Transcript, 64),
		audio:       make(chan []byte, 256),
		done:        make(chan struct{}),
		readDone:    make(chan struct{}),
		hangup:      make(chan struct{}),
	}

	sess.wg.Add(2)
	go sess.readLoop(ctx)
	go sess.writeLoop(ctx)

	p.logger.Info("Transcription stream opened",
		zap.String("provider", p.Name()),
		zap.Int("sample_rate", cfg.SampleRate))

	return sess, nil
}

func (p *StreamingProvider) buildURL(ctx context.Context, cfg StreamConfig) (string, error) {
	u, err := url.Parse(p.url)
	if err != nil {
		return "", fmt.Errorf("parse transcription url: %w", err)
	}

	q := u.Query()
	if cfg.SampleRate > 0 {
		q.Set("sample_rate", strconv.Itoa(cfg.SampleRate))
	}
	if cfg.Language != "" {
		q.Set("language_code", cfg.Language)
	}

	if p.tokens != nil {
		token, err := p.tokens.Token(ctx)
		if err != nil {
			return "", fmt.Errorf("fetch transcription token: %w", err)
		}
		q.Set("token", token)
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

type streamingMessage struct {
	MessageType string `json:"message_type"`
	Text        string `json:"text"`
	SessionID   string `json:"session_id"`
	Error       string `json:"error"`
}

type streamingSession struct {
	logger      *zap.Logger
	conn        *websocket.Conn
	transcripts chan Transcript
	audio       chan []byte

	done     chan struct{}
	readDone chan struct{}
	hangup   chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
	dropped  atomic.Uint64

	mu  sync.Mutex
	err error
}

func (s *streamingSession) SendAudio(ctx context.Context, frame []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	case <-s.readDone:
		return ErrSessionClosed
	default:
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// Never block the capture loop: a stalled connection loses audio.
	select {
	case s.audio <- frame:
		return nil
	default:
		if s.dropped.Add(1) == 1 {
			s.logger.Warn("Audio queue full, dropping frames")
		}
		return nil
	}
}

// Dropped returns how many frames were discarded on a full queue.
func (s *streamingSession) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *streamingSession) Transcripts() <-chan Transcript {
	return s.transcripts
}

func (s *streamingSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *streamingSession) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Close flushes queued audio, asks the endpoint to terminate and waits
// briefly for it to hang up.
func (s *streamingSession) Close() error {
	s.once.Do(func() {
		close(s.done)

		timer := time.NewTimer(closeTimeout)
		defer timer.Stop()

		select {
		case <-s.readDone:
		case <-timer.C:
			s.logger.Warn("Transcription endpoint did not terminate in time")
		}

		close(s.hangup)
		_ = s.conn.Close(websocket.StatusNormalClosure, "session closed")
		s.wg.Wait()

		if n := s.dropped.Load(); n > 0 {
			s.logger.Warn("Audio frames dropped during session", zap.Uint64("dropped", n))
		}
	})
	return nil
}

func (s *streamingSession) writeLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case frame := <-s.audio:
			if err := s.conn.Write(ctx, websocket.MessageBinary, frame); err != nil {
				s.setErr(fmt.Errorf("write audio: %w", err))
				return
			}
		case <-s.readDone:
			return
		case <-s.done:
			for {
				select {
				case frame := <-s.audio:
					_ = s.conn.Write(ctx, websocket.MessageBinary, frame)
				default:
					_ = s.conn.Write(ctx, websocket.MessageText, []byte(`{"terminate_session": true}`))
					return
				}
			}
		}
	}
}

func (s *streamingSession) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.readDone)
	defer close(s.transcripts)

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			if !s.closing() && !isNormalClosure(err) {
				s.setErr(fmt.Errorf("read transcript: %w", err))
			}
			return
		}

		var msg streamingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Debug("Ignoring malformed transcription message", zap.Error(err))
			continue
		}

		switch msg.MessageType {
		case messageSessionBegins:
			s.logger.Debug("Transcription session began", zap.String("session_id", msg.SessionID))
		case messagePartialTranscript, messageFinalTranscript:
			if msg.Text == "" {
				continue
			}
			t := Transcript{
				Text:  msg.Text,
				Final: msg.MessageType == messageFinalTranscript,
				At:    time.Now(),
			}
			select {
			case s.transcripts <- t:
			case <-s.hangup:
				return
			case <-ctx.Done():
				return
			}
		case messageSessionTerminated:
			return
		default:
			if msg.Error != "" {
				s.setErr(fmt.Errorf("transcription endpoint error: %s", msg.Error))
				s.logger.Warn("Transcription endpoint error", zap.String("error", msg.Error))
			}
		}
	}
}

func (s *streamingSession) closing() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func isNormalClosure(err error) bool {
	return websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled)
}
