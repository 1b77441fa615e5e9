package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Raikerian/go-interview-voice/internal/config"
)

// Microphone owns one capture graph: a Stream opened from a Source, a read
// loop, and a Chunker that turns captured buffers into frames.
type Microphone struct {
	logger *zap.Logger
	source Source
	cfg    config.CaptureConfig

	mu      sync.Mutex
	stream  Stream
	chunker *Chunker
	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	// errMu guards readErr, set by the read loop while Stop may hold mu.
	errMu   sync.Mutex
	readErr error
}

// NewMicrophone creates a Microphone reading from source.
func NewMicrophone(logger *zap.Logger, source Source, cfg *config.Config) *Microphone {
	return &Microphone{
		logger: logger,
		source: source,
		cfg:    cfg.Capture,
	}
}

// Start opens the audio graph and begins emitting frames to onFrame until
// Stop is called. On failure nothing stays open.
func (m *Microphone) Start(ctx context.Context, onFrame FrameFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}

	chunker, err := NewChunker(m.cfg.SampleRate, m.cfg.FrameDuration, onFrame)
	if err != nil {
		return err
	}

	stream, err := m.source.Open(m.cfg.SampleRate, m.cfg.FramesPerBuffer)
	if err != nil {
		return fmt.Errorf("open %s input at %d Hz: %w", m.source.Name(), m.cfg.SampleRate, err)
	}

	if err := stream.Start(); err != nil {
		if closeErr := stream.Close(); closeErr != nil {
			return fmt.Errorf("start %s input: %w; close error: %w", m.source.Name(), err, closeErr)
		}
		return fmt.Errorf("start %s input: %w", m.source.Name(), err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.stream = stream
	m.chunker = chunker
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true
	m.setReadErr(nil)

	go m.readLoop(loopCtx, stream, chunker, m.done)

	m.logger.Info("Microphone started",
		zap.String("source", m.source.Name()),
		zap.Int("sample_rate", m.cfg.SampleRate),
		zap.Duration("frame_duration", m.cfg.FrameDuration),
		zap.Int("frame_samples", chunker.FrameSamples()))

	return nil
}

// Stop ends capture and releases the stream. It is safe to call any number
// of times, including before Start.
func (m *Microphone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}
	m.running = false

	m.cancel()
	// The loop checks for cancellation between reads, so the stream is
	// never closed under a pending Read.
	<-m.done

	err := m.stream.Close()
	frames := m.chunker.Emitted()
	m.chunker.Reset()

	m.stream = nil
	m.chunker = nil
	m.cancel = nil
	m.done = nil

	m.logger.Info("Microphone stopped", zap.Uint64("frames", frames))
	if err != nil {
		return fmt.Errorf("close %s input: %w", m.source.Name(), err)
	}

	return nil
}

// Running reports whether capture is active. It is false once the read
// loop has ended, even before Stop.
func (m *Microphone) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return false
	}
	select {
	case <-m.done:
		return false
	default:
		return true
	}
}

// Done is closed when the current capture ends, either through Stop or a
// device failure. Without an active capture it returns a closed channel.
func (m *Microphone) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return m.done
}

// Err returns the read error that ended the last capture, if any.
func (m *Microphone) Err() error {
	m.errMu.Lock()
	defer m.errMu.Unlock()
	return m.readErr
}

func (m *Microphone) setReadErr(err error) {
	m.errMu.Lock()
	defer m.errMu.Unlock()
	m.readErr = err
}

func (m *Microphone) readLoop(ctx context.Context, stream Stream, chunker *Chunker, done chan struct{}) {
	defer close(done)

	start := time.Now()
	for {
		if ctx.Err() != nil {
			return
		}

		buf, err := stream.Read()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			m.logger.Error("Microphone read failed",
				zap.Error(err),
				zap.Duration("captured_for", time.Since(start)))
			m.setReadErr(fmt.Errorf("read %s input: %w", m.source.Name(), err))
			return
		}

		chunker.Write(buf)
	}
}
