package transcription

import (
	"context"
	"errors"
	"time"
)

// ErrSessionClosed is returned when audio is sent to a closed session.
var ErrSessionClosed = errors.New("transcription session is closed")

// Transcript is one recognition result. Partial results are superseded by
// later ones; final results are stable.
type Transcript struct {
	Text  string    `json:"text"`
	Final bool      `json:"final"`
	At    time.Time `json:"at"`
}

// StreamConfig describes the audio sent to a session.
type StreamConfig struct {
	SampleRate int
	Language   string
}

// Provider opens real-time transcription sessions.
type Provider interface {
	StartStream(ctx context.Context, cfg StreamConfig) (Session, error)
	Name() string
}

// Session is one open transcription stream. Transcripts is closed when the
// session ends; Err then reports why, nil after a clean Close.
type Session interface {
	SendAudio(ctx context.Context, frame []byte) error
	Transcripts() <-chan Transcript
	Close() error
	Err() error
}
