package room

import (
	"context"
	"time"

	"github.com/Raikerian/go-interview-voice/internal/capture"
	"github.com/Raikerian/go-interview-voice/internal/lipsync"
)

// Microphone captures candidate audio as PCM frames.
type Microphone interface {
	Start(ctx context.Context, onFrame capture.FrameFunc) error
	Stop() error
	Running() bool
	// Done is closed when capture ends; Err then reports a device failure.
	Done() <-chan struct{}
	Err() error
}

// Speaker plays interviewer lines with a synchronised avatar.
type Speaker interface {
	Play(text string, opts lipsync.VoiceOptions) *lipsync.Playback
	Stop()
	State() lipsync.State
	Viseme() lipsync.Viseme
}

// Phase is the lifecycle of the interview session.
type Phase int

const (
	PhaseStarting Phase = iota
	PhaseActive
	PhaseEnding
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhaseActive:
		return "active"
	case PhaseEnding:
		return "ending"
	case PhaseEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// MarshalText renders the phase name in JSON payloads.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Answer is the candidate speech between two pauses.
type Answer struct {
	Index int       `json:"index"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// Status is a read-only view of the room.
type Status struct {
	Phase      Phase          `json:"phase"`
	Listening  bool           `json:"listening"`
	Speaking   bool           `json:"speaking"`
	State      lipsync.State  `json:"state"`
	Viseme     lipsync.Viseme `json:"viseme"`
	Transcript string         `json:"transcript"`
	Partial    string         `json:"partial,omitempty"`
	Answers    int            `json:"answers"`
	StartedAt  time.Time      `json:"started_at"`
}

// Error definitions
var (
	ErrNotActive        = NewRoomError("interview room is not active")
	ErrAlreadyListening = NewRoomError("already listening")
)

// RoomError represents errors specific to interview room operations.
type RoomError struct {
	message string
	err     error
}

func NewRoomError(message string) *RoomError {
	return &RoomError{message: message}
}

func wrapRoomError(message string, err error) *RoomError {
	return &RoomError{message: message, err: err}
}

func (e *RoomError) Error() string {
	if e.err != nil {
		return e.message + ": " + e.err.Error()
	}
	return e.message
}

func (e *RoomError) Unwrap() error {
	return e.err
}
