package capture

import "errors"

// Source builds the audio input graph. Open must leave nothing allocated
// when it returns an error.
type Source interface {
	Open(sampleRate, framesPerBuffer int) (Stream, error)
	Name() string
}

// Stream is an opened mono input stream delivering float samples in [-1, 1].
type Stream interface {
	Start() error
	// Read blocks until the next buffer is captured. The returned slice is
	// only valid until the next call.
	Read() ([]float32, error)
	// Close stops capture and releases the device. It is called once.
	Close() error
}

var (
	ErrAlreadyRunning = errors.New("capture: microphone already running")
	ErrUnavailable    = errors.New("capture: audio input not available")
)
