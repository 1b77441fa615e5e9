//go:build portaudio

package capture

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSource captures from the default input device.
type PortAudioSource struct{}

// NewPortAudioSource creates the default-device source.
func NewPortAudioSource() Source {
	return PortAudioSource{}
}

func (PortAudioSource) Name() string {
	return "portaudio"
}

func (PortAudioSource) Open(sampleRate, framesPerBuffer int) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	buf := make([]float32, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), len(buf), buf)
	if err != nil {
		if paErr := portaudio.Terminate(); paErr != nil {
			return nil, fmt.Errorf("opening stream: %w; terminate error: %w", err, paErr)
		}
		return nil, fmt.Errorf("opening stream: %w", err)
	}

	return &portAudioStream{stream: stream, buf: buf}, nil
}

type portAudioStream struct {
	stream  *portaudio.Stream
	buf     []float32
	started bool
}

func (s *portAudioStream) Start() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}
	s.started = true
	return nil
}

func (s *portAudioStream) Read() ([]float32, error) {
	if err := s.stream.Read(); err != nil {
		return nil, fmt.Errorf("reading stream: %w", err)
	}
	return s.buf, nil
}

func (s *portAudioStream) Close() error {
	var stopErr error
	if s.started {
		stopErr = s.stream.Stop()
	}
	closeErr := s.stream.Close()
	termErr := portaudio.Terminate()

	switch {
	case stopErr != nil:
		return fmt.Errorf("stopping stream: %w", stopErr)
	case closeErr != nil:
		return fmt.Errorf("closing stream: %w", closeErr)
	case termErr != nil:
		return fmt.Errorf("terminating portaudio: %w", termErr)
	}
	return nil
}
