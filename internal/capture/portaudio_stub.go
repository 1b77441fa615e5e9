//go:build !portaudio

package capture

import "fmt"

// PortAudioSource stub when portaudio is not available.
type PortAudioSource struct{}

// NewPortAudioSource creates the stub source.
func NewPortAudioSource() Source {
	return PortAudioSource{}
}

func (PortAudioSource) Name() string {
	return "portaudio"
}

func (PortAudioSource) Open(int, int) (Stream, error) {
	return nil, fmt.Errorf("%w: rebuild with -tags portaudio", ErrUnavailable)
}
