package speech

import (
	"context"
	"io"

	"github.com/Raikerian/go-interview-voice/internal/lipsync"
)

// Synthesizer turns text into MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, opts lipsync.VoiceOptions) (io.ReadCloser, error)
	Name() string
}
