package speech

import (
	"context"
	"fmt"
	"io"

	google_translate_tts "github.com/GrailFinder/google-translate-tts"
	"github.com/GrailFinder/google-translate-tts/handlers"

	"github.com/Raikerian/go-interview-voice/internal/config"
	"github.com/Raikerian/go-interview-voice/internal/lipsync"
)

// GoogleSynthesizer uses the Google Translate speech endpoint. Generated
// clips are cached on disk by the library.
type GoogleSynthesizer struct {
	speech *google_translate_tts.Speech
}

// NewGoogleSynthesizer creates a GoogleSynthesizer for the configured
// language. Playback speed is applied by the Orator, so the endpoint always
// renders at normal speed.
func NewGoogleSynthesizer(cfg *config.Config) *GoogleSynthesizer {
	return &GoogleSynthesizer{
		speech: &google_translate_tts.Speech{
			Folder:   cfg.Speech.CacheDir,
			Language: cfg.Speech.Language,
			Speed:    1.0,
			Handler:  &handlers.Beep{},
		},
	}
}

func (g *GoogleSynthesizer) Name() string {
	return config.SpeechEngineGoogle
}

// Synthesize fetches the MP3 for text. The library call is not
// cancellable; ctx is checked before and after it.
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string, _ lipsync.VoiceOptions) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := g.speech.GenerateSpeech(text)
	if err != nil {
		return nil, fmt.Errorf("generate google speech: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return io.NopCloser(reader), nil
}
