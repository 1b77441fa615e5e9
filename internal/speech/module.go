// Package speech synthesises interviewer lines and plays them back. Its
// Orator is the speech engine behind the lipsync scheduler.
package speech

import (
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-interview-voice/internal/config"
	"github.com/Raikerian/go-interview-voice/internal/lipsync"
)

// Module provides the configured Synthesizer, the speaker Output and the
// Orator as a lipsync.Engine.
var Module = fx.Module("speech",
	fx.Provide(
		NewSynthesizer,
		newLifecycleOutput,
		NewOrator,
		func(o *Orator) lipsync.Engine { return o },
	),
)

// NewSynthesizer selects the synthesizer named by speech.engine.
func NewSynthesizer(logger *zap.Logger, cfg *config.Config, client *openai.Client) (Synthesizer, error) {
	var synth Synthesizer
	switch cfg.Speech.Engine {
	case config.SpeechEngineGoogle:
		synth = NewGoogleSynthesizer(cfg)
	case config.SpeechEngineOpenAI:
		synth = NewOpenAISynthesizer(client, cfg)
	default:
		return nil, fmt.Errorf("unknown speech engine %q", cfg.Speech.Engine)
	}

	logger.Info("Speech synthesizer selected",
		zap.String("engine", synth.Name()),
		zap.String("language", cfg.Speech.Language),
		zap.String("voice", cfg.Speech.Voice))

	return synth, nil
}
