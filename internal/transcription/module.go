// Package transcription streams candidate audio to real-time speech
// recognition services.
package transcription

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-interview-voice/internal/config"
)

// Module provides the configured transcription Provider.
var Module = fx.Module("transcription",
	fx.Provide(NewProvider),
)

// NewProvider builds the provider named by transcription.provider.
func NewProvider(logger *zap.Logger, cfg *config.Config) (Provider, error) {
	tc := cfg.Transcription

	switch tc.Provider {
	case config.TranscriptionStreaming:
		var tokens TokenSource
		if tc.TokenURL != "" {
			tokens = NewHTTPTokenSource(nil, tc.TokenURL, tc.APIKey)
		}
		return NewStreamingProvider(logger, tc.URL, tc.APIKey, tokens), nil

	case config.TranscriptionOpenAIRealtime:
		// Use a separate realtime key if provided, otherwise the main OpenAI key.
		apiKey := tc.APIKey
		if apiKey == "" {
			apiKey = cfg.OpenAI.APIKey
		}
		return NewRealtimeProvider(logger, apiKey, tc.Model), nil

	default:
		return nil, fmt.Errorf("unknown transcription provider %q", tc.Provider)
	}
}
