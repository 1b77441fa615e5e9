package transcription_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Raikerian/go-interview-voice/internal/config"
	"github.com/Raikerian/go-interview-voice/internal/transcription"
)

func TestNewProvider(t *testing.T) {
	tests := map[string]struct {
		cfg     config.Config
		want    string
		wantErr bool
	}{
		"streaming": {
			cfg:  config.Config{Transcription: config.TranscriptionConfig{Provider: config.TranscriptionStreaming, URL: "wss://example.test/ws"}},
			want: "streaming",
		},
		"streaming with token url": {
			cfg: config.Config{Transcription: config.TranscriptionConfig{
				Provider: config.TranscriptionStreaming,
				URL:      "wss://example.test/ws",
				TokenURL: "https://example.test/token",
				APIKey:   "key",
			}},
			want: "streaming",
		},
		"openai realtime falls back to openai key": {
			cfg: config.Config{
				Transcription: config.TranscriptionConfig{Provider: config.TranscriptionOpenAIRealtime},
				OpenAI:        config.OpenAIConfig{APIKey: "sk-test"},
			},
			want: "openai_realtime",
		},
		"unknown": {
			cfg:     config.Config{Transcription: config.TranscriptionConfig{Provider: "carrier-pigeon"}},
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			p, err := transcription.NewProvider(zaptest.NewLogger(t), &tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}
