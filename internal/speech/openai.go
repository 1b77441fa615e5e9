package speech

import (
	"context"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/Raikerian/go-interview-voice/internal/config"
	"github.com/Raikerian/go-interview-voice/internal/lipsync"
)

// SpeechClient is the part of the OpenAI client used for synthesis.
type SpeechClient interface {
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// OpenAISynthesizer renders speech with the OpenAI audio API.
type OpenAISynthesizer struct {
	client SpeechClient
	model  openai.SpeechModel
	voice  openai.SpeechVoice
}

// NewOpenAISynthesizer creates an OpenAISynthesizer using the configured
// model and voice.
func NewOpenAISynthesizer(client SpeechClient, cfg *config.Config) *OpenAISynthesizer {
	return &OpenAISynthesizer{
		client: client,
		model:  openai.SpeechModel(cfg.Speech.Model),
		voice:  openai.SpeechVoice(cfg.Speech.Voice),
	}
}

func (o *OpenAISynthesizer) Name() string {
	return config.SpeechEngineOpenAI
}

func (o *OpenAISynthesizer) Synthesize(ctx context.Context, text string, _ lipsync.VoiceOptions) (io.ReadCloser, error) {
	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          o.model,
		Input:          text,
		Voice:          o.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, fmt.Errorf("create openai speech: %w", err)
	}

	return resp.ReadCloser, nil
}
