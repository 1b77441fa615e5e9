// Package openai provides the shared OpenAI client.
package openai

import (
	"github.com/sashabaranov/go-openai"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-interview-voice/internal/config"
)

// Module provides OpenAI-related dependencies.
var Module = fx.Module("openai",
	fx.Provide(NewClient),
)

// NewClient creates the OpenAI client. The key is optional since only the
// openai speech engine uses the client; config validation enforces it there.
func NewClient(cfg *config.Config, logger *zap.Logger) *openai.Client {
	if cfg.OpenAI.APIKey == "" {
		logger.Debug("OpenAI API key not configured, OpenAI requests will fail")
	}

	client := openai.NewClient(cfg.OpenAI.APIKey)
	logger.Info("OpenAI client created", zap.Bool("api_key_set", cfg.OpenAI.APIKey != ""))

	return client
}
