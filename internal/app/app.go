// Package app provides the main application structure and lifecycle management.
package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-interview-voice/internal/config"
	"github.com/Raikerian/go-interview-voice/internal/server"
)

// Application represents the main application with its lifecycle.
type Application struct {
	app *fx.App
}

// New creates a new Application with the provided modules and options.
func New(modules ...fx.Option) *Application {
	options := append(modules, fx.Invoke(registerLifecycleHooks))

	return &Application{
		app: fx.New(options...),
	}
}

// Err reports a construction error from the dependency graph.
func (a *Application) Err() error {
	return a.app.Err()
}

// Start starts every module in dependency order.
func (a *Application) Start(ctx context.Context) error {
	return a.app.Start(ctx)
}

// Stop gracefully stops the application.
func (a *Application) Stop(ctx context.Context) error {
	return a.app.Stop(ctx)
}

// registerLifecycleHooks reports when the interview room is ready. Module
// hooks run before this one on start and after it on stop.
func registerLifecycleHooks(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config, s *server.Server) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("Interview voice daemon started",
				zap.String("address", s.Addr()),
				zap.String("speech_engine", cfg.Speech.Engine),
				zap.String("transcription_provider", cfg.Transcription.Provider))

			return nil
		},
		OnStop: func(context.Context) error {
			logger.Info("Stopping interview voice daemon")

			return nil
		},
	})
}
