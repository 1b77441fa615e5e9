// Package server exposes the interview room over HTTP and streams avatar
// visemes over a WebSocket.
package server

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-interview-voice/internal/lipsync"
	"github.com/Raikerian/go-interview-voice/internal/room"
)

// Module provides the HTTP server and its viseme hub.
var Module = fx.Module("server",
	fx.Provide(
		NewHub,
		func(r *room.Room) Room { return r },
		NewServer,
	),
	fx.Invoke(
		func(s *lipsync.Scheduler, hub *Hub) { s.AddHooks(hub.Hooks()) },
		registerLifecycleHooks,
	),
)

func registerLifecycleHooks(lc fx.Lifecycle, s *Server, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := s.Start(ctx); err != nil {
				logger.Error("Failed to start HTTP server", zap.Error(err))

				return err
			}

			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}
