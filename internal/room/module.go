// Package room composes microphone capture, transcription and the lipsync
// scheduler into one interview room.
package room

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-interview-voice/internal/capture"
	"github.com/Raikerian/go-interview-voice/internal/lipsync"
	"github.com/Raikerian/go-interview-voice/internal/observe"
)

// Module provides the Room and ties it to the application lifecycle.
var Module = fx.Module("room",
	fx.Provide(
		func(m *capture.Microphone) Microphone { return m },
		func(s *lipsync.Scheduler) Speaker { return s },
		NewRoom,
	),
	fx.Invoke(
		instrumentScheduler,
		registerLifecycleHooks,
	),
)

// instrumentScheduler counts visemes and playback outcomes.
func instrumentScheduler(s *lipsync.Scheduler, m *observe.Metrics) {
	ctx := context.Background()
	s.AddHooks(lipsync.Hooks{
		OnViseme: func(v lipsync.Viseme) {
			m.Visemes.Add(ctx, 1, metric.WithAttributes(attribute.String("viseme", string(v))))
		},
		OnOutcome: func(o lipsync.Outcome) {
			m.Playbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", o.String())))
		},
	})
}

func registerLifecycleHooks(lc fx.Lifecycle, r *Room, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return r.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			if err := r.End(ctx); err != nil {
				logger.Error("Failed to end interview room", zap.Error(err))

				return err
			}

			return nil
		},
	})
}
