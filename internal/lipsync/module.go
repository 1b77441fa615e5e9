// Package lipsync turns interviewer lines into viseme schedules and keeps
// them in step with a speech engine.
package lipsync

import (
	"go.uber.org/fx"
)

// Module provides the lipsync scheduler. It requires an Engine.
var Module = fx.Module("lipsync",
	fx.Provide(NewScheduler),
)
