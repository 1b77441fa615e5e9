// Package capture turns microphone input into fixed-duration PCM frames for
// streaming transcription.
package capture

import "go.uber.org/fx"

// Module provides the default-device microphone and the optional session
// recorder.
var Module = fx.Module("capture",
	fx.Provide(
		NewPortAudioSource,
		NewMicrophone,
		NewRecorder,
	),
)
