package lipsync

// Voice defaults applied to unset options.
const (
	DefaultRate   = 1.0
	DefaultPitch  = 1.1
	DefaultVolume = 1.0
)

// VoiceOptions tunes the speech engine for one utterance. Zero fields take
// the defaults, so a zero Volume means full volume; engines that support it
// mute through their own controls.
type VoiceOptions struct {
	Rate   float64 `json:"rate,omitempty"`
	Pitch  float64 `json:"pitch,omitempty"`
	Volume float64 `json:"volume,omitempty"`
}

// DefaultVoiceOptions returns the fully populated defaults.
func DefaultVoiceOptions() VoiceOptions {
	return VoiceOptions{Rate: DefaultRate, Pitch: DefaultPitch, Volume: DefaultVolume}
}

// Normalize fills unset fields from defaults and clamps out-of-range values.
func (o VoiceOptions) Normalize(defaults VoiceOptions) VoiceOptions {
	if defaults.Rate <= 0 {
		defaults.Rate = DefaultRate
	}
	if defaults.Pitch <= 0 {
		defaults.Pitch = DefaultPitch
	}
	if defaults.Volume <= 0 || defaults.Volume > 1 {
		defaults.Volume = DefaultVolume
	}

	if o.Rate <= 0 {
		o.Rate = defaults.Rate
	}
	if o.Pitch <= 0 {
		o.Pitch = defaults.Pitch
	}
	switch {
	case o.Volume <= 0:
		o.Volume = defaults.Volume
	case o.Volume > 1:
		o.Volume = 1
	}

	return o
}
