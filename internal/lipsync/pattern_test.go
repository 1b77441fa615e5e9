package lipsync_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raikerian/go-interview-voice/internal/lipsync"
)

func step(v lipsync.Viseme) lipsync.Step {
	return lipsync.Step{Viseme: v, Duration: lipsync.DurationOf(v)}
}

func silence(d time.Duration) lipsync.Step {
	return lipsync.Step{Viseme: lipsync.VisemeSil, Duration: d}
}

func TestGeneratePattern(t *testing.T) {
	tests := map[string]struct {
		text string
		want []lipsync.Step
	}{
		"empty": {
			text: "",
			want: nil,
		},
		"single word": {
			text: "Hello",
			want: []lipsync.Step{
				step(lipsync.VisemeAA), step(lipsync.VisemeE),
				step(lipsync.VisemeDD), step(lipsync.VisemeDD),
				step(lipsync.VisemeO),
				silence(40 * time.Millisecond),
			},
		},
		"punctuation pauses": {
			text: "Hi, yo!",
			want: []lipsync.Step{
				step(lipsync.VisemeAA), step(lipsync.VisemeI),
				silence(40 * time.Millisecond),
				silence(300 * time.Millisecond),
				step(lipsync.VisemeO),
				silence(40 * time.Millisecond),
				silence(300 * time.Millisecond),
			},
		},
		"greeting": {
			text: "Hello, world!",
			want: []lipsync.Step{
				step(lipsync.VisemeAA), step(lipsync.VisemeE),
				step(lipsync.VisemeDD), step(lipsync.VisemeDD),
				step(lipsync.VisemeO),
				silence(40 * time.Millisecond),
				silence(300 * time.Millisecond),
				step(lipsync.VisemeU), step(lipsync.VisemeO),
				step(lipsync.VisemeRR), step(lipsync.VisemeDD),
				step(lipsync.VisemeDD),
				silence(40 * time.Millisecond),
				silence(300 * time.Millisecond),
			},
		},
		"digraph collapses": {
			text: "the",
			want: []lipsync.Step{
				step(lipsync.VisemeTH), step(lipsync.VisemeE),
				silence(40 * time.Millisecond),
			},
		},
		"ph falls back to p": {
			text: "phi",
			want: []lipsync.Step{
				step(lipsync.VisemePP), step(lipsync.VisemeI),
				silence(40 * time.Millisecond),
			},
		},
		"ng and sh": {
			text: "sing shy",
			want: []lipsync.Step{
				step(lipsync.VisemeSS), step(lipsync.VisemeI), step(lipsync.VisemeNN),
				silence(40 * time.Millisecond),
				step(lipsync.VisemeCH),
				silence(40 * time.Millisecond),
			},
		},
		"unmapped characters are silent": {
			text: "y2k",
			want: []lipsync.Step{
				step(lipsync.VisemeKK),
				silence(40 * time.Millisecond),
			},
		},
		"separators only": {
			text: "-- ** --",
			want: []lipsync.Step{},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, lipsync.GeneratePattern(tt.text))
		})
	}
}

func TestGeneratePatternCaseInsensitive(t *testing.T) {
	assert.Equal(t, lipsync.GeneratePattern("thank you"), lipsync.GeneratePattern("THANK You"))
}

func TestGeneratePatternOnlyKnownVisemes(t *testing.T) {
	steps := lipsync.GeneratePattern("Tell me about a project you're proud of; what went wrong?")
	require.NotEmpty(t, steps)

	for _, s := range steps {
		assert.True(t, s.Viseme.Valid(), "unexpected viseme %q", s.Viseme)
		assert.Positive(t, s.Duration)
	}
	assert.Equal(t, 300*time.Millisecond, steps[len(steps)-1].Duration)
}

func TestDurationOf(t *testing.T) {
	assert.Equal(t, 180*time.Millisecond, lipsync.DurationOf(lipsync.VisemeO))
	assert.Equal(t, 50*time.Millisecond, lipsync.DurationOf(lipsync.VisemeSil))
	assert.Equal(t, 100*time.Millisecond, lipsync.DurationOf(lipsync.Viseme("zz")))
}

func TestTotalDuration(t *testing.T) {
	steps := []lipsync.Step{step(lipsync.VisemeO), silence(40 * time.Millisecond)}
	assert.Equal(t, 220*time.Millisecond, lipsync.TotalDuration(steps))
}

func TestPatternCache(t *testing.T) {
	cache, err := lipsync.NewPatternCache(2)
	require.NoError(t, err)

	first := cache.Pattern("one")
	assert.Equal(t, lipsync.GeneratePattern("one"), first)
	cache.Pattern("one")
	cache.Pattern("two")
	cache.Pattern("three")
	assert.Equal(t, 2, cache.Len())

	cache.Purge()
	assert.Equal(t, 0, cache.Len())
}

func TestPatternCacheDisabled(t *testing.T) {
	cache, err := lipsync.NewPatternCache(0)
	require.NoError(t, err)

	assert.Equal(t, lipsync.GeneratePattern("hey"), cache.Pattern("hey"))
	assert.Equal(t, 0, cache.Len())
}

func TestVoiceOptionsNormalize(t *testing.T) {
	defaults := lipsync.DefaultVoiceOptions()

	tests := map[string]struct {
		in   lipsync.VoiceOptions
		want lipsync.VoiceOptions
	}{
		"zero takes defaults": {
			in:   lipsync.VoiceOptions{},
			want: lipsync.VoiceOptions{Rate: 1.0, Pitch: 1.1, Volume: 1.0},
		},
		"explicit values kept": {
			in:   lipsync.VoiceOptions{Rate: 1.5, Pitch: 0.9, Volume: 0.4},
			want: lipsync.VoiceOptions{Rate: 1.5, Pitch: 0.9, Volume: 0.4},
		},
		"volume clamped": {
			in:   lipsync.VoiceOptions{Rate: 2, Volume: 3},
			want: lipsync.VoiceOptions{Rate: 2, Pitch: 1.1, Volume: 1},
		},
		"negative rate replaced": {
			in:   lipsync.VoiceOptions{Rate: -1, Volume: 0.5},
			want: lipsync.VoiceOptions{Rate: 1.0, Pitch: 1.1, Volume: 0.5},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize(defaults))
		})
	}
}
