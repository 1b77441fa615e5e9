package speech

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-interview-voice/internal/config"
)

// Output mixes streamers into an audio device. Lock and Unlock guard
// changes to streamers already playing.
type Output interface {
	SampleRate() beep.SampleRate
	Play(s beep.Streamer) error
	Lock()
	Unlock()
}

// SpeakerOutput plays through the default audio device. The device is
// opened on first use so a headless host can still run the daemon.
type SpeakerOutput struct {
	rate beep.SampleRate

	mu     sync.Mutex
	opened bool
}

// NewSpeakerOutput creates a SpeakerOutput at the configured rate.
func NewSpeakerOutput(cfg *config.Config) *SpeakerOutput {
	return &SpeakerOutput{rate: beep.SampleRate(cfg.Speech.OutputRate)}
}

func (s *SpeakerOutput) SampleRate() beep.SampleRate {
	return s.rate
}

func (s *SpeakerOutput) Play(st beep.Streamer) error {
	s.mu.Lock()
	if !s.opened {
		if err := speaker.Init(s.rate, s.rate.N(time.Second/10)); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("init speaker at %d Hz: %w", int(s.rate), err)
		}
		s.opened = true
	}
	s.mu.Unlock()

	speaker.Play(st)
	return nil
}

func (s *SpeakerOutput) Lock() {
	speaker.Lock()
}

func (s *SpeakerOutput) Unlock() {
	speaker.Unlock()
}

// Close releases the device if it was opened.
func (s *SpeakerOutput) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		speaker.Clear()
		speaker.Close()
		s.opened = false
	}
}

func newLifecycleOutput(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) Output {
	out := NewSpeakerOutput(cfg)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			logger.Debug("Closing speaker")
			out.Close()
			return nil
		},
	})
	return out
}
