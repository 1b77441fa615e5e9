package speech

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/Raikerian/go-interview-voice/internal/lipsync"
	"github.com/Raikerian/go-interview-voice/internal/observe"
)

const resampleQuality = 3

// Decoder turns encoded audio into a stream. It takes ownership of rc.
type Decoder func(rc io.ReadCloser) (beep.StreamCloser, beep.Format, error)

// DecodeMP3 decodes MP3 audio.
func DecodeMP3(rc io.ReadCloser) (beep.StreamCloser, beep.Format, error) {
	return mp3.Decode(rc)
}

// Orator speaks utterances through an Output. It implements
// lipsync.Engine: Speak returns at once and playback events arrive through
// the callbacks.
type Orator struct {
	logger  *zap.Logger
	synth   Synthesizer
	output  Output
	decode  Decoder
	metrics *observe.Metrics

	mu      sync.Mutex
	current *utterance
}

type utterance struct {
	cb     lipsync.Callbacks
	cancel context.CancelFunc

	// Set once audio is ready, under Orator.mu.
	ctrl   *beep.Ctrl
	stream beep.StreamCloser

	releaseOnce sync.Once
	reportOnce  sync.Once
}

func (u *utterance) release(stream beep.StreamCloser) {
	u.releaseOnce.Do(func() {
		u.cancel()
		if stream != nil {
			_ = stream.Close()
		}
	})
}

// report delivers the single terminal event. nil means the audio ended.
func (u *utterance) report(err error) {
	u.reportOnce.Do(func() {
		if err == nil {
			if u.cb.OnEnd != nil {
				u.cb.OnEnd()
			}
			return
		}
		if u.cb.OnError != nil {
			u.cb.OnError(err)
		}
	})
}

// NewOrator creates an Orator decoding MP3 from synth.
func NewOrator(logger *zap.Logger, synth Synthesizer, output Output, metrics *observe.Metrics) *Orator {
	return newOrator(logger, synth, output, metrics, DecodeMP3)
}

func newOrator(logger *zap.Logger, synth Synthesizer, output Output, metrics *observe.Metrics, decode Decoder) *Orator {
	return &Orator{
		logger:  logger,
		synth:   synth,
		output:  output,
		decode:  decode,
		metrics: metrics,
	}
}

// Speak starts synthesising u and interrupts anything already playing.
func (o *Orator) Speak(u lipsync.Utterance, cb lipsync.Callbacks) error {
	ctx, cancel := context.WithCancel(context.Background())
	utt := &utterance{cb: cb, cancel: cancel}

	o.mu.Lock()
	prev := o.current
	o.current = utt
	o.mu.Unlock()

	if prev != nil {
		o.halt(prev)
	}

	go o.run(ctx, utt, u)

	return nil
}

// Cancel silences the current utterance, which reports
// lipsync.ErrInterrupted.
func (o *Orator) Cancel() {
	o.mu.Lock()
	utt := o.current
	o.current = nil
	o.mu.Unlock()

	if utt != nil {
		o.halt(utt)
	}
}

func (o *Orator) run(ctx context.Context, utt *utterance, u lipsync.Utterance) {
	start := time.Now()
	audio, err := o.synth.Synthesize(ctx, u.Text, u.Options)
	if err != nil {
		o.fail(utt, err)
		return
	}
	if o.metrics != nil {
		o.metrics.TTSDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("engine", o.synth.Name())))
	}

	stream, format, err := o.decode(audio)
	if err != nil {
		o.fail(utt, fmt.Errorf("decode speech: %w", err))
		return
	}

	ctrl := &beep.Ctrl{Streamer: beep.Seq(o.shape(stream, format.SampleRate, u.Options), beep.Callback(func() {
		// Runs on the speaker goroutine with the output locked.
		go o.complete(utt)
	}))}

	o.mu.Lock()
	if o.current != utt {
		o.mu.Unlock()
		_ = stream.Close()
		return
	}
	utt.ctrl = ctrl
	utt.stream = stream
	o.mu.Unlock()

	o.logger.Debug("Playing synthesized speech",
		zap.String("engine", o.synth.Name()),
		zap.Int("source_rate", int(format.SampleRate)),
		zap.Float64("rate", u.Options.Rate),
		zap.Duration("synthesis", time.Since(start)))

	// Start is reported before handing over the stream so that a very
	// short clip cannot end first.
	if utt.cb.OnStart != nil {
		utt.cb.OnStart()
	}

	if err := o.output.Play(ctrl); err != nil {
		o.fail(utt, fmt.Errorf("play speech: %w", err))
	}
}

// shape resamples stream to the output rate scaled by the voice rate and
// applies the volume.
func (o *Orator) shape(stream beep.Streamer, from beep.SampleRate, opts lipsync.VoiceOptions) beep.Streamer {
	rate := opts.Rate
	if rate <= 0 {
		rate = lipsync.DefaultRate
	}

	out := stream
	if ratio := float64(from) / float64(o.output.SampleRate()) * rate; ratio != 1 {
		out = beep.ResampleRatio(resampleQuality, ratio, out)
	}

	if opts.Volume > 0 && opts.Volume < 1 {
		out = &effects.Volume{
			Streamer: out,
			Base:     2,
			Volume:   math.Log2(opts.Volume),
		}
	}

	return out
}

func (o *Orator) detach(utt *utterance) beep.StreamCloser {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == utt {
		o.current = nil
	}
	return utt.stream
}

func (o *Orator) complete(utt *utterance) {
	utt.release(o.detach(utt))
	utt.report(nil)
}

func (o *Orator) fail(utt *utterance, err error) {
	o.logger.Debug("Speech failed", zap.Error(err))
	utt.release(o.detach(utt))
	utt.report(err)
}

func (o *Orator) halt(utt *utterance) {
	o.mu.Lock()
	ctrl, stream := utt.ctrl, utt.stream
	o.mu.Unlock()

	if ctrl != nil {
		o.output.Lock()
		ctrl.Streamer = nil
		o.output.Unlock()
	}

	utt.release(stream)
	utt.report(lipsync.ErrInterrupted)
}
