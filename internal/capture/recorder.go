package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"go.uber.org/zap"

	"github.com/Raikerian/go-interview-voice/internal/config"
	"github.com/Raikerian/go-interview-voice/pkg/audio"
)

// ErrEmptyRecording is returned by Save when no audio was recorded.
var ErrEmptyRecording = errors.New("recording is empty")

// Recorder keeps the captured frames of one listening session and writes
// them to a mono 16-bit WAV file. A nil Recorder records nothing.
type Recorder struct {
	logger     *zap.Logger
	dir        string
	sampleRate int

	mu      sync.Mutex
	samples []int16
}

// NewRecorder returns a Recorder writing into capture.record_dir, or nil
// when recording is disabled.
func NewRecorder(logger *zap.Logger, cfg *config.Config) *Recorder {
	if cfg.Capture.RecordDir == "" {
		return nil
	}
	return &Recorder{
		logger:     logger,
		dir:        cfg.Capture.RecordDir,
		sampleRate: cfg.Capture.SampleRate,
	}
}

// Record appends a little-endian PCM frame.
func (r *Recorder) Record(frame []byte) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples = append(r.samples, audio.LEToPCM16(frame)...)
}

// Save writes everything recorded since the last Save to
// <dir>/<prefix>_<timestamp>.wav and returns the file path.
func (r *Recorder) Save(prefix string) (string, error) {
	if r == nil {
		return "", nil
	}

	r.mu.Lock()
	samples := r.samples
	r.samples = nil
	r.mu.Unlock()

	if len(samples) == 0 {
		return "", ErrEmptyRecording
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create recording dir: %w", err)
	}
	path := filepath.Join(r.dir,
		fmt.Sprintf("%s_%s.wav", prefix, time.Now().Format("20060102_150405.000")))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create recording: %w", err)
	}
	defer f.Close()

	format := beep.Format{
		SampleRate:  beep.SampleRate(r.sampleRate),
		NumChannels: 1,
		Precision:   audio.BytesPerSample,
	}
	if err := wav.Encode(f, &pcmStreamer{samples: samples}, format); err != nil {
		return "", fmt.Errorf("encode recording: %w", err)
	}

	r.logger.Info("Saved candidate recording",
		zap.String("file", path),
		zap.Int("samples", len(samples)),
		zap.Int("rate_hz", r.sampleRate),
		zap.Duration("duration", audio.Duration(len(samples), r.sampleRate)))

	return path, nil
}

// pcmStreamer plays int16 samples as a beep stream.
type pcmStreamer struct {
	samples []int16
	pos     int
}

func (p *pcmStreamer) Stream(buf [][2]float64) (int, bool) {
	if p.pos >= len(p.samples) {
		return 0, false
	}
	n := 0
	for n < len(buf) && p.pos < len(p.samples) {
		v := float64(p.samples[p.pos]) / 32768
		buf[n] = [2]float64{v, v}
		p.pos++
		n++
	}
	return n, true
}

func (p *pcmStreamer) Err() error {
	return nil
}
