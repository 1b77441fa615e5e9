package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/Raikerian/go-interview-voice/pkg/audio"
)

// FrameFunc receives one frame of little-endian 16-bit PCM. The slice is
// owned by the callee.
type FrameFunc func(frame []byte)

// Chunker accumulates captured samples and slices them into fixed-duration
// frames. Frames are emitted in capture order; whatever does not fill a
// whole frame is carried to the next Write.
type Chunker struct {
	mu           sync.Mutex
	sampleRate   int
	frameSamples int
	pending      []int16
	onFrame      FrameFunc
	emitted      uint64
}

// NewChunker creates a Chunker emitting frames of frameDuration at
// sampleRate to onFrame.
func NewChunker(sampleRate int, frameDuration time.Duration, onFrame FrameFunc) (*Chunker, error) {
	if onFrame == nil {
		return nil, fmt.Errorf("chunker: frame callback is required")
	}
	n := audio.FrameSamples(sampleRate, frameDuration)
	if n <= 0 {
		return nil, fmt.Errorf("chunker: frame of %s at %d Hz holds no samples", frameDuration, sampleRate)
	}

	return &Chunker{
		sampleRate:   sampleRate,
		frameSamples: n,
		pending:      make([]int16, 0, n*2),
		onFrame:      onFrame,
	}, nil
}

// Write converts float samples to PCM and emits every complete frame.
// It returns the number of frames emitted.
func (c *Chunker) Write(samples []float32) int {
	if len(samples) == 0 {
		return 0
	}
	return c.WritePCM(audio.FloatToPCM16(samples))
}

// WritePCM is Write for samples that are already 16-bit.
func (c *Chunker) WritePCM(samples []int16) int {
	if len(samples) == 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = append(c.pending, samples...)

	frames := 0
	for len(c.pending) >= c.frameSamples {
		frame := audio.PCM16ToLE(c.pending[:c.frameSamples])
		c.pending = c.pending[c.frameSamples:]
		c.emitted++
		frames++
		c.onFrame(frame)
	}

	return frames
}

// Buffered returns the number of carried samples waiting for the next frame.
func (c *Chunker) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.pending)
}

// FrameSamples returns the number of samples per emitted frame.
func (c *Chunker) FrameSamples() int {
	return c.frameSamples
}

// Emitted returns the number of frames emitted since creation.
func (c *Chunker) Emitted() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.emitted
}

// Reset drops carried samples.
func (c *Chunker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = c.pending[:0]
}
