package audio

import "time"

// Format constants shared by the capture and transcription layers.
const (
	// Microphone capture, as expected by streaming transcription.
	CaptureSampleRate    = 16_000 // Hz
	CaptureChannels      = 1
	CaptureFrameDuration = 100 * time.Millisecond

	// OpenAI Realtime input.
	RealtimeSampleRate = 24_000 // Hz

	BytesPerSample = 2 // 16-bit PCM
)

// FrameSamples returns the number of samples in one frame of duration d at
// sampleRate, floor(sampleRate * d).
func FrameSamples(sampleRate int, d time.Duration) int {
	return int(int64(sampleRate) * int64(d) / int64(time.Second))
}

// FrameBytes returns the byte size of one 16-bit frame.
func FrameBytes(sampleRate int, d time.Duration) int {
	return FrameSamples(sampleRate, d) * BytesPerSample
}

// Duration returns how long n samples last at sampleRate.
func Duration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(n) * int64(time.Second) / int64(sampleRate))
}
