package audio

import (
	"encoding/binary"
	"math"
)

// FloatToPCM16 converts float samples in [-1, 1] to 16-bit PCM. Values
// outside the range are clamped; scaling truncates toward zero.
func FloatToPCM16(in []float32) []int16 {
	out := make([]int16, len(in))
	for i, v := range in {
		out[i] = floatToInt16(v)
	}
	return out
}

func floatToInt16(v float32) int16 {
	switch {
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	case math.IsNaN(float64(v)):
		v = 0
	}
	return int16(v * 0x7FFF)
}

// PCM16ToLE converts int16 samples to raw little-endian bytes.
func PCM16ToLE(samples []int16) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// LEToPCM16 converts raw little-endian bytes back to int16 samples. A
// trailing odd byte is ignored.
func LEToPCM16(b []byte) []int16 {
	out := make([]int16, len(b)/BytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}
