package audio

// Resample converts mono PCM from one sample rate to another using linear
// interpolation. Equal rates return a copy.
func Resample(src []int16, from, to int) []int16 {
	if len(src) == 0 || from <= 0 || to <= 0 {
		return nil
	}
	if from == to {
		out := make([]int16, len(src))
		copy(out, src)
		return out
	}

	n := int(int64(len(src)) * int64(to) / int64(from))
	out := make([]int16, n)
	step := float64(from) / float64(to)
	last := len(src) - 1

	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= last {
			out[i] = src[last]
			continue
		}
		frac := pos - float64(idx)
		a, b := float64(src[idx]), float64(src[idx+1])
		out[i] = int16(a + (b-a)*frac)
	}

	return out
}
