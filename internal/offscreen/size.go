package offscreen

// decayFrames is the number of frames a smaller size must persist before
// the tracked maximum shrinks to it.
const decayFrames = 64

// sizeTracker estimates the largest value seen over a recent window of
// frames with two slots: the current maximum and a challenger that
// collects the largest value since the maximum was last set. A challenger
// that reaches the maximum replaces it immediately; otherwise, after
// decayFrames frames without a new maximum, the maximum decays to the
// challenger.
type sizeTracker struct {
	max        int
	challenger int
	frames     int
}

// update records one frame's value and returns the tracked maximum, which
// is never smaller than v.
func (s *sizeTracker) update(v int) int {
	s.frames++
	if v > s.challenger {
		s.challenger = v
	}
	if s.challenger >= s.max || s.frames >= decayFrames {
		s.max = s.challenger
		s.challenger = 0
		s.frames = 0
	}
	return s.max
}

func nextPowerOfTwo(v int) int {
	p := 1
	for p < v {
		p <<= 1
	}
	return p
}
