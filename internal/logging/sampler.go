package logging

import "math"

// ProgressSampler thins progress logs to one line per step of completion.
// The first and the final count are always logged.
type ProgressSampler struct {
	step float64
	next float64
	done bool
}

// NewProgressSampler returns a sampler logging every step percent (default 5).
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 || step > 100 {
		step = 5
	}
	return &ProgressSampler{step: step}
}

// Sample reports whether processed of total should be logged. Unknown totals
// are never sampled. A nil sampler logs everything.
func (s *ProgressSampler) Sample(processed, total int) bool {
	if s == nil {
		return true
	}
	if total <= 0 || s.done {
		return false
	}
	if processed >= total {
		s.done = true
		return true
	}
	pct := float64(processed) * 100 / float64(total)
	if pct < s.next {
		return false
	}
	s.next = (math.Floor(pct/s.step) + 1) * s.step
	return true
}
