package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// sampler lets through keep of every window events.
type sampler struct {
	ratio atomic.Uint64 // keep<<32 | window
	n     atomic.Uint64
}

func newSampler(keep, window int) *sampler {
	s := &sampler{}
	s.Set(keep, window)
	return s
}

// Set changes the ratio. A non-positive value disables sampling.
func (s *sampler) Set(keep, window int) {
	if keep <= 0 || window <= 0 {
		s.ratio.Store(0)
		return
	}
	if keep > window {
		keep = window
	}
	s.ratio.Store(uint64(keep)<<32 | uint64(window))
	s.n.Store(0)
}

// Allow reports whether the next event passes.
func (s *sampler) Allow() bool {
	r := s.ratio.Load()
	if r == 0 {
		return true
	}
	keep, window := r>>32, r&0xffffffff
	return (s.n.Add(1)-1)%window < keep
}

// parseRatio reads "keep/window" or "window" (meaning 1/window). Empty or
// invalid input keeps the 1/50 default; "0" disables sampling.
func parseRatio(raw string) (int, int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 1, 50
	}
	if a, b, ok := strings.Cut(raw, "/"); ok {
		keep, err1 := strconv.Atoi(strings.TrimSpace(a))
		window, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 != nil || err2 != nil || keep < 0 || window < 0 {
			return 1, 50
		}
		return keep, window
	}
	window, err := strconv.Atoi(raw)
	if err != nil {
		return 1, 50
	}
	if window <= 0 {
		return 0, 0
	}
	return 1, window
}
