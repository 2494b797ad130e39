package logger

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// ratioSampler lets keep out of every window events through, in a fixed
// cycle. A zero window disables sampling and every event passes.
type ratioSampler struct {
	keep   atomic.Uint64
	window atomic.Uint64
	seen   atomic.Uint64
}

func newRatioSampler(keep, window int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(keep, window)
	return s
}

// Set replaces the ratio and restarts the cycle.
func (s *ratioSampler) Set(keep, window int) {
	if keep <= 0 || window <= 0 {
		keep, window = 0, 0
	}
	if keep > window {
		keep = window
	}
	s.window.Store(0)
	s.keep.Store(uint64(keep))
	s.seen.Store(0)
	s.window.Store(uint64(window))
}

// Allow reports whether the next event is sampled in.
func (s *ratioSampler) Allow() bool {
	window := s.window.Load()
	if window == 0 {
		return true
	}
	pos := (s.seen.Add(1) - 1) % window
	return pos < s.keep.Load()
}

// parseRatioSpec accepts "keep/window" or a bare "N" meaning 1/N.
// Unparsable or non-positive specs yield 0, 0.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.ReplaceAll(strings.TrimSpace(spec), " ", "")
	if spec == "" {
		return 0, 0
	}
	var keep, window int
	if strings.Contains(spec, "/") {
		if _, err := fmt.Sscanf(spec, "%d/%d", &keep, &window); err != nil {
			return 0, 0
		}
		return keep, window
	}
	if _, err := fmt.Sscanf(spec, "%d", &window); err != nil || window <= 0 {
		return 0, 0
	}
	return 1, window
}
