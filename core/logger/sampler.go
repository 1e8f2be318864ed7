package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

type ratio struct{ keep, window uint64 }

// sampler lets keep out of every window events through. A zero ratio lets
// everything through.
type sampler struct {
	r atomic.Pointer[ratio]
	n atomic.Uint64
}

func newSampler(keep, window int) *sampler {
	s := &sampler{}
	s.Set(keep, window)
	return s
}

func (s *sampler) Set(keep, window int) {
	r := &ratio{}
	if keep > 0 && window > 0 {
		r.keep, r.window = uint64(min(keep, window)), uint64(window)
	}
	s.r.Store(r)
	s.n.Store(0)
}

func (s *sampler) Allow() bool {
	r := s.r.Load()
	if r == nil || r.window == 0 {
		return true
	}
	return (s.n.Add(1)-1)%r.window < r.keep
}

// parseRatio reads "k/n" or "n" (meaning 1/n). Anything else, and n <= 0,
// yields 0/0.
func parseRatio(spec string) (keep, window int) {
	spec = strings.TrimSpace(spec)
	if a, b, ok := strings.Cut(spec, "/"); ok {
		k, err1 := strconv.Atoi(strings.TrimSpace(a))
		w, err2 := strconv.Atoi(strings.TrimSpace(b))
		if err1 == nil && err2 == nil {
			return k, w
		}
		return 0, 0
	}
	w, err := strconv.Atoi(spec)
	if err != nil || w <= 0 {
		return 0, 0
	}
	return 1, w
}
