// pkg/memcache/rate_window.go
package mem

import (
	"sync"
	"time"
)

// RateWindowStore tracks request timestamps per key for sliding-window
// rate limiting. Purely in-process: good enough for the single checkout
// endpoint it guards.
type RateWindowStore interface {
	// Allow records one hit for key and reports whether the key is still
	// within limit hits per window.
	Allow(key string, limit int, window time.Duration) bool
}

type RateWindows struct {
	mu   sync.Mutex
	data map[string][]time.Time
}

func NewRateWindows() *RateWindows {
	return &RateWindows{
		data: make(map[string][]time.Time),
	}
}

func (s *RateWindows) Allow(key string, limit int, window time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	valid := s.data[key][:0]
	for _, t := range s.data[key] {
		if now.Sub(t) < window {
			valid = append(valid, t)
		}
	}

	if len(valid) >= limit {
		s.data[key] = valid
		return false
	}

	s.data[key] = append(valid, now)
	return true
}
