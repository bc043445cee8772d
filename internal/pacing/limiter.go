package pacing

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter caps request rate per target host using token buckets. It
// backs Policy.Throttle for the direct HTTP strategy, where requests are
// cheap enough to exceed human-plausible cadence.
type HostLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	perHost  rate.Limit
	burst    int
}

// NewHostLimiter creates a limiter admitting requestsPerSecond per host with
// the given burst capacity.
func NewHostLimiter(requestsPerSecond float64, burst int) *HostLimiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1.0
	}
	if burst <= 0 {
		burst = 1
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Wait blocks until a request for host may proceed or ctx is cancelled.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if host == "" {
		return nil
	}
	return h.limiter(host).Wait(ctx)
}

// Allow reports whether a request for host may proceed immediately.
func (h *HostLimiter) Allow(host string) bool {
	if host == "" {
		return true
	}
	return h.limiter(host).Allow()
}

func (h *HostLimiter) limiter(host string) *rate.Limiter {
	h.mu.RLock()
	lim, ok := h.limiters[host]
	h.mu.RUnlock()
	if ok {
		return lim
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if lim, ok := h.limiters[host]; ok {
		return lim
	}
	lim = rate.NewLimiter(h.perHost, h.burst)
	h.limiters[host] = lim
	return lim
}
