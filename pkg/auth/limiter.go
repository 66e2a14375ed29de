package auth

import (
	"sync"

	"golang.org/x/time/rate"
)

// Fallback rate limits applied when the security config leaves them
// unset. Sized for a practice frontend polling a handful of open
// conversations.
const (
	defaultRPS   = 5
	defaultBurst = 10
)

// limiterPool hands out one token bucket per caller, keyed by API key
// for authenticated traffic and by client IP otherwise. Entries are
// never evicted; the key population is the configured key set plus
// whatever unauthenticated callers knock before being rejected.
type limiterPool struct {
	mu    sync.Mutex
	byKey map[string]*rate.Limiter
	cfg   SecConfig
}

func newLimiterPool(cfg SecConfig) *limiterPool {
	return &limiterPool{byKey: map[string]*rate.Limiter{}, cfg: cfg}
}

// Allow reports whether the caller behind key may proceed right now.
func (p *limiterPool) Allow(key string) bool {
	return p.limiterFor(key).Allow()
}

func (p *limiterPool) limiterFor(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.byKey[key]; ok {
		return l
	}
	rps := p.cfg.RPS
	if rps <= 0 {
		rps = defaultRPS
	}
	burst := p.cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	l := rate.NewLimiter(rate.Limit(rps), burst)
	p.byKey[key] = l
	return l
}
