package handler

import (
	"hash/fnv"
	"time"

	"github.com/kingdomsgo/server/internal/config"
	"golang.org/x/time/rate"
)

// RateLimiter throttles authentication attempts per source IP. Keys are
// FNV hashes of the address, so raw IPs are not retained. Main goroutine
// only — handlers run on the game loop.
type RateLimiter struct {
	enabled  bool
	limit    rate.Limit
	burst    int
	limiters map[uint64]*rate.Limiter
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	window := time.Duration(cfg.AuthWindowSecond) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	burst := cfg.AuthAttempts
	if burst <= 0 {
		burst = 5
	}
	return &RateLimiter{
		enabled:  cfg.Enabled,
		limit:    rate.Limit(float64(burst) / window.Seconds()),
		burst:    burst,
		limiters: make(map[uint64]*rate.Limiter),
	}
}

// Allow consumes one attempt for the given source IP.
func (l *RateLimiter) Allow(ip string) bool {
	if !l.enabled {
		return true
	}
	key := hashIP(ip)
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim.Allow()
}

func hashIP(ip string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(ip))
	return h.Sum64()
}
