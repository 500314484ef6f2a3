package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/7666638403/rajgarande/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Per-IP token-bucket limiters. Entries for quiet IPs are purged
// periodically so the maps do not grow without bound.

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	mu      sync.Mutex
	entries map[string]*ipLimiter
	r       rate.Limit
	burst   int
}

func newLimiterSet(r rate.Limit, burst int) *limiterSet {
	return &limiterSet{entries: make(map[string]*ipLimiter), r: r, burst: burst}
}

func (s *limiterSet) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[ip]
	if !ok {
		e = &ipLimiter{limiter: rate.NewLimiter(s.r, s.burst)}
		s.entries[ip] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

func (s *limiterSet) purge(olderThan time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	purged := 0
	for ip, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, ip)
			purged++
		}
	}
	return purged
}

var (
	// Login: 20 attempts per minute per IP.
	loginLimiters = newLimiterSet(rate.Every(3*time.Second), 20)
	// General API: configured via RateLimiter().
	apiLimiters *limiterSet
	apiOnce     sync.Once
)

// LoginRateLimiter limits credential submissions per IP.
func LoginRateLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !loginLimiters.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Too many login attempts. Try again in a minute."))
			return
		}
		c.Next()
	}
}

// RateLimiter returns a general-purpose per-IP limiter allowing roughly
// perMinute requests per minute with the same burst headroom.
func RateLimiter(perMinute int) gin.HandlerFunc {
	apiOnce.Do(func() {
		apiLimiters = newLimiterSet(rate.Limit(float64(perMinute)/60.0), perMinute)
	})
	return func(c *gin.Context) {
		if !apiLimiters.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Too many requests. Try again in a moment."))
			return
		}
		c.Next()
	}
}

const purgeInterval = 5 * time.Minute

func init() {
	go purgeExpiredEntries()
}

func purgeExpiredEntries() {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for range ticker.C {
		purged := loginLimiters.purge(purgeInterval)
		if apiLimiters != nil {
			purged += apiLimiters.purge(purgeInterval)
		}
		if purged > 0 {
			log.Debug().Int("entries_purged", purged).Msg("rate limiter maps purged")
		}
	}
}
