package middleware

import (
	"net/http"
	"sync"

	"vertex-relay/internal/config"
	"vertex-relay/internal/handlers/common"
	"vertex-relay/internal/monitoring"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// overloadGuard is one process-wide token bucket. It protects the process
// and the upstream quota; it is not a per-client quota.
type overloadGuard struct {
	mu    sync.Mutex
	lim   *rate.Limiter
	rps   float64
	burst int
}

func (g *overloadGuard) allow(rps float64, burst int) bool {
	g.mu.Lock()
	if g.lim == nil {
		g.lim = rate.NewLimiter(rate.Limit(rps), burst)
	} else if rps != g.rps || burst != g.burst {
		g.lim.SetLimit(rate.Limit(rps))
		g.lim.SetBurst(burst)
	}
	g.rps, g.burst = rps, burst
	lim := g.lim
	g.mu.Unlock()
	return lim.Allow()
}

// OverloadGuard rejects requests with 503 once the configured global rate is
// exceeded. Limits are read from each config snapshot; max_rps <= 0 disables it.
func OverloadGuard(src config.Source) gin.HandlerFunc {
	guard := &overloadGuard{}
	return func(c *gin.Context) {
		cfg := src.Current()
		if cfg == nil || cfg.Server.MaxRPS <= 0 {
			c.Next()
			return
		}
		burst := cfg.Server.Burst
		if burst <= 0 {
			burst = config.DefaultBurst
		}
		if !guard.allow(cfg.Server.MaxRPS, burst) {
			monitoring.RateLimitedTotal.Inc()
			c.Header("Retry-After", "1")
			common.AbortWithError(c, http.StatusServiceUnavailable, "Server overloaded")
			return
		}
		c.Next()
	}
}
