package rate

import (
	"time"

	"golang.org/x/time/rate"
)

// ThrottleConfig configures the shared token bucket.
type ThrottleConfig struct {
	RatePerSecond float64
	Burst         int
	Now           func() time.Time
}

// Throttle is a process-wide token bucket. A nil *Throttle admits everything.
type Throttle struct {
	limiter *rate.Limiter
	now     func() time.Time
}

// NewThrottle returns nil when RatePerSecond is not positive, which disables
// throttling.
func NewThrottle(cfg ThrottleConfig) *Throttle {
	if cfg.RatePerSecond <= 0 {
		return nil
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Throttle{
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		now:     cfg.Now,
	}
}

// Check consumes one token or returns ErrThrottled.
func (t *Throttle) Check() error {
	if t == nil {
		return nil
	}
	if !t.limiter.AllowN(t.now(), 1) {
		return ErrThrottled
	}
	return nil
}
