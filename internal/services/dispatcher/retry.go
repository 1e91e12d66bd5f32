package dispatcher

import (
	"math/rand"
	"time"
)

type Rand interface {
	Int63n(n int64) int64
}

// RetryConfig is the delivery retry schedule for one message.
type RetryConfig struct {
	Attempts int // default: 1, no retries

	Backoff1 time.Duration // default: 1s
	Backoff2 time.Duration // default: 5s
	Backoff3 time.Duration // default: 15s

	// Jitter is added on top of each delay, up to this much.
	Jitter time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts: 1,
		Backoff1: 1 * time.Second,
		Backoff2: 5 * time.Second,
		Backoff3: 15 * time.Second,
		Jitter:   500 * time.Millisecond,
	}
}

type retryPlan struct {
	cfg RetryConfig
	r   Rand
}

func newRetryPlan(cfg RetryConfig, r Rand) *retryPlan {
	def := DefaultRetryConfig()
	if cfg.Attempts <= 0 {
		cfg.Attempts = def.Attempts
	}
	if cfg.Backoff1 <= 0 {
		cfg.Backoff1 = def.Backoff1
	}
	if cfg.Backoff2 <= 0 {
		cfg.Backoff2 = def.Backoff2
	}
	if cfg.Backoff3 <= 0 {
		cfg.Backoff3 = def.Backoff3
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &retryPlan{cfg: cfg, r: r}
}

// delay before the attempt that follows failedAttempts failures.
func (p *retryPlan) delay(failedAttempts int) time.Duration {
	var d time.Duration
	switch {
	case failedAttempts <= 1:
		d = p.cfg.Backoff1
	case failedAttempts == 2:
		d = p.cfg.Backoff2
	default:
		d = p.cfg.Backoff3
	}
	if p.cfg.Jitter > 0 {
		d += time.Duration(p.r.Int63n(int64(p.cfg.Jitter)))
	}
	return d
}
