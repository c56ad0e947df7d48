// Package ratelimit paces outbound provider calls. Each provider gets a
// token-bucket limiter plus an optional daily request budget for metered
// APIs.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter wraps rate.Limiter with 429-driven backoff
type Limiter struct {
	limiter *rate.Limiter
	name    string

	mu      sync.Mutex
	backoff time.Duration
	maxWait time.Duration
}

const initialBackoff = 100 * time.Millisecond

// NewLimiter creates a limiter allowing perMinute requests with a small
// burst allowance.
func NewLimiter(name string, perMinute int) *Limiter {
	rps := float64(perMinute) / 60.0
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	if burst > 5 {
		burst = 5
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    name,
		backoff: initialBackoff,
		maxWait: 2 * time.Minute,
	}
}

// Wait blocks until a token is available or the context is cancelled. When
// a prior 429 set a backoff, the backoff elapses first.
func (l *Limiter) Wait(ctx context.Context) error {
	if wait := l.pendingBackoff(); wait > initialBackoff {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may go out right now
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// SignalRateLimited records a 429 response, doubling the backoff up to the
// two-minute ceiling.
func (l *Limiter) SignalRateLimited() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoff *= 2
	if l.backoff > l.maxWait {
		l.backoff = l.maxWait
	}
}

// ResetBackoff clears the backoff after a successful request
func (l *Limiter) ResetBackoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoff = initialBackoff
}

func (l *Limiter) pendingBackoff() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backoff
}

// Name returns the provider name this limiter paces
func (l *Limiter) Name() string {
	return l.name
}

// Registry holds the limiter and budget for each provider
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	budgets  map[string]*Budget
}

func NewRegistry() *Registry {
	return &Registry{
		limiters: make(map[string]*Limiter),
		budgets:  make(map[string]*Budget),
	}
}

// Register adds a provider with a per-minute rate. perDay <= 0 means no
// daily budget.
func (r *Registry) Register(name string, perMinute, perDay int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limiters[name] = NewLimiter(name, perMinute)
	if perDay > 0 {
		r.budgets[name] = NewBudget(name, perDay)
	}
}

// Limiter returns the limiter for a provider, nil when unregistered
func (r *Registry) Limiter(name string) *Limiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiters[name]
}

// Acquire spends one request slot on the named provider: budget first, then
// the pacing wait. Unregistered providers pass through unlimited.
func (r *Registry) Acquire(ctx context.Context, name string) error {
	r.mu.RLock()
	limiter := r.limiters[name]
	budget := r.budgets[name]
	r.mu.RUnlock()

	if budget != nil {
		if err := budget.Spend(); err != nil {
			return err
		}
	}
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}
