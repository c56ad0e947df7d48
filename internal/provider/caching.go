package provider

import (
	"context"
	"sync"
	"time"

	"ivcrush/pkg/model"
)

// CachingProvider wraps a Provider with an in-memory cache for chains,
// spots and historical moves. Designed for scan runs where the engine
// touches the same ticker more than once; one scan, one cache.
type CachingProvider struct {
	inner Provider

	mu     sync.Mutex
	chains map[string]*model.OptionChain
	spots  map[string]float64
	moves  map[string][]model.HistoricalMove
}

// NewCachingProvider creates a caching wrapper around inner
func NewCachingProvider(inner Provider) *CachingProvider {
	return &CachingProvider{
		inner:  inner,
		chains: make(map[string]*model.OptionChain),
		spots:  make(map[string]float64),
		moves:  make(map[string][]model.HistoricalMove),
	}
}

func (p *CachingProvider) Name() string { return p.inner.Name() }
func (p *CachingProvider) IsAvailable() bool { return p.inner.IsAvailable() }
func (p *CachingProvider) RateLimit() int { return p.inner.RateLimit() }

// GetExpirations passes through; the scanner calls it once per ticker
func (p *CachingProvider) GetExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	return p.inner.GetExpirations(ctx, ticker)
}

// GetEarningsCalendar passes through; one call covers the whole scan
func (p *CachingProvider) GetEarningsCalendar(ctx context.Context, from, to time.Time) ([]model.EarningsEvent, error) {
	return p.inner.GetEarningsCalendar(ctx, from, to)
}

// GetChain returns the cached chain when the same ticker/expiration was
// already fetched during this run.
func (p *CachingProvider) GetChain(ctx context.Context, ticker string, expiration time.Time) (*model.OptionChain, error) {
	key := ticker + "|" + expiration.Format("2006-01-02")

	p.mu.Lock()
	if chain, ok := p.chains[key]; ok {
		p.mu.Unlock()
		return chain, nil
	}
	p.mu.Unlock()

	chain, err := p.inner.GetChain(ctx, ticker, expiration)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.chains[key] = chain
	p.mu.Unlock()
	return chain, nil
}

// GetSpot returns the cached price from the first fetch of this run
func (p *CachingProvider) GetSpot(ctx context.Context, ticker string) (float64, error) {
	p.mu.Lock()
	if spot, ok := p.spots[ticker]; ok {
		p.mu.Unlock()
		return spot, nil
	}
	p.mu.Unlock()

	spot, err := p.inner.GetSpot(ctx, ticker)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	p.spots[ticker] = spot
	p.mu.Unlock()
	return spot, nil
}

// GetHistoricalMoves caches per ticker; past events do not change during
// a run.
func (p *CachingProvider) GetHistoricalMoves(ctx context.Context, ticker string, past []model.EarningsEvent) ([]model.HistoricalMove, error) {
	p.mu.Lock()
	if moves, ok := p.moves[ticker]; ok {
		p.mu.Unlock()
		return moves, nil
	}
	p.mu.Unlock()

	moves, err := p.inner.GetHistoricalMoves(ctx, ticker, past)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.moves[ticker] = moves
	p.mu.Unlock()
	return moves, nil
}
