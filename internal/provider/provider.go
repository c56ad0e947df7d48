// Package provider fetches market data: option chains, spot quotes, daily
// history bracketing past earnings, and the upcoming earnings calendar.
package provider

import (
	"context"
	"errors"
	"time"

	"ivcrush/pkg/model"
)

// ErrNotSupported marks an operation a provider cannot serve. The fallback
// chain treats it like any other failure and moves on.
var ErrNotSupported = errors.New("operation not supported")

// Provider defines the interface for market-data providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// GetExpirations lists option expirations for a ticker, soonest first
	GetExpirations(ctx context.Context, ticker string) ([]time.Time, error)

	// GetChain fetches the full option chain for one expiration. Greeks
	// may be nil per quote when the provider does not supply them.
	GetChain(ctx context.Context, ticker string, expiration time.Time) (*model.OptionChain, error)

	// GetSpot returns the latest underlying price
	GetSpot(ctx context.Context, ticker string) (float64, error)

	// GetHistoricalMoves computes the realized move for each given past
	// earnings event: close-to-close for AMC reports, prevclose-to-close
	// for BMO reports.
	GetHistoricalMoves(ctx context.Context, ticker string, past []model.EarningsEvent) ([]model.HistoricalMove, error)

	// GetEarningsCalendar lists earnings events in [from, to]
	GetEarningsCalendar(ctx context.Context, from, to time.Time) ([]model.EarningsEvent, error)

	// IsAvailable checks if the provider is configured (has credentials)
	IsAvailable() bool

	// RateLimit returns the rate limit per minute
	RateLimit() int
}

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// FallbackProvider tries multiple providers in order
type FallbackProvider struct {
	providers []Provider
}

// NewFallbackProvider creates a fallback chain from the available providers
func NewFallbackProvider(providers ...Provider) *FallbackProvider {
	available := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p.IsAvailable() {
			available = append(available, p)
		}
	}
	return &FallbackProvider{providers: available}
}

// Name returns the combined provider name
func (f *FallbackProvider) Name() string {
	return "fallback"
}

// GetExpirations tries each provider in order until one succeeds
func (f *FallbackProvider) GetExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	var lastErr error
	for _, p := range f.providers {
		exps, err := p.GetExpirations(ctx, ticker)
		if err == nil {
			return exps, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// GetChain tries each provider in order. A chain without Greeks from a
// later provider is still a usable chain; the constructor falls back to
// moneyness-based strike selection.
func (f *FallbackProvider) GetChain(ctx context.Context, ticker string, expiration time.Time) (*model.OptionChain, error) {
	var lastErr error
	for _, p := range f.providers {
		chain, err := p.GetChain(ctx, ticker, expiration)
		if err == nil {
			return chain, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// GetSpot tries each provider in order
func (f *FallbackProvider) GetSpot(ctx context.Context, ticker string) (float64, error) {
	var lastErr error
	for _, p := range f.providers {
		spot, err := p.GetSpot(ctx, ticker)
		if err == nil {
			return spot, nil
		}
		lastErr = err
	}
	return 0, lastErr
}

// GetHistoricalMoves tries each provider in order
func (f *FallbackProvider) GetHistoricalMoves(ctx context.Context, ticker string, past []model.EarningsEvent) ([]model.HistoricalMove, error) {
	var lastErr error
	for _, p := range f.providers {
		moves, err := p.GetHistoricalMoves(ctx, ticker, past)
		if err == nil {
			return moves, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// GetEarningsCalendar tries each provider in order, skipping ones that do
// not carry a calendar at all.
func (f *FallbackProvider) GetEarningsCalendar(ctx context.Context, from, to time.Time) ([]model.EarningsEvent, error) {
	var lastErr error
	for _, p := range f.providers {
		events, err := p.GetEarningsCalendar(ctx, from, to)
		if err == nil {
			return events, nil
		}
		if !errors.Is(err, ErrNotSupported) {
			lastErr = err
		} else if lastErr == nil {
			lastErr = err
		}
	}
	return nil, lastErr
}

// IsAvailable returns true if any provider is available
func (f *FallbackProvider) IsAvailable() bool {
	return len(f.providers) > 0
}

// RateLimit returns the highest rate limit among providers
func (f *FallbackProvider) RateLimit() int {
	maxRate := 0
	for _, p := range f.providers {
		if p.RateLimit() > maxRate {
			maxRate = p.RateLimit()
		}
	}
	return maxRate
}

// Providers returns the list of underlying providers
func (f *FallbackProvider) Providers() []Provider {
	return f.providers
}
