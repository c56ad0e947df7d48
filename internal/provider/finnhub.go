package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ivcrush/internal/ratelimit"
	"ivcrush/pkg/model"
)

const finnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubProvider serves the earnings calendar, which neither Tradier nor
// Yahoo carries, plus spot quotes and daily candles as a last-resort
// fallback. It has no options endpoints on the free tier.
type FinnhubProvider struct {
	apiKey    string
	client    *http.Client
	limiter   *ratelimit.Limiter
	rateLimit int
}

// NewFinnhubProvider creates a new Finnhub provider
func NewFinnhubProvider(apiKey string, rateLimitPerMin int) *FinnhubProvider {
	return &FinnhubProvider{
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter("finnhub", rateLimitPerMin),
		rateLimit: rateLimitPerMin,
	}
}

// Name returns the provider name
func (p *FinnhubProvider) Name() string {
	return "finnhub"
}

// IsAvailable checks if the provider has an API key
func (p *FinnhubProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit per minute
func (p *FinnhubProvider) RateLimit() int {
	return p.rateLimit
}

func (p *FinnhubProvider) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	query.Set("token", p.apiKey)
	req, err := http.NewRequestWithContext(ctx, "GET", finnhubBaseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return &ProviderError{Provider: p.Name(), Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		p.limiter.SignalRateLimited()
		return &ProviderError{Provider: p.Name(), Err: fmt.Errorf("rate limited"), Retryable: true}
	}
	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Provider: p.Name(), Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: false}
	}

	p.limiter.ResetBackoff()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

type finnhubEarnings struct {
	EarningsCalendar []struct {
		Date   string `json:"date"`
		Symbol string `json:"symbol"`
		Hour   string `json:"hour"` // "bmo", "amc", "dmh" or empty
	} `json:"earningsCalendar"`
}

// GetEarningsCalendar lists earnings events in [from, to]
func (p *FinnhubProvider) GetEarningsCalendar(ctx context.Context, from, to time.Time) ([]model.EarningsEvent, error) {
	q := url.Values{}
	q.Set("from", from.Format("2006-01-02"))
	q.Set("to", to.Format("2006-01-02"))

	var data finnhubEarnings
	if err := p.get(ctx, "/calendar/earnings", q, &data); err != nil {
		return nil, err
	}

	events := make([]model.EarningsEvent, 0, len(data.EarningsCalendar))
	for _, e := range data.EarningsCalendar {
		date, err := time.Parse("2006-01-02", e.Date)
		if err != nil || e.Symbol == "" {
			continue
		}
		session := model.AfterClose
		if strings.EqualFold(e.Hour, "bmo") {
			session = model.BeforeOpen
		}
		events = append(events, model.EarningsEvent{
			Ticker:  e.Symbol,
			Date:    date,
			Session: session,
		})
	}
	return events, nil
}

type finnhubQuote struct {
	Current float64 `json:"c"`
}

// GetSpot returns the current price
func (p *FinnhubProvider) GetSpot(ctx context.Context, ticker string) (float64, error) {
	q := url.Values{}
	q.Set("symbol", ticker)

	var data finnhubQuote
	if err := p.get(ctx, "/quote", q, &data); err != nil {
		return 0, err
	}
	if data.Current <= 0 {
		return 0, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no quote for %s", ticker), Retryable: false}
	}
	return data.Current, nil
}

type finnhubCandle struct {
	C []float64 `json:"c"`
	H []float64 `json:"h"`
	L []float64 `json:"l"`
	O []float64 `json:"o"`
	S string    `json:"s"`
	T []int64   `json:"t"`
	V []int64   `json:"v"`
}

// GetHistoricalMoves fetches daily candles spanning the past events and
// brackets each report date.
func (p *FinnhubProvider) GetHistoricalMoves(ctx context.Context, ticker string, past []model.EarningsEvent) ([]model.HistoricalMove, error) {
	if len(past) == 0 {
		return nil, nil
	}

	first, last := past[0].Date, past[0].Date
	for _, e := range past[1:] {
		if e.Date.Before(first) {
			first = e.Date
		}
		if e.Date.After(last) {
			last = e.Date
		}
	}

	q := url.Values{}
	q.Set("symbol", ticker)
	q.Set("resolution", "D")
	q.Set("from", fmt.Sprintf("%d", first.AddDate(0, 0, -7).Unix()))
	q.Set("to", fmt.Sprintf("%d", last.AddDate(0, 0, 7).Unix()))

	var data finnhubCandle
	if err := p.get(ctx, "/stock/candle", q, &data); err != nil {
		return nil, err
	}
	if data.S != "ok" || len(data.T) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no history for %s", ticker), Retryable: false}
	}

	candles := make([]model.Candle, 0, len(data.T))
	for i := range data.T {
		if i >= len(data.C) {
			break
		}
		var volume int64
		if i < len(data.V) {
			volume = data.V[i]
		}
		candle := model.Candle{Time: time.Unix(data.T[i], 0).UTC(), Close: data.C[i], Volume: volume}
		if i < len(data.O) {
			candle.Open = data.O[i]
		}
		if i < len(data.H) {
			candle.High = data.H[i]
		}
		if i < len(data.L) {
			candle.Low = data.L[i]
		}
		candles = append(candles, candle)
	}

	return movesFromCandles(ticker, candles, past), nil
}

// GetExpirations is not available on the free tier
func (p *FinnhubProvider) GetExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	return nil, &ProviderError{Provider: p.Name(), Err: ErrNotSupported, Retryable: false}
}

// GetChain is not available on the free tier
func (p *FinnhubProvider) GetChain(ctx context.Context, ticker string, expiration time.Time) (*model.OptionChain, error) {
	return nil, &ProviderError{Provider: p.Name(), Err: ErrNotSupported, Retryable: false}
}
