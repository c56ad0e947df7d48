package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"ivcrush/internal/ratelimit"
	"ivcrush/pkg/model"
)

const tradierBaseURL = "https://api.tradier.com/v1"

// TradierProvider implements the Provider interface for the Tradier
// brokerage API. It is the primary source: chains come back with Greeks
// and open interest, which the strike selector and liquidity classifier
// want. A daily request budget guards the metered plan.
type TradierProvider struct {
	token     string
	baseURL   string
	client    *http.Client
	limiter   *ratelimit.Limiter
	budget    *ratelimit.Budget
	rateLimit int
}

// NewTradierProvider creates a Tradier provider. dailyBudget <= 0 disables
// budget tracking.
func NewTradierProvider(token string, rateLimitPerMin, dailyBudget int) *TradierProvider {
	p := &TradierProvider{
		token:     token,
		baseURL:   tradierBaseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter("tradier", rateLimitPerMin),
		rateLimit: rateLimitPerMin,
	}
	if dailyBudget > 0 {
		p.budget = ratelimit.NewBudget("tradier", dailyBudget)
	}
	return p
}

// Name returns the provider name
func (p *TradierProvider) Name() string {
	return "tradier"
}

// IsAvailable checks if the provider has an API token
func (p *TradierProvider) IsAvailable() bool {
	return p.token != ""
}

// RateLimit returns the rate limit per minute
func (p *TradierProvider) RateLimit() int {
	return p.rateLimit
}

// get performs one authenticated request and decodes the JSON body into out
func (p *TradierProvider) get(ctx context.Context, path string, query url.Values, out any) error {
	if p.budget != nil {
		if err := p.budget.Spend(); err != nil {
			return &ProviderError{Provider: p.Name(), Err: err, Retryable: false}
		}
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Accept", "application/json")

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

type tradierExpirations struct {
	Expirations struct {
		Date []string `json:"date"`
	} `json:"expirations"`
}

// GetExpirations lists option expirations for a ticker
func (p *TradierProvider) GetExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	q := url.Values{}
	q.Set("symbol", ticker)
	q.Set("includeAllRoots", "true")

	var data tradierExpirations
	if err := p.get(ctx, "/markets/options/expirations", q, &data); err != nil {
		return nil, err
	}
	if len(data.Expirations.Date) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no expirations for %s", ticker), Retryable: false}
	}

	expirations := make([]time.Time, 0, len(data.Expirations.Date))
	for _, d := range data.Expirations.Date {
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		expirations = append(expirations, t)
	}
	return expirations, nil
}

type tradierGreeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

type tradierOption struct {
	Symbol       string         `json:"symbol"`
	Underlying   string         `json:"underlying"`
	Strike       float64        `json:"strike"`
	OptionType   string         `json:"option_type"`
	Bid          float64        `json:"bid"`
	Ask          float64        `json:"ask"`
	Last         float64        `json:"last"`
	Volume       int            `json:"volume"`
	OpenInterest int            `json:"open_interest"`
	Greeks       *tradierGreeks `json:"greeks"`
}

type tradierChain struct {
	Options struct {
		Option []tradierOption `json:"option"`
	} `json:"options"`
}

// GetChain fetches one expiration's chain with Greeks and open interest
func (p *TradierProvider) GetChain(ctx context.Context, ticker string, expiration time.Time) (*model.OptionChain, error) {
	q := url.Values{}
	q.Set("symbol", ticker)
	q.Set("expiration", expiration.Format("2006-01-02"))
	q.Set("greeks", "true")

	var data tradierChain
	if err := p.get(ctx, "/markets/options/chains", q, &data); err != nil {
		return nil, err
	}
	if len(data.Options.Option) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("empty chain for %s %s", ticker, expiration.Format("2006-01-02")), Retryable: false}
	}

	spot, err := p.GetSpot(ctx, ticker)
	if err != nil {
		return nil, err
	}

	quotes := make([]model.OptionQuote, 0, len(data.Options.Option))
	for _, o := range data.Options.Option {
		side := model.Put
		if o.OptionType == "call" {
			side = model.Call
		}
		quote := model.OptionQuote{
			Symbol:       o.Symbol,
			Side:         side,
			Strike:       o.Strike,
			Bid:          o.Bid,
			Ask:          o.Ask,
			Last:         o.Last,
			Volume:       o.Volume,
			OpenInterest: o.OpenInterest,
		}
		if o.Greeks != nil {
			quote.Greeks = &model.Greeks{
				Delta: o.Greeks.Delta,
				Gamma: o.Greeks.Gamma,
				Theta: o.Greeks.Theta,
				Vega:  o.Greeks.Vega,
			}
		}
		quotes = append(quotes, quote)
	}

	return model.NewOptionChain(ticker, expiration, spot, quotes), nil
}

type tradierQuotes struct {
	Quotes struct {
		Quote json.RawMessage `json:"quote"`
	} `json:"quotes"`
}

type tradierQuote struct {
	Symbol string  `json:"symbol"`
	Last   float64 `json:"last"`
	Close  float64 `json:"prevclose"`
}

// GetSpot returns the latest trade price for the underlying
func (p *TradierProvider) GetSpot(ctx context.Context, ticker string) (float64, error) {
	q := url.Values{}
	q.Set("symbols", ticker)

	var data tradierQuotes
	if err := p.get(ctx, "/markets/quotes", q, &data); err != nil {
		return 0, err
	}

	// single-symbol requests come back as an object, multi as an array
	var quote tradierQuote
	if err := json.Unmarshal(data.Quotes.Quote, &quote); err != nil {
		var quotes []tradierQuote
		if err := json.Unmarshal(data.Quotes.Quote, &quotes); err != nil || len(quotes) == 0 {
			return 0, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no quote for %s", ticker), Retryable: false}
		}
		quote = quotes[0]
	}
	if quote.Last <= 0 {
		return 0, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no last price for %s", ticker), Retryable: false}
	}
	return quote.Last, nil
}

type tradierHistory struct {
	History struct {
		Day []struct {
			Date   string  `json:"date"`
			Open   float64 `json:"open"`
			High   float64 `json:"high"`
			Low    float64 `json:"low"`
			Close  float64 `json:"close"`
			Volume int64   `json:"volume"`
		} `json:"day"`
	} `json:"history"`
}

// GetHistoricalMoves fetches daily closes spanning the past events and
// brackets each report date.
func (p *TradierProvider) GetHistoricalMoves(ctx context.Context, ticker string, past []model.EarningsEvent) ([]model.HistoricalMove, error) {
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
	q.Set("interval", "daily")
	q.Set("start", first.AddDate(0, 0, -7).Format("2006-01-02"))
	q.Set("end", last.AddDate(0, 0, 7).Format("2006-01-02"))

	var data tradierHistory
	if err := p.get(ctx, "/markets/history", q, &data); err != nil {
		return nil, err
	}
	if len(data.History.Day) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no history for %s", ticker), Retryable: false}
	}

	candles := make([]model.Candle, 0, len(data.History.Day))
	for _, d := range data.History.Day {
		t, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			continue
		}
		candles = append(candles, model.Candle{
			Time:   t,
			Open:   d.Open,
			High:   d.High,
			Low:    d.Low,
			Close:  d.Close,
			Volume: d.Volume,
		})
	}

	return movesFromCandles(ticker, candles, past), nil
}

// GetEarningsCalendar is not served by the brokerage API
func (p *TradierProvider) GetEarningsCalendar(ctx context.Context, from, to time.Time) ([]model.EarningsEvent, error) {
	return nil, &ProviderError{Provider: p.Name(), Err: ErrNotSupported, Retryable: false}
}
