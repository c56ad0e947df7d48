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

const yahooBaseURL = "https://query2.finance.yahoo.com"

// YahooProvider implements the Provider interface against Yahoo's unofficial
// finance endpoints. No credentials, no Greeks: chains from here push the
// analysis down the moneyness-fallback path, which is still good enough to
// rank structures. Used as the fallback behind Tradier.
type YahooProvider struct {
	client    *http.Client
	limiter   *ratelimit.Limiter
	rateLimit int
}

func NewYahooProvider(rateLimitPerMin int) *YahooProvider {
	return &YahooProvider{
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter("yahoo", rateLimitPerMin),
		rateLimit: rateLimitPerMin,
	}
}

// Name returns the provider name
func (p *YahooProvider) Name() string {
	return "yahoo"
}

// IsAvailable always reports true; the endpoints are unauthenticated
func (p *YahooProvider) IsAvailable() bool {
	return true
}

// RateLimit returns the rate limit per minute
func (p *YahooProvider) RateLimit() int {
	return p.rateLimit
}

func (p *YahooProvider) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	u := yahooBaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

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

type yahooOptionQuote struct {
	Strike       float64 `json:"strike"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	LastPrice    float64 `json:"lastPrice"`
	Volume       int     `json:"volume"`
	OpenInterest int     `json:"openInterest"`
}

type yahooOptionChain struct {
	OptionChain struct {
		Result []struct {
			Quote struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"quote"`
			ExpirationDates []int64 `json:"expirationDates"`
			Options         []struct {
				Calls []yahooOptionQuote `json:"calls"`
				Puts  []yahooOptionQuote `json:"puts"`
			} `json:"options"`
		} `json:"result"`
	} `json:"optionChain"`
}

// GetExpirations lists option expirations for a ticker
func (p *YahooProvider) GetExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	var data yahooOptionChain
	if err := p.get(ctx, "/v7/finance/options/"+url.PathEscape(ticker), nil, &data); err != nil {
		return nil, err
	}
	if len(data.OptionChain.Result) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no options for %s", ticker), Retryable: false}
	}

	dates := data.OptionChain.Result[0].ExpirationDates
	expirations := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		expirations = append(expirations, time.Unix(d, 0).UTC())
	}
	return expirations, nil
}

// GetChain fetches one expiration's chain. Quotes carry no Greeks.
func (p *YahooProvider) GetChain(ctx context.Context, ticker string, expiration time.Time) (*model.OptionChain, error) {
	q := url.Values{}
	q.Set("date", fmt.Sprintf("%d", expiration.Unix()))

	var data yahooOptionChain
	if err := p.get(ctx, "/v7/finance/options/"+url.PathEscape(ticker), q, &data); err != nil {
		return nil, err
	}
	if len(data.OptionChain.Result) == 0 || len(data.OptionChain.Result[0].Options) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("empty chain for %s", ticker), Retryable: false}
	}

	result := data.OptionChain.Result[0]
	spot := result.Quote.RegularMarketPrice
	if spot <= 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no spot for %s", ticker), Retryable: false}
	}

	options := result.Options[0]
	quotes := make([]model.OptionQuote, 0, len(options.Calls)+len(options.Puts))
	for _, c := range options.Calls {
		quotes = append(quotes, model.OptionQuote{
			Side: model.Call, Strike: c.Strike,
			Bid: c.Bid, Ask: c.Ask, Last: c.LastPrice,
			Volume: c.Volume, OpenInterest: c.OpenInterest,
		})
	}
	for _, u := range options.Puts {
		quotes = append(quotes, model.OptionQuote{
			Side: model.Put, Strike: u.Strike,
			Bid: u.Bid, Ask: u.Ask, Last: u.LastPrice,
			Volume: u.Volume, OpenInterest: u.OpenInterest,
		})
	}

	return model.NewOptionChain(ticker, expiration, spot, quotes), nil
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// GetSpot returns the regular-market price from the chart metadata
func (p *YahooProvider) GetSpot(ctx context.Context, ticker string) (float64, error) {
	q := url.Values{}
	q.Set("range", "1d")
	q.Set("interval", "1d")

	var data yahooChart
	if err := p.get(ctx, "/v8/finance/chart/"+url.PathEscape(ticker), q, &data); err != nil {
		return 0, err
	}
	if len(data.Chart.Result) == 0 || data.Chart.Result[0].Meta.RegularMarketPrice <= 0 {
		return 0, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no spot for %s", ticker), Retryable: false}
	}
	return data.Chart.Result[0].Meta.RegularMarketPrice, nil
}

// GetHistoricalMoves fetches daily candles spanning the past events and
// brackets each report date.
func (p *YahooProvider) GetHistoricalMoves(ctx context.Context, ticker string, past []model.EarningsEvent) ([]model.HistoricalMove, error) {
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
	q.Set("period1", fmt.Sprintf("%d", first.AddDate(0, 0, -7).Unix()))
	q.Set("period2", fmt.Sprintf("%d", last.AddDate(0, 0, 7).Unix()))
	q.Set("interval", "1d")

	var data yahooChart
	if err := p.get(ctx, "/v8/finance/chart/"+url.PathEscape(ticker), q, &data); err != nil {
		return nil, err
	}
	if len(data.Chart.Result) == 0 || len(data.Chart.Result[0].Timestamp) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no history for %s", ticker), Retryable: false}
	}

	result := data.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no candles for %s", ticker), Retryable: false}
	}
	bars := result.Indicators.Quote[0]

	candles := make([]model.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(bars.Close) || bars.Close[i] <= 0 {
			continue
		}
		candle := model.Candle{Time: time.Unix(ts, 0).UTC(), Close: bars.Close[i]}
		if i < len(bars.Open) {
			candle.Open = bars.Open[i]
		}
		if i < len(bars.High) {
			candle.High = bars.High[i]
		}
		if i < len(bars.Low) {
			candle.Low = bars.Low[i]
		}
		if i < len(bars.Volume) {
			candle.Volume = bars.Volume[i]
		}
		candles = append(candles, candle)
	}

	return movesFromCandles(ticker, candles, past), nil
}

// GetEarningsCalendar is not served by the chart/options endpoints
func (p *YahooProvider) GetEarningsCalendar(ctx context.Context, from, to time.Time) ([]model.EarningsEvent, error) {
	return nil, &ProviderError{Provider: p.Name(), Err: ErrNotSupported, Retryable: false}
}
