package scanner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivcrush/internal/config"
	"ivcrush/internal/symbols"
	"ivcrush/pkg/model"
)

// fakeMarket serves a canned chain and history for every ticker, except
// tickers in the broken set which fail at the chain fetch.
type fakeMarket struct {
	expiration time.Time
	broken     map[string]bool
	quiet      map[string]bool // tickers whose history kills the edge
	chainCalls int64
}

func (f *fakeMarket) Name() string { return "fake" }
func (f *fakeMarket) IsAvailable() bool { return true }
func (f *fakeMarket) RateLimit() int { return 600 }

func (f *fakeMarket) GetExpirations(ctx context.Context, ticker string) ([]time.Time, error) {
	return []time.Time{f.expiration.AddDate(0, 0, -7), f.expiration, f.expiration.AddDate(0, 0, 28)}, nil
}

func (f *fakeMarket) GetChain(ctx context.Context, ticker string, expiration time.Time) (*model.OptionChain, error) {
	atomic.AddInt64(&f.chainCalls, 1)
	if f.broken[ticker] {
		return nil, errors.New("fake: empty chain for " + ticker)
	}

	type row struct {
		strike, callMid, putMid, callDelta, putDelta float64
	}
	rows := []row{
		{80, 9.10, 0.40, 0.97, -0.03},
		{85, 7.20, 0.80, 0.94, -0.06},
		{90, 5.60, 1.50, 0.89, -0.11},
		{95, 4.60, 2.60, 0.73, -0.27},
		{100, 4.00, 4.00, 0.52, -0.48},
		{105, 2.60, 4.60, 0.27, -0.73},
		{110, 1.50, 5.60, 0.11, -0.89},
		{115, 0.80, 7.20, 0.06, -0.94},
		{120, 0.40, 9.10, 0.03, -0.97},
	}
	var quotes []model.OptionQuote
	for _, r := range rows {
		quotes = append(quotes,
			model.OptionQuote{
				Side: model.Call, Strike: r.strike,
				Bid: r.callMid - 0.05, Ask: r.callMid + 0.05, Last: r.callMid,
				OpenInterest: 4000, Volume: 600,
				Greeks: &model.Greeks{Delta: r.callDelta, Theta: -0.06, Vega: 0.08},
			},
			model.OptionQuote{
				Side: model.Put, Strike: r.strike,
				Bid: r.putMid - 0.05, Ask: r.putMid + 0.05, Last: r.putMid,
				OpenInterest: 4000, Volume: 600,
				Greeks: &model.Greeks{Delta: r.putDelta, Theta: -0.06, Vega: 0.08},
			},
		)
	}
	return model.NewOptionChain(ticker, expiration, 100.0, quotes), nil
}

func (f *fakeMarket) GetSpot(ctx context.Context, ticker string) (float64, error) {
	return 100.0, nil
}

func (f *fakeMarket) GetHistoricalMoves(ctx context.Context, ticker string, past []model.EarningsEvent) ([]model.HistoricalMove, error) {
	pct := 1.0
	if f.quiet[ticker] {
		pct = 8.0 // realized as large as implied, no premium to sell
	}
	moves := make([]model.HistoricalMove, len(past))
	for i, e := range past {
		sign := 1.0
		if i%2 == 1 {
			sign = -1
		}
		moves[i] = model.HistoricalMove{Ticker: ticker, Date: e.Date, Session: e.Session, MovePct: sign * pct}
	}
	return moves, nil
}

func (f *fakeMarket) GetEarningsCalendar(ctx context.Context, from, to time.Time) ([]model.EarningsEvent, error) {
	return nil, errors.New("fake: no calendar")
}

func scanFixture(market *fakeMarket, tickers ...string) ([]model.EarningsEvent, *symbols.CalendarLoader) {
	now := time.Now().UTC()
	loader := symbols.NewCalendarLoader(nil)

	events := make([]model.EarningsEvent, len(tickers))
	for i, ticker := range tickers {
		events[i] = model.EarningsEvent{Ticker: ticker, Date: market.expiration.AddDate(0, 0, -2), Session: model.AfterClose}
		for q := 1; q <= 6; q++ {
			loader.AddEvents(model.EarningsEvent{
				Ticker:  ticker,
				Date:    now.AddDate(0, -3*q, 0),
				Session: model.AfterClose,
			})
		}
	}
	return events, loader
}

func TestScan_CollectsResultsAndSkips(t *testing.T) {
	market := &fakeMarket{
		expiration: time.Now().UTC().AddDate(0, 0, 10),
		broken:     map[string]bool{"MSFT": true},
		quiet:      map[string]bool{"TSLA": true},
	}
	events, loader := scanFixture(market, "NVDA", "MSFT", "TSLA", "AAPL")

	s := NewScanner(market, loader, config.BalancedProfile(), 2000, 4, time.Minute)

	var lastScanned int64
	s.SetProgressCallback(func(scanned, total int) {
		atomic.StoreInt64(&lastScanned, int64(scanned))
		assert.Equal(t, 4, total)
	})

	scan, err := s.Scan(context.Background(), events)
	require.NoError(t, err)

	assert.Equal(t, 4, scan.TotalScanned)
	assert.EqualValues(t, 4, atomic.LoadInt64(&lastScanned))

	// NVDA and AAPL trade; MSFT fails at the chain, TSLA has no edge
	require.Len(t, scan.Results, 2)
	require.Len(t, scan.Skipped, 2)

	skipped := map[string]string{}
	for _, s := range scan.Skipped {
		skipped[s.Ticker] = s.Reason
	}
	assert.Contains(t, skipped["MSFT"], "empty chain")
	assert.Contains(t, skipped["TSLA"], "SKIP")

	for _, r := range scan.Results {
		assert.NotEmpty(t, r.RankedStrategies)
		assert.Equal(t, "balanced", r.Profile)
	}
}

func TestScan_EmptyEventList(t *testing.T) {
	market := &fakeMarket{expiration: time.Now().UTC().AddDate(0, 0, 10)}
	_, loader := scanFixture(market)

	s := NewScanner(market, loader, config.BalancedProfile(), 2000, 2, time.Minute)
	scan, err := s.Scan(context.Background(), nil)
	require.NoError(t, err)

	assert.Zero(t, scan.TotalScanned)
	assert.NotNil(t, scan.Results)
	assert.Empty(t, scan.Results)
}

func TestScan_PicksExpirationAfterReaction(t *testing.T) {
	market := &fakeMarket{expiration: time.Now().UTC().AddDate(0, 0, 10)}
	events, loader := scanFixture(market, "NVDA")

	s := NewScanner(market, loader, config.BalancedProfile(), 2000, 1, time.Minute)
	scan, err := s.Scan(context.Background(), events)
	require.NoError(t, err)

	require.Len(t, scan.Results, 1)
	// the expiration a week before earnings must never be chosen
	assert.True(t, scan.Results[0].Expiration.After(events[0].Date),
		"expiration %s is before the event %s", scan.Results[0].Expiration, events[0].Date)
}
