package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivcrush/internal/config"
	"ivcrush/internal/provider"
	"ivcrush/internal/symbols"
	"ivcrush/pkg/model"
)

// replayMarket serves canned realized moves; everything else is unsupported
type replayMarket struct {
	moves map[string][]model.HistoricalMove
}

func (m *replayMarket) Name() string { return "replay" }
func (m *replayMarket) IsAvailable() bool { return true }
func (m *replayMarket) RateLimit() int { return 0 }

func (m *replayMarket) GetHistoricalMoves(_ context.Context, ticker string, _ []model.EarningsEvent) ([]model.HistoricalMove, error) {
	return m.moves[ticker], nil
}

func (m *replayMarket) GetExpirations(context.Context, string) ([]time.Time, error) {
	return nil, provider.ErrNotSupported
}

func (m *replayMarket) GetChain(context.Context, string, time.Time) (*model.OptionChain, error) {
	return nil, provider.ErrNotSupported
}

func (m *replayMarket) GetSpot(context.Context, string) (float64, error) {
	return 0, provider.ErrNotSupported
}

func (m *replayMarket) GetEarningsCalendar(context.Context, time.Time, time.Time) ([]model.EarningsEvent, error) {
	return nil, provider.ErrNotSupported
}

// quarterlyHistory builds one move per quarter ending last quarter, oldest
// first, with PreClose pinned at 100.
func quarterlyHistory(ticker string, pcts ...float64) []model.HistoricalMove {
	moves := make([]model.HistoricalMove, len(pcts))
	for i, pct := range pcts {
		date := time.Now().UTC().AddDate(0, -3*(len(pcts)-i), 0)
		moves[i] = model.HistoricalMove{
			Ticker:    ticker,
			Date:      date,
			Session:   model.AfterClose,
			PreClose:  100,
			PostClose: 100 * (1 + pct/100),
			MovePct:   pct,
		}
	}
	return moves
}

func replayFixture(t *testing.T) *Backtester {
	t.Helper()

	market := &replayMarket{moves: map[string][]model.HistoricalMove{
		// settles against small moves after a louder past: every replayed
		// event keeps its credit
		"CONS": quarterlyHistory("CONS", 4, -4, 4, -4, 1, -1, 1, -1),
		// same shape until the most recent event gaps 20% through the wings
		"BLOW": quarterlyHistory("BLOW", 4, -4, 4, -4, 1, -1, 1, 20),
	}}

	cal := symbols.NewCalendarLoader(market)
	for ticker, moves := range market.moves {
		for _, m := range moves {
			cal.AddEvents(model.EarningsEvent{Ticker: ticker, Date: m.Date, Session: m.Session})
		}
	}

	return NewBacktester(market, cal, config.BalancedProfile(), DefaultConfig())
}

func TestRun_SettlesTradesAgainstRealizedMoves(t *testing.T) {
	bt := replayFixture(t)

	result, err := bt.Run(context.Background(), []string{"CONS", "BLOW"})
	require.NoError(t, err)

	// 8 moves per ticker, 4 quarters of warmup each
	assert.Equal(t, 8, result.TotalEvents)
	assert.Equal(t, 0, result.NoTrades)
	require.Len(t, result.Trades, 8)

	assert.Equal(t, 7, result.Wins)
	assert.Equal(t, 1, result.Losses)
	assert.InDelta(t, 87.5, result.WinRate, 0.01)
	assert.Negative(t, result.LargestLoss)
	assert.Positive(t, result.AvgWin)
	assert.Positive(t, result.ProfitFactor)
	assert.NotEmpty(t, result.Period)

	// entries were priced rich relative to what actually printed
	assert.Greater(t, result.AvgImpliedPct, result.AvgRealizedPct)

	for _, trade := range result.Trades {
		assert.Positive(t, trade.Credit)
		assert.Positive(t, trade.Score)
		if trade.RealizedMovePct == 20 {
			assert.False(t, trade.IsWin)
			assert.Negative(t, trade.PnL)
		} else {
			assert.True(t, trade.IsWin, "quiet settle should keep the credit")
		}
	}
}

func TestRun_ThinHistoryProducesNoTrades(t *testing.T) {
	market := &replayMarket{moves: map[string][]model.HistoricalMove{
		"NEW": quarterlyHistory("NEW", 2, -2, 3),
	}}
	cal := symbols.NewCalendarLoader(market)

	bt := NewBacktester(market, cal, config.BalancedProfile(), DefaultConfig())
	result, err := bt.Run(context.Background(), []string{"NEW"})
	require.NoError(t, err)

	assert.Zero(t, result.TotalEvents)
	assert.Empty(t, result.Trades)
	assert.Empty(t, result.Period)
}

func TestSettlePerShare(t *testing.T) {
	condor := &model.Strategy{
		NetCredit: 1.40,
		Legs: []model.StrategyLeg{
			{Side: model.Put, Direction: model.LongLeg, Strike: 85, Quantity: 1},
			{Side: model.Put, Direction: model.ShortLeg, Strike: 90, Quantity: 1},
			{Side: model.Call, Direction: model.ShortLeg, Strike: 110, Quantity: 1},
			{Side: model.Call, Direction: model.LongLeg, Strike: 115, Quantity: 1},
		},
	}

	// inside the shorts: keep the whole credit
	assert.InDelta(t, 1.40, settlePerShare(condor, 100), 1e-9)
	// through the short call but inside the wing
	assert.InDelta(t, 1.40-3, settlePerShare(condor, 113), 1e-9)
	// beyond the wing: loss capped at width minus credit
	assert.InDelta(t, 1.40-5, settlePerShare(condor, 130), 1e-9)
	assert.InDelta(t, 1.40-5, settlePerShare(condor, 60), 1e-9)
}

func TestSyntheticChainCalibration(t *testing.T) {
	expiry := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	chain := syntheticChain("NVDA", expiry, 100, 8.0)

	atm, ok := chain.ATMStrike(100)
	require.True(t, ok)
	assert.InDelta(t, 100, atm, 0.5)

	call, ok := chain.Quote(model.Call, atm)
	require.True(t, ok)
	put, ok := chain.Quote(model.Put, atm)
	require.True(t, ok)

	// ATM straddle reproduces the implied move the chain was built from
	assert.InDelta(t, 8.0, call.Mid()+put.Mid(), 0.05)
	assert.InDelta(t, 0.5, call.Greeks.Delta, 0.02)
	assert.InDelta(t, -0.5, put.Greeks.Delta, 0.02)
	assert.Negative(t, call.Greeks.Theta)
	assert.Positive(t, call.Greeks.Vega)
	assert.Less(t, call.SpreadPct(), 5.0)
}
