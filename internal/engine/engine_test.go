package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivcrush/internal/analyzer"
	"ivcrush/internal/config"
	"ivcrush/pkg/model"
)

var testExpiry = time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)

// earningsChain is a healthy 100-spot chain whose ATM straddle prices an
// 8% move. Deltas put the 0.16-target shorts at 90/110.
func earningsChain() *model.OptionChain {
	type row struct {
		strike, callMid, putMid, callDelta, putDelta, vega float64
	}
	rows := []row{
		{80, 9.10, 0.40, 0.97, -0.03, 0.02},
		{85, 7.20, 0.80, 0.94, -0.06, 0.04},
		{90, 5.60, 1.50, 0.89, -0.11, 0.07},
		{95, 4.60, 2.60, 0.73, -0.27, 0.10},
		{100, 4.00, 4.00, 0.52, -0.48, 0.13},
		{105, 2.60, 4.60, 0.27, -0.73, 0.10},
		{110, 1.50, 5.60, 0.11, -0.89, 0.07},
		{115, 0.80, 7.20, 0.06, -0.94, 0.04},
		{120, 0.40, 9.10, 0.03, -0.97, 0.02},
	}
	var quotes []model.OptionQuote
	for _, r := range rows {
		quotes = append(quotes,
			model.OptionQuote{
				Side: model.Call, Strike: r.strike,
				Bid: r.callMid - 0.05, Ask: r.callMid + 0.05, Last: r.callMid,
				OpenInterest: 4000, Volume: 600,
				Greeks: &model.Greeks{Delta: r.callDelta, Gamma: 0.02, Theta: -r.vega, Vega: r.vega},
			},
			model.OptionQuote{
				Side: model.Put, Strike: r.strike,
				Bid: r.putMid - 0.05, Ask: r.putMid + 0.05, Last: r.putMid,
				OpenInterest: 4000, Volume: 600,
				Greeks: &model.Greeks{Delta: r.putDelta, Gamma: 0.02, Theta: -r.vega, Vega: r.vega},
			},
		)
	}
	return model.NewOptionChain("NVDA", testExpiry, 100.0, quotes)
}

// quarterlyMoves fabricates one past event per quarter with the given
// signed move percentages, oldest first.
func quarterlyMoves(pcts ...float64) []model.HistoricalMove {
	start := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
	moves := make([]model.HistoricalMove, len(pcts))
	for i, pct := range pcts {
		moves[i] = model.HistoricalMove{
			Ticker:  "NVDA",
			Date:    start.AddDate(0, 3*i, 0),
			Session: model.AfterClose,
			MovePct: pct,
		}
	}
	return moves
}

func snapshot(moves []model.HistoricalMove) Snapshot {
	return Snapshot{
		Ticker:       "NVDA",
		EarningsDate: testExpiry.AddDate(0, 0, -2),
		Spot:         100.0,
		Chain:        earningsChain(),
		Moves:        moves,
		Bias:         model.Neutral,
	}
}

func TestEvaluate_FullPipeline(t *testing.T) {
	eng := New(config.BalancedProfile(), 2000)

	// quiet mover: 8% implied against roughly 1% realized
	result, err := eng.Evaluate(snapshot(quarterlyMoves(1.1, -0.8, 0.9, -1.2, 1.0, -0.9)))
	require.NoError(t, err)

	assert.Equal(t, "NVDA", result.Ticker)
	assert.Equal(t, "balanced", result.Profile)
	assert.InDelta(t, 8.0, result.ImpliedMove.ImpliedMovePct, 1e-9)
	assert.Equal(t, model.VRPExcellent, result.VRP.Tier)

	require.NotEmpty(t, result.RankedStrategies)
	assert.Empty(t, result.NoTradeReason)
	assert.Equal(t, model.LiquidityExcellent, result.LiquiditySummary)

	top := result.Recommended()
	require.NotNil(t, top)
	assert.Positive(t, top.Score)
	assert.NotEmpty(t, top.Rationale)
	for i := 1; i < len(result.RankedStrategies); i++ {
		assert.GreaterOrEqual(t, result.RankedStrategies[i-1].Score, result.RankedStrategies[i].Score)
	}
}

func TestEvaluate_NoEdgeIsNoTradeNotError(t *testing.T) {
	eng := New(config.BalancedProfile(), 2000)

	// realized moves as big as the implied one: no premium to sell
	result, err := eng.Evaluate(snapshot(quarterlyMoves(7.5, -8.2, 6.9, -7.8, 8.1, -7.2)))
	require.NoError(t, err)

	assert.Equal(t, model.VRPSkip, result.VRP.Tier)
	assert.NotNil(t, result.RankedStrategies)
	assert.Empty(t, result.RankedStrategies)
	assert.Contains(t, result.NoTradeReason, "SKIP")
	assert.Nil(t, result.Recommended())
}

func TestEvaluate_ThinHistoryPropagates(t *testing.T) {
	eng := New(config.BalancedProfile(), 2000)

	_, err := eng.Evaluate(snapshot(quarterlyMoves(1.0, -1.1)))
	require.Error(t, err)
	assert.ErrorIs(t, err, analyzer.ErrInsufficientHistory)
	assert.Contains(t, err.Error(), "NVDA")
}

func TestEvaluate_MissingChainPropagates(t *testing.T) {
	eng := New(config.BalancedProfile(), 2000)

	snap := snapshot(quarterlyMoves(1.0, -1.1, 0.9, -1.0))
	snap.Chain = nil
	_, err := eng.Evaluate(snap)
	assert.ErrorIs(t, err, analyzer.ErrInsufficientData)
}

func TestEvaluate_CacheReturnsSameResult(t *testing.T) {
	eng := New(config.BalancedProfile(), 2000).WithCache(NewMemoryCache())
	snap := snapshot(quarterlyMoves(1.1, -0.8, 0.9, -1.2, 1.0, -0.9))

	first, err := eng.Evaluate(snap)
	require.NoError(t, err)
	second, err := eng.Evaluate(snap)
	require.NoError(t, err)

	assert.Same(t, first, second, "second evaluation must come from the cache")
}

func TestEvaluate_DefaultsBiasToNeutral(t *testing.T) {
	eng := New(config.BalancedProfile(), 2000)
	snap := snapshot(quarterlyMoves(1.1, -0.8, 0.9, -1.2, 1.0, -0.9))
	snap.Bias = ""

	result, err := eng.Evaluate(snap)
	require.NoError(t, err)
	assert.Equal(t, model.Neutral, result.Bias)
}
