package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivcrush/internal/config"
	"ivcrush/pkg/model"
)

// quoteSpec describes one strike of the test chain
type quoteSpec struct {
	strike    float64
	callMid   float64
	putMid    float64
	callDelta float64
	putDelta  float64
	vega      float64
	oi        int
	volume    int
}

// testChain is a 100-spot chain with 5-wide strikes. Mids carry a 0.10
// bid/ask spread; deltas are hand-set so the 0.16 target lands on 90/110.
func testChain(overrides func(*quoteSpec)) *model.OptionChain {
	specs := []quoteSpec{
		{80, 9.10, 0.40, 0.97, -0.03, 0.02, 4000, 600},
		{85, 7.20, 0.80, 0.94, -0.06, 0.04, 4000, 600},
		{90, 5.60, 1.50, 0.89, -0.11, 0.07, 4000, 600},
		{95, 4.60, 2.60, 0.73, -0.27, 0.10, 4000, 600},
		{100, 4.00, 4.00, 0.52, -0.48, 0.13, 4000, 600},
		{105, 2.60, 4.60, 0.27, -0.73, 0.10, 4000, 600},
		{110, 1.50, 5.60, 0.11, -0.89, 0.07, 4000, 600},
		{115, 0.80, 7.20, 0.06, -0.94, 0.04, 4000, 600},
		{120, 0.40, 9.10, 0.03, -0.97, 0.02, 4000, 600},
	}

	var quotes []model.OptionQuote
	for i := range specs {
		if overrides != nil {
			overrides(&specs[i])
		}
		s := specs[i]
		quotes = append(quotes,
			model.OptionQuote{
				Side: model.Call, Strike: s.strike,
				Bid: s.callMid - 0.05, Ask: s.callMid + 0.05, Last: s.callMid,
				OpenInterest: s.oi, Volume: s.volume,
				Greeks: &model.Greeks{Delta: s.callDelta, Gamma: 0.02, Theta: -s.vega, Vega: s.vega},
			},
			model.OptionQuote{
				Side: model.Put, Strike: s.strike,
				Bid: s.putMid - 0.05, Ask: s.putMid + 0.05, Last: s.putMid,
				OpenInterest: s.oi, Volume: s.volume,
				Greeks: &model.Greeks{Delta: s.putDelta, Gamma: 0.02, Theta: -s.vega, Vega: s.vega},
			},
		)
	}
	exp := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	return model.NewOptionChain("TEST", exp, 100, quotes)
}

func impliedFor(chain *model.OptionChain) *model.ImpliedMoveResult {
	return &model.ImpliedMoveResult{
		Spot:           100,
		ATMStrike:      100,
		StraddleCost:   8.0,
		ImpliedMovePct: 8.0,
	}
}

func vrpTier(tier model.VRPTier) *model.VRPResult {
	return &model.VRPResult{Ratio: 5, Tier: tier, EdgeScore: 2, Consistency: 0.8, Events: 8}
}

func TestBuild_IronCondorForGoodNeutral(t *testing.T) {
	chain := testChain(nil)
	c := NewConstructor(config.BalancedProfile(), 2000)

	candidates := c.Build(chain, impliedFor(chain), vrpTier(model.VRPGood), model.Neutral)
	require.Len(t, candidates, 1)

	condor := candidates[0]
	assert.Equal(t, model.IronCondor, condor.Type)
	require.Len(t, condor.Legs, 4)

	// Shorts at the 0.11-delta strikes, wings one increment out
	assert.Equal(t, []float64{90, 110}, condor.ShortStrikes())
	assert.Equal(t, 85.0, condor.Legs[0].Strike)
	assert.Equal(t, 115.0, condor.Legs[3].Strike)

	// 1.50 + 1.50 - 0.80 - 0.80
	assert.InDelta(t, 1.40, condor.NetCredit, 1e-9)
	assert.InDelta(t, 5.0, condor.SpreadWidth, 1e-9)

	// floor(2000 / 360) = 5 contracts
	assert.Equal(t, 5, condor.Contracts)
	assert.InDelta(t, 700.0, condor.MaxProfit, 1e-9)
	assert.InDelta(t, 1800.0, condor.MaxLoss, 1e-9)

	// POP from the two short deltas
	assert.InDelta(t, 1-0.11-0.11, condor.POP, 1e-9)
	assert.Equal(t, []float64{90 - 1.40, 110 + 1.40}, condor.BreakEvens)

	require.NotNil(t, condor.Greeks)
	assert.Negative(t, condor.Greeks.Vega) // short vega is the whole thesis
	assert.Positive(t, condor.Greeks.Theta)
}

func TestBuild_ButterflyForExcellentNeutral(t *testing.T) {
	chain := testChain(nil)
	c := NewConstructor(config.BalancedProfile(), 2000)

	candidates := c.Build(chain, impliedFor(chain), vrpTier(model.VRPExcellent), model.Neutral)
	require.Len(t, candidates, 2)

	fly := candidates[0]
	assert.Equal(t, model.IronButterfly, fly.Type)
	assert.Equal(t, []float64{100, 100}, fly.ShortStrikes())

	// 4.00 + 4.00 - 2.60 - 2.60
	assert.InDelta(t, 2.80, fly.NetCredit, 1e-9)
	assert.Equal(t, []float64{100 - 2.80, 100 + 2.80}, fly.BreakEvens)

	// The condor rides along as the second candidate
	assert.Equal(t, model.IronCondor, candidates[1].Type)
}

func TestBuild_ButterflyWidensWingsOnce(t *testing.T) {
	// Kill open interest on the tight wings (95 put / 105 call)
	chain := testChain(func(s *quoteSpec) {
		if s.strike == 95 || s.strike == 105 {
			s.oi = 100
		}
	})
	c := NewConstructor(config.BalancedProfile(), 2000)

	candidates := c.Build(chain, impliedFor(chain), vrpTier(model.VRPExcellent), model.Neutral)
	require.NotEmpty(t, candidates)

	fly := candidates[0]
	require.Equal(t, model.IronButterfly, fly.Type)
	// Wings moved from 95/105 out to 90/110
	assert.Equal(t, 90.0, fly.Legs[0].Strike)
	assert.Equal(t, 110.0, fly.Legs[3].Strike)
	assert.InDelta(t, 10.0, fly.SpreadWidth, 1e-9)
}

func TestBuild_DirectionalSpreads(t *testing.T) {
	chain := testChain(nil)
	c := NewConstructor(config.BalancedProfile(), 2000)

	bull := c.Build(chain, impliedFor(chain), vrpTier(model.VRPGood), model.Bullish)
	require.Len(t, bull, 1)
	assert.Equal(t, model.BullPutSpread, bull[0].Type)
	assert.Equal(t, []float64{90}, bull[0].ShortStrikes())
	assert.InDelta(t, 0.70, bull[0].NetCredit, 1e-9)
	assert.InDelta(t, 1-0.11, bull[0].POP, 1e-9)
	assert.Equal(t, []float64{90 - 0.70}, bull[0].BreakEvens)

	bear := c.Build(chain, impliedFor(chain), vrpTier(model.VRPExcellent), model.Bearish)
	require.Len(t, bear, 1)
	assert.Equal(t, model.BearCallSpread, bear[0].Type)
	assert.Equal(t, []float64{110}, bear[0].ShortStrikes())
	assert.Equal(t, []float64{110 + 0.70}, bear[0].BreakEvens)
}

func TestBuild_NoTradeBelowBar(t *testing.T) {
	chain := testChain(nil)
	c := NewConstructor(config.BalancedProfile(), 2000)

	for _, tier := range []model.VRPTier{model.VRPSkip, model.VRPMarginal} {
		candidates := c.Build(chain, impliedFor(chain), vrpTier(tier), model.Neutral)
		assert.NotNil(t, candidates)
		assert.Empty(t, candidates, "tier %s", tier)
	}

	// Directional bias below GOOD is also a no-trade
	candidates := c.Build(chain, impliedFor(chain), vrpTier(model.VRPMarginal), model.Bullish)
	assert.Empty(t, candidates)
}

func TestBuild_PayoffInvariant(t *testing.T) {
	chain := testChain(nil)
	c := NewConstructor(config.BalancedProfile(), 2000)

	var all []model.Strategy
	all = append(all, c.Build(chain, impliedFor(chain), vrpTier(model.VRPExcellent), model.Neutral)...)
	all = append(all, c.Build(chain, impliedFor(chain), vrpTier(model.VRPGood), model.Bullish)...)
	all = append(all, c.Build(chain, impliedFor(chain), vrpTier(model.VRPGood), model.Bearish)...)
	require.NotEmpty(t, all)

	// Total risk span is conserved: max profit + max loss = width x 100 x contracts
	for _, s := range all {
		span := s.SpreadWidth * 100 * float64(s.Contracts)
		assert.InDelta(t, span, s.MaxProfit+s.MaxLoss, 1e-6, "%s", s.Type)
		assert.GreaterOrEqual(t, s.POP, 0.0)
		assert.LessOrEqual(t, s.POP, 1.0)
	}
}

func TestBuild_WithoutGreeksFallsBackToMoneyness(t *testing.T) {
	chain := testChain(nil)
	for i := range chain.Calls {
		chain.Calls[i].Greeks = nil
	}
	for i := range chain.Puts {
		chain.Puts[i].Greeks = nil
	}
	c := NewConstructor(config.BalancedProfile(), 2000)

	candidates := c.Build(chain, impliedFor(chain), vrpTier(model.VRPGood), model.Neutral)
	require.Len(t, candidates, 1)

	condor := candidates[0]
	assert.Equal(t, model.IronCondor, condor.Type)
	assert.Nil(t, condor.Greeks) // no fabricated Greeks downstream
	assert.Greater(t, condor.POP, 0.5)

	// Moneyness proxy with an 8-point sigma still shorts out-of-the-money
	shorts := condor.ShortStrikes()
	assert.Less(t, shorts[0], 100.0)
	assert.Greater(t, shorts[1], 100.0)
}
