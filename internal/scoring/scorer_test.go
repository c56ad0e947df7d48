package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivcrush/internal/config"
	"ivcrush/pkg/model"
)

func condorAt(pop float64, tier model.LiquidityTier) model.Strategy {
	s := model.Strategy{
		Type:        model.IronCondor,
		Ticker:      "NVDA",
		NetCredit:   1.40,
		SpreadWidth: 5.0,
		POP:         pop,
		Greeks:      &model.Greeks{Delta: 0.01, Theta: 0.06, Vega: -0.06},
	}
	if tier != "" {
		s.Liquidity = &model.LiquidityAssessment{Overall: tier}
	}
	return s
}

func excellentVRP() *model.VRPResult {
	return &model.VRPResult{
		ImpliedMovePct:    10.73,
		HistoricalMeanPct: 0.94,
		Ratio:             11.4,
		Tier:              model.VRPExcellent,
		Consistency:       0.9,
	}
}

func TestScore_ComponentBreakdown(t *testing.T) {
	scorer := NewScorer(config.BalancedProfile())
	strat := condorAt(0.70, model.LiquidityExcellent)

	b := scorer.Score(&strat, excellentVRP())

	assert.InDelta(t, 21.0, b.POP, 1e-9)       // 0.70 x 30
	assert.InDelta(t, 25.0, b.Liquidity, 1e-9) // full weight
	assert.InDelta(t, 20.0, b.VRPEdge, 1e-9)   // 11.4x is far past the cap
	// credit 1.40 against 3.60 risk is 0.389 RR, 78% of the 0.50 target
	assert.InDelta(t, (1.40/3.60)/0.50*15.0, b.RewardRisk, 1e-9)
	assert.InDelta(t, 10.0, b.Greeks, 1e-9) // positive theta, short vega
	assert.InDelta(t, b.POP+b.Liquidity+b.VRPEdge+b.RewardRisk+b.Greeks, b.Total, 1e-9)
	assert.Equal(t, b.Total, strat.Score)
}

// An EXCELLENT-liquidity strategy must beat an otherwise-identical WARNING
// one by exactly half the liquidity weight: 12.5 points under the balanced
// profile's 25% liquidity weight.
func TestScore_WarningLiquidityHalfPenalty(t *testing.T) {
	scorer := NewScorer(config.BalancedProfile())
	vrp := excellentVRP()

	clean := condorAt(0.70, model.LiquidityExcellent)
	thin := condorAt(0.70, model.LiquidityWarning)

	scorer.Score(&clean, vrp)
	scorer.Score(&thin, vrp)

	assert.InDelta(t, 12.5, clean.Score-thin.Score, 1e-9)
	assert.True(t, strings.HasPrefix(thin.Rationale, "WARNING liquidity"),
		"thin-market rationale must lead with the tier, got %q", thin.Rationale)
	assert.False(t, strings.Contains(clean.Rationale, "liquidity"),
		"healthy liquidity should not clutter the rationale, got %q", clean.Rationale)
}

// No liquidity assessment attached means full liquidity weight. Older runs
// persisted strategies without assessments and re-scoring them must not
// punish the gap.
func TestScore_MissingLiquidityDefaultsToFullWeight(t *testing.T) {
	scorer := NewScorer(config.BalancedProfile())
	vrp := excellentVRP()

	assessed := condorAt(0.70, model.LiquidityExcellent)
	unassessed := condorAt(0.70, "")
	require.Nil(t, unassessed.Liquidity)

	scorer.Score(&assessed, vrp)
	scorer.Score(&unassessed, vrp)

	assert.InDelta(t, assessed.Score, unassessed.Score, 1e-9)
}

func TestScore_MissingGreeksRedistributesWeight(t *testing.T) {
	scorer := NewScorer(config.BalancedProfile())
	strat := condorAt(0.80, model.LiquidityExcellent)
	strat.Greeks = nil

	b := scorer.Score(&strat, excellentVRP())

	// The other four components scale by 1/0.9 so the Greeks weight is
	// shared out instead of silently zeroed.
	assert.Zero(t, b.Greeks)
	assert.InDelta(t, 0.80*30/0.9, b.POP, 1e-9)
	assert.InDelta(t, 25/0.9, b.Liquidity, 1e-9)
	assert.InDelta(t, 20/0.9, b.VRPEdge, 1e-9)
}

func TestScore_VRPSubScoreScalesLinearlyToCap(t *testing.T) {
	profile := config.BalancedProfile() // GOOD at 2.5, cap at 2.5 x 2.0 = 5.0
	scorer := NewScorer(profile)

	cases := []struct {
		ratio float64
		want  float64
	}{
		{2.5, 0},     // at the GOOD threshold the edge component starts from zero
		{3.75, 10.0}, // midway to the cap, half the 20-point weight
		{5.0, 20.0},
		{11.4, 20.0}, // capped, a monster ratio earns no extra points
	}
	for _, tc := range cases {
		strat := condorAt(0.70, model.LiquidityExcellent)
		vrp := excellentVRP()
		vrp.Ratio = tc.ratio
		b := scorer.Score(&strat, vrp)
		assert.InDeltaf(t, tc.want, b.VRPEdge, 1e-9, "ratio %.2f", tc.ratio)
	}
}

func TestScore_CappedAtHundred(t *testing.T) {
	scorer := NewScorer(config.BalancedProfile())
	strat := condorAt(1.0, model.LiquidityExcellent)
	strat.NetCredit = 2.50 // 1:1 reward/risk, double the target

	b := scorer.Score(&strat, excellentVRP())

	assert.InDelta(t, 100.0, b.Total, 1e-9)
	assert.LessOrEqual(t, strat.Score, 100.0)
}

func TestRank_DescendingWithPOPTieBreak(t *testing.T) {
	// Zero POP weight makes the two condors score identically, so the
	// ordering has to come from the tie-break.
	profile := config.BalancedProfile()
	profile.Weights = config.ScoreWeights{
		POP:        0,
		Liquidity:  0.40,
		VRPEdge:    0.25,
		RewardRisk: 0.25,
		Greeks:     0.10,
	}
	scorer := NewScorer(profile)

	safer := condorAt(0.82, model.LiquidityExcellent)
	riskier := condorAt(0.64, model.LiquidityExcellent)
	thin := condorAt(0.90, model.LiquidityWarning)

	ranked := scorer.Rank([]model.Strategy{riskier, thin, safer}, excellentVRP())

	require.Len(t, ranked, 3)
	assert.Equal(t, 0.82, ranked[0].POP, "equal scores break toward higher POP")
	assert.Equal(t, 0.64, ranked[1].POP)
	assert.Equal(t, 0.90, ranked[2].POP, "thin market ranks last despite the best POP")
	assert.GreaterOrEqual(t, ranked[0].Score, ranked[1].Score)
	assert.GreaterOrEqual(t, ranked[1].Score, ranked[2].Score)
}
