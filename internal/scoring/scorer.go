// Package scoring turns constructed strategies into a 0-100 composite score
// and a ranked list. Weights come from the active profile; the scorer never
// hardcodes a weight set.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"ivcrush/internal/config"
	"ivcrush/pkg/model"
)

// Breakdown carries the per-component contributions behind one score,
// already scaled to score points (0-100 total).
type Breakdown struct {
	POP        float64 `json:"pop"`
	Liquidity  float64 `json:"liquidity"`
	VRPEdge    float64 `json:"vrp_edge"`
	RewardRisk float64 `json:"reward_risk"`
	Greeks     float64 `json:"greeks"`
	Total      float64 `json:"total"`
}

// Scorer scores and ranks strategies under one profile
type Scorer struct {
	profile config.Profile
}

func NewScorer(profile config.Profile) *Scorer {
	return &Scorer{profile: profile}
}

// Score computes the composite score for one strategy, fills in its Score
// and Rationale fields, and returns the component breakdown.
//
// Two documented defaults apply, both kept for compatibility with earlier
// result data and covered by tests:
//   - a strategy with no liquidity assessment attached scores full liquidity
//     weight, as if EXCELLENT
//   - a strategy with no aggregated Greeks has the Greeks weight
//     redistributed proportionally across the remaining components
func (s *Scorer) Score(strat *model.Strategy, vrp *model.VRPResult) Breakdown {
	w := s.profile.Weights
	scale := 1.0
	if strat.Greeks == nil && w.Greeks < 1 {
		scale = 1 / (1 - w.Greeks)
	}

	var b Breakdown
	b.POP = clamp01(strat.POP) * w.POP * scale * 100
	b.Liquidity = liquidityFraction(strat.Liquidity) * w.Liquidity * scale * 100
	b.VRPEdge = s.vrpFraction(vrp) * w.VRPEdge * scale * 100
	b.RewardRisk = s.rewardRiskFraction(strat) * w.RewardRisk * scale * 100
	if strat.Greeks != nil {
		b.Greeks = greeksFraction(*strat.Greeks) * w.Greeks * 100
	}

	b.Total = b.POP + b.Liquidity + b.VRPEdge + b.RewardRisk + b.Greeks
	if b.Total > 100 {
		b.Total = 100
	}

	strat.Score = b.Total
	strat.Rationale = s.rationale(strat, vrp)
	return b
}

// Rank scores every strategy and sorts descending by score, breaking ties
// with the higher probability of profit. The input slice is sorted in place
// and returned.
func (s *Scorer) Rank(strategies []model.Strategy, vrp *model.VRPResult) []model.Strategy {
	for i := range strategies {
		s.Score(&strategies[i], vrp)
	}
	sort.SliceStable(strategies, func(i, j int) bool {
		if strategies[i].Score != strategies[j].Score {
			return strategies[i].Score > strategies[j].Score
		}
		return strategies[i].POP > strategies[j].POP
	})
	return strategies
}

// liquidityFraction maps the overall tier to its share of the liquidity
// weight. REJECT strategies are normally filtered before scoring; the zero
// here is a backstop, not the primary filter.
func liquidityFraction(a *model.LiquidityAssessment) float64 {
	if a == nil {
		return 1.0
	}
	switch a.Overall {
	case model.LiquidityExcellent:
		return 1.0
	case model.LiquidityGood:
		return 0.8
	case model.LiquidityWarning:
		return 0.5
	default:
		return 0
	}
}

// vrpFraction scales linearly from zero at the GOOD ratio threshold to full
// weight at GoodRatio x VRPCapMultiple, capped beyond that.
func (s *Scorer) vrpFraction(vrp *model.VRPResult) float64 {
	if vrp == nil {
		return 0
	}
	lo := s.profile.GoodRatio
	hi := lo * s.profile.VRPCapMultiple
	if hi <= lo {
		return 0
	}
	return clamp01((vrp.Ratio - lo) / (hi - lo))
}

// rewardRiskFraction scales credit/max-loss toward the profile target
func (s *Scorer) rewardRiskFraction(strat *model.Strategy) float64 {
	risk := strat.SpreadWidth - strat.NetCredit
	if risk <= 0 || s.profile.TargetRR <= 0 {
		return 0
	}
	return clamp01((strat.NetCredit / risk) / s.profile.TargetRR)
}

// greeksFraction rewards the short-premium shape: positive theta earns half
// the weight, short (negative) vega earns the other half.
func greeksFraction(g model.Greeks) float64 {
	f := 0.0
	if g.Theta > 0 {
		f += 0.5
	}
	if g.Vega < 0 {
		f += 0.5
	}
	return f
}

// rationale builds the one-line explanation attached to each strategy.
// When liquidity is WARNING or REJECT that fact leads the sentence; a thin
// market is never buried behind the edge numbers.
func (s *Scorer) rationale(strat *model.Strategy, vrp *model.VRPResult) string {
	var parts []string
	if strat.Liquidity != nil && strat.Liquidity.Overall.Severity() >= model.LiquidityWarning.Severity() {
		clause := fmt.Sprintf("%s liquidity", strat.Liquidity.Overall)
		if strat.Liquidity.Reason != "" {
			clause += ": " + strat.Liquidity.Reason
		}
		parts = append(parts, clause)
	}
	if vrp != nil {
		parts = append(parts, fmt.Sprintf("%s VRP at %.1fx implied/historical", vrp.Tier, vrp.Ratio))
	}
	parts = append(parts, fmt.Sprintf("POP %.0f%%", strat.POP*100))
	risk := strat.SpreadWidth - strat.NetCredit
	if risk > 0 {
		parts = append(parts, fmt.Sprintf("collects %.2f against %.2f risk per share", strat.NetCredit, risk))
	}
	return strings.Join(parts, "; ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
