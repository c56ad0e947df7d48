// Package strategy constructs defined-risk multi-leg option structures from
// a classified option chain: credit spreads, iron condors and iron
// butterflies sized against a dollar risk budget.
package strategy

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"ivcrush/internal/config"
	"ivcrush/internal/liquidity"
	"ivcrush/internal/position"
	"ivcrush/pkg/model"
)

// Constructor builds candidate strategies for one analysis run
type Constructor struct {
	profile config.Profile
	sizer   *position.Sizer
}

// NewConstructor creates a constructor for the given profile and risk budget
func NewConstructor(profile config.Profile, riskBudget float64) *Constructor {
	return &Constructor{
		profile: profile,
		sizer:   position.NewSizer(riskBudget, profile.MaxContracts),
	}
}

// Build produces zero or more candidate structures. The selection policy is
// evaluated in order, first match wins:
//
//  1. EXCELLENT VRP, neutral bias: iron butterfly with tight wings; if wing
//     liquidity rejects, widen by one increment and retry once, then fall
//     back to an iron condor. A viable condor is kept alongside a viable
//     butterfly so ranking has something to compare.
//  2. GOOD or better VRP, neutral bias: iron condor.
//  3. Bullish bias: bull put spread. Bearish bias: bear call spread.
//     Directional structures still require GOOD or better VRP.
//
// An empty slice is the explicit no-trade signal, never an error.
func (c *Constructor) Build(chain *model.OptionChain, implied *model.ImpliedMoveResult, vrp *model.VRPResult, bias model.Bias) []model.Strategy {
	candidates := []model.Strategy{}
	if vrp == nil || implied == nil {
		return candidates
	}

	switch {
	case bias == model.Neutral && vrp.Tier == model.VRPExcellent:
		if fly := c.buildButterflyWithRetry(chain, implied); fly != nil {
			candidates = append(candidates, *fly)
		}
		if condor := c.accept(c.buildIronCondor(chain, implied)); condor != nil {
			candidates = append(candidates, *condor)
		}

	case bias == model.Neutral && vrp.Tier == model.VRPGood:
		if condor := c.accept(c.buildIronCondor(chain, implied)); condor != nil {
			candidates = append(candidates, *condor)
		}

	case bias == model.Bullish && vrp.Tier.AtLeast(model.VRPGood):
		if spread := c.accept(c.buildBullPut(chain, implied)); spread != nil {
			candidates = append(candidates, *spread)
		}

	case bias == model.Bearish && vrp.Tier.AtLeast(model.VRPGood):
		if spread := c.accept(c.buildBearCall(chain, implied)); spread != nil {
			candidates = append(candidates, *spread)
		}
	}

	return candidates
}

// buildButterflyWithRetry widens the wings once before giving up on the fly
func (c *Constructor) buildButterflyWithRetry(chain *model.OptionChain, implied *model.ImpliedMoveResult) *model.Strategy {
	fly, err := c.buildIronButterfly(chain, implied, c.profile.WingIncrements)
	if err == nil && fly.Liquidity.Overall != model.LiquidityReject {
		return fly
	}
	fly, err = c.buildIronButterfly(chain, implied, c.profile.WingIncrements+1)
	if err == nil && fly.Liquidity.Overall != model.LiquidityReject {
		return fly
	}
	return nil
}

// accept drops structures whose liquidity assessment rejects them
func (c *Constructor) accept(s *model.Strategy, err error) *model.Strategy {
	if err != nil || s == nil {
		return nil
	}
	if s.Liquidity != nil && s.Liquidity.Overall == model.LiquidityReject {
		return nil
	}
	return s
}

// finalize classifies liquidity, sizes contracts and fills dollar totals.
// netCredit and width are per-share amounts for one contract.
func (c *Constructor) finalize(s *model.Strategy, netCredit, width float64) (*model.Strategy, error) {
	if netCredit <= 0 {
		return nil, fmt.Errorf("structure prices for a debit (%.2f)", netCredit)
	}
	if width <= netCredit {
		return nil, fmt.Errorf("credit %.2f exceeds width %.2f", netCredit, width)
	}

	maxLossPerShare := width - netCredit
	contracts := c.sizer.Contracts(maxLossPerShare * 100)

	s.Contracts = contracts
	s.NetCredit = netCredit
	s.SpreadWidth = width
	s.MaxProfit = netCredit * 100 * float64(contracts)
	s.MaxLoss = maxLossPerShare * 100 * float64(contracts)
	s.Greeks = aggregateGreeks(s.Legs)
	s.Liquidity = liquidity.Classify(s.Legs, c.profile)

	summary := c.sizer.Summarize(netCredit, maxLossPerShare, contracts)
	s.Position = &model.PositionSummary{
		Contracts:      summary.Contracts,
		CreditReceived: summary.CreditReceived,
		DollarsAtRisk:  summary.DollarsAtRisk,
		BudgetUsedPct:  summary.BudgetUsedPct,
	}
	return s, nil
}

// aggregateGreeks nets per-contract Greeks across legs, short legs negated.
// Returns nil when any leg is missing Greeks; scorers then redistribute the
// Greeks weight instead of scoring a fabricated zero.
func aggregateGreeks(legs []model.StrategyLeg) *model.Greeks {
	total := model.Greeks{}
	for _, leg := range legs {
		if leg.Quote.Greeks == nil {
			return nil
		}
		sign := 1.0
		if leg.Direction == model.ShortLeg {
			sign = -1.0
		}
		g := leg.Quote.Greeks
		total.Delta += sign * g.Delta
		total.Gamma += sign * g.Gamma
		total.Theta += sign * g.Theta
		total.Vega += sign * g.Vega
	}
	return &total
}

// absDelta returns |delta| for a quote. When the provider supplied no
// Greeks, it is estimated from moneyness with the straddle cost standing in
// for a one-sigma move.
func absDelta(q model.OptionQuote, spot, sigma float64) float64 {
	if q.Greeks != nil {
		return math.Abs(q.Greeks.Delta)
	}
	if sigma <= 0 {
		return 0.5
	}
	dist := q.Strike - spot
	if q.Side == model.Put {
		dist = spot - q.Strike
	}
	// P(expire in the money) under a normal move approximates |delta|
	return distuv.UnitNormal.CDF(-dist / sigma)
}

// shortStrike picks the out-of-the-money strike whose |delta| is closest to
// the profile target. Puts search below spot, calls above.
func (c *Constructor) shortStrike(chain *model.OptionChain, side model.OptionSide, implied *model.ImpliedMoveResult) (model.OptionQuote, error) {
	var best model.OptionQuote
	bestDiff := math.MaxFloat64
	found := false

	for _, strike := range chain.Strikes(side) {
		if side == model.Put && strike >= implied.Spot {
			continue
		}
		if side == model.Call && strike <= implied.Spot {
			continue
		}
		q, _ := chain.Quote(side, strike)
		if q.Mid() <= 0 {
			continue
		}
		diff := math.Abs(absDelta(q, implied.Spot, implied.StraddleCost) - c.profile.ShortDelta)
		if diff < bestDiff {
			best = q
			bestDiff = diff
			found = true
		}
	}
	if !found {
		return model.OptionQuote{}, fmt.Errorf("no %s strike near %.2f delta", side, c.profile.ShortDelta)
	}
	return best, nil
}

// wing returns the long protection n increments beyond a short strike.
// direction is -1 for puts (further down) and +1 for calls (further up).
func (c *Constructor) wing(chain *model.OptionChain, side model.OptionSide, short float64, n, direction int) (model.OptionQuote, error) {
	strike, ok := chain.OffsetStrike(side, short, n*direction)
	if !ok {
		return model.OptionQuote{}, fmt.Errorf("no %s wing %d increments from %.2f", side, n, short)
	}
	q, _ := chain.Quote(side, strike)
	return q, nil
}

func leg(q model.OptionQuote, direction model.LegDirection) model.StrategyLeg {
	return model.StrategyLeg{
		Side:      q.Side,
		Direction: direction,
		Strike:    q.Strike,
		Quantity:  1,
		Quote:     q,
	}
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
