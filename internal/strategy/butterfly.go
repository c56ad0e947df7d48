package strategy

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"ivcrush/pkg/model"
)

// buildIronButterfly sells the ATM straddle and buys wings wingIncrements
// strikes out on each side. It collects far more credit than a condor in
// exchange for a narrow profit zone, which is why it is reserved for the
// strongest edges.
func (c *Constructor) buildIronButterfly(chain *model.OptionChain, implied *model.ImpliedMoveResult, wingIncrements int) (*model.Strategy, error) {
	atm := implied.ATMStrike

	shortCall, ok := chain.Quote(model.Call, atm)
	if !ok {
		return nil, fmt.Errorf("no call at ATM strike %.2f", atm)
	}
	shortPut, ok := chain.Quote(model.Put, atm)
	if !ok {
		return nil, fmt.Errorf("no put at ATM strike %.2f", atm)
	}
	longPut, err := c.wing(chain, model.Put, atm, wingIncrements, -1)
	if err != nil {
		return nil, err
	}
	longCall, err := c.wing(chain, model.Call, atm, wingIncrements, +1)
	if err != nil {
		return nil, err
	}

	netCredit := shortPut.Mid() + shortCall.Mid() - longPut.Mid() - longCall.Mid()
	width := math.Max(atm-longPut.Strike, longCall.Strike-atm)

	s := &model.Strategy{
		Type:       model.IronButterfly,
		Ticker:     chain.Ticker,
		Expiration: chain.Expiration,
		Legs: []model.StrategyLeg{
			leg(longPut, model.LongLeg),
			leg(shortPut, model.ShortLeg),
			leg(shortCall, model.ShortLeg),
			leg(longCall, model.LongLeg),
		},
		POP:        butterflyPOP(netCredit, implied.StraddleCost),
		BreakEvens: []float64{atm - netCredit, atm + netCredit},
	}
	return c.finalize(s, netCredit, width)
}

// butterflyPOP is the probability price settles between the break-evens.
// Both short strikes sit at the same ATM strike, so the condor's
// short-delta formula degenerates; instead the credit collected defines the
// profit zone and the straddle cost stands in for a one-sigma move.
func butterflyPOP(netCredit, sigma float64) float64 {
	if sigma <= 0 || netCredit <= 0 {
		return 0
	}
	z := netCredit / sigma
	return clamp01(1 - 2*distuv.UnitNormal.CDF(-z))
}
