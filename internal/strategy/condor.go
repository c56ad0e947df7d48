package strategy

import (
	"math"

	"ivcrush/pkg/model"
)

// buildIronCondor sells a put and a call at the target delta with long wings
// one spread width further out on each side. Max loss is governed by the
// wider of the two spreads.
func (c *Constructor) buildIronCondor(chain *model.OptionChain, implied *model.ImpliedMoveResult) (*model.Strategy, error) {
	shortPut, err := c.shortStrike(chain, model.Put, implied)
	if err != nil {
		return nil, err
	}
	shortCall, err := c.shortStrike(chain, model.Call, implied)
	if err != nil {
		return nil, err
	}
	longPut, err := c.wing(chain, model.Put, shortPut.Strike, c.profile.WingIncrements, -1)
	if err != nil {
		return nil, err
	}
	longCall, err := c.wing(chain, model.Call, shortCall.Strike, c.profile.WingIncrements, +1)
	if err != nil {
		return nil, err
	}

	netCredit := shortPut.Mid() + shortCall.Mid() - longPut.Mid() - longCall.Mid()
	width := math.Max(shortPut.Strike-longPut.Strike, longCall.Strike-shortCall.Strike)

	// Probability price finishes between the short strikes, from the two
	// short deltas
	pop := clamp01(1 -
		absDelta(shortPut, implied.Spot, implied.StraddleCost) -
		absDelta(shortCall, implied.Spot, implied.StraddleCost))

	s := &model.Strategy{
		Type:       model.IronCondor,
		Ticker:     chain.Ticker,
		Expiration: chain.Expiration,
		Legs: []model.StrategyLeg{
			leg(longPut, model.LongLeg),
			leg(shortPut, model.ShortLeg),
			leg(shortCall, model.ShortLeg),
			leg(longCall, model.LongLeg),
		},
		POP:        pop,
		BreakEvens: []float64{shortPut.Strike - netCredit, shortCall.Strike + netCredit},
	}
	return c.finalize(s, netCredit, width)
}
