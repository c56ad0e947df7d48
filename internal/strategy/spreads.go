package strategy

import (
	"ivcrush/pkg/model"
)

// buildBullPut sells a put at the target delta and buys protection one
// spread width lower: profit when the stock holds above the short strike
// through the IV crush.
func (c *Constructor) buildBullPut(chain *model.OptionChain, implied *model.ImpliedMoveResult) (*model.Strategy, error) {
	short, err := c.shortStrike(chain, model.Put, implied)
	if err != nil {
		return nil, err
	}
	long, err := c.wing(chain, model.Put, short.Strike, c.profile.WingIncrements, -1)
	if err != nil {
		return nil, err
	}

	netCredit := short.Mid() - long.Mid()
	width := short.Strike - long.Strike

	s := &model.Strategy{
		Type:       model.BullPutSpread,
		Ticker:     chain.Ticker,
		Expiration: chain.Expiration,
		Legs: []model.StrategyLeg{
			leg(short, model.ShortLeg),
			leg(long, model.LongLeg),
		},
		// Profitable while price stays above short strike; POP from the
		// probability the sold put expires worthless.
		POP:        clamp01(1 - absDelta(short, implied.Spot, implied.StraddleCost)),
		BreakEvens: []float64{short.Strike - netCredit},
	}
	return c.finalize(s, netCredit, width)
}

// buildBearCall mirrors buildBullPut above the money
func (c *Constructor) buildBearCall(chain *model.OptionChain, implied *model.ImpliedMoveResult) (*model.Strategy, error) {
	short, err := c.shortStrike(chain, model.Call, implied)
	if err != nil {
		return nil, err
	}
	long, err := c.wing(chain, model.Call, short.Strike, c.profile.WingIncrements, +1)
	if err != nil {
		return nil, err
	}

	netCredit := short.Mid() - long.Mid()
	width := long.Strike - short.Strike

	s := &model.Strategy{
		Type:       model.BearCallSpread,
		Ticker:     chain.Ticker,
		Expiration: chain.Expiration,
		Legs: []model.StrategyLeg{
			leg(short, model.ShortLeg),
			leg(long, model.LongLeg),
		},
		POP:        clamp01(1 - absDelta(short, implied.Spot, implied.StraddleCost)),
		BreakEvens: []float64{short.Strike + netCredit},
	}
	return c.finalize(s, netCredit, width)
}
