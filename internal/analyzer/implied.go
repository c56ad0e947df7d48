package analyzer

import (
	"fmt"
	"math"

	"ivcrush/internal/config"
	"ivcrush/pkg/model"
)

// ImpliedMove derives the market's expected post-earnings percentage move
// from the ATM straddle: the sum of the ATM call and put mid-prices divided
// by spot. Mid falls back to the last trade when either bid or ask is zero.
func ImpliedMove(chain *model.OptionChain, spot float64, profile config.Profile) (*model.ImpliedMoveResult, error) {
	if spot <= 0 {
		return nil, fmt.Errorf("%w: spot price %.2f", ErrInsufficientData, spot)
	}
	if chain.PairsNear(spot, profile.ATMRangePct) < 1 {
		return nil, fmt.Errorf("%w: no call/put pair within %.1f%% of spot", ErrInsufficientData, profile.ATMRangePct)
	}

	atm, ok := chain.ATMStrike(spot)
	if !ok {
		return nil, fmt.Errorf("%w: no strike listed on both sides", ErrInsufficientData)
	}
	if math.Abs(atm-spot)/spot*100.0 > profile.ATMRangePct {
		return nil, fmt.Errorf("%w: nearest strike %.2f is %.1f%% from spot", ErrInsufficientData,
			atm, math.Abs(atm-spot)/spot*100.0)
	}

	call, _ := chain.Quote(model.Call, atm)
	put, _ := chain.Quote(model.Put, atm)

	straddle := call.Mid() + put.Mid()
	if straddle <= 0 {
		return nil, fmt.Errorf("%w: no usable prices at strike %.2f", ErrInsufficientData, atm)
	}

	return &model.ImpliedMoveResult{
		Spot:           spot,
		ATMStrike:      atm,
		StraddleCost:   straddle,
		ImpliedMovePct: straddle / spot * 100.0,
	}, nil
}
