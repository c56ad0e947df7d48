package backtest

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat/distuv"

	"ivcrush/pkg/model"
)

// rootTwoOverPi converts an expected absolute move into a normal sigma:
// E|X| = sigma * sqrt(2/pi) for X ~ N(0, sigma^2).
var rootTwoOverPi = math.Sqrt(2 / math.Pi)

// syntheticChain prices an option chain under a driftless normal model
// calibrated so the ATM straddle equals the given implied move. Historical
// chains are not available from any of our providers, so replayed events
// trade against this reconstruction instead.
//
// Quotes are frictionless on purpose: generous size and tight proportional
// spreads, so liquidity never decides a replayed trade. A backtest against
// synthetic quotes has nothing to say about fills.
func syntheticChain(ticker string, expiration time.Time, spot, impliedPct float64) *model.OptionChain {
	sigma := spot * impliedPct / 100 / rootTwoOverPi
	step := strikeStep(spot)

	low := math.Floor((spot-4*sigma)/step) * step
	high := math.Ceil((spot+4*sigma)/step) * step
	if low < step {
		low = step
	}

	var quotes []model.OptionQuote
	for strike := low; strike <= high+step/2; strike += step {
		d := (spot - strike) / sigma
		pdf := distuv.UnitNormal.Prob(d)
		cdf := distuv.UnitNormal.CDF(d)

		call := (spot-strike)*cdf + sigma*pdf
		put := call - (spot - strike)
		vega := pdf * sigma / 10 // peaked ATM; only relative shape matters
		gamma := pdf / sigma

		quotes = append(quotes,
			synthQuote(model.Call, strike, call, cdf, vega, gamma),
			synthQuote(model.Put, strike, put, cdf-1, vega, gamma),
		)
	}
	return model.NewOptionChain(ticker, expiration, spot, quotes)
}

func synthQuote(side model.OptionSide, strike, mid, delta, vega, gamma float64) model.OptionQuote {
	half := mid * 0.02
	return model.OptionQuote{
		Side:         side,
		Strike:       strike,
		Bid:          mid - half,
		Ask:          mid + half,
		OpenInterest: 5000,
		Volume:       1000,
		Greeks: &model.Greeks{
			Delta: delta,
			Gamma: gamma,
			Theta: -vega,
			Vega:  vega,
		},
	}
}

func strikeStep(spot float64) float64 {
	switch {
	case spot < 25:
		return 0.5
	case spot <= 100:
		return 1
	case spot < 250:
		return 2.5
	default:
		return 5
	}
}
