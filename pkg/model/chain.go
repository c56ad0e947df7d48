package model

import (
	"math"
	"sort"
	"time"
)

// OptionChain holds all quotes for one ticker/expiration, indexed by strike
// and side. Strikes are sorted ascending and unique per side.
type OptionChain struct {
	Ticker     string    `json:"ticker"`
	Expiration time.Time `json:"expiration"`
	Spot       float64   `json:"spot"`

	Calls []OptionQuote `json:"calls"`
	Puts  []OptionQuote `json:"puts"`
}

// NewOptionChain builds a chain from a flat quote list, splitting by side,
// sorting by strike and dropping duplicate strikes (first one wins).
func NewOptionChain(ticker string, expiration time.Time, spot float64, quotes []OptionQuote) *OptionChain {
	chain := &OptionChain{
		Ticker:     ticker,
		Expiration: expiration,
		Spot:       spot,
	}
	for _, q := range quotes {
		if q.Strike <= 0 {
			continue
		}
		switch q.Side {
		case Call:
			chain.Calls = append(chain.Calls, q)
		case Put:
			chain.Puts = append(chain.Puts, q)
		}
	}
	chain.Calls = normalizeSide(chain.Calls)
	chain.Puts = normalizeSide(chain.Puts)
	return chain
}

func normalizeSide(quotes []OptionQuote) []OptionQuote {
	sort.SliceStable(quotes, func(i, j int) bool {
		return quotes[i].Strike < quotes[j].Strike
	})
	out := quotes[:0]
	var prev float64
	for i, q := range quotes {
		if i > 0 && q.Strike == prev {
			continue
		}
		out = append(out, q)
		prev = q.Strike
	}
	return out
}

// side returns the quote slice for one side
func (c *OptionChain) side(s OptionSide) []OptionQuote {
	if s == Call {
		return c.Calls
	}
	return c.Puts
}

// Quote looks up the quote at an exact strike on one side
func (c *OptionChain) Quote(s OptionSide, strike float64) (OptionQuote, bool) {
	quotes := c.side(s)
	i := sort.Search(len(quotes), func(i int) bool {
		return quotes[i].Strike >= strike
	})
	if i < len(quotes) && quotes[i].Strike == strike {
		return quotes[i], true
	}
	return OptionQuote{}, false
}

// Strikes returns the sorted strike list for one side
func (c *OptionChain) Strikes(s OptionSide) []float64 {
	quotes := c.side(s)
	strikes := make([]float64, len(quotes))
	for i, q := range quotes {
		strikes[i] = q.Strike
	}
	return strikes
}

// ATMStrike returns the strike nearest to spot that is listed on both sides.
// Ties break toward the strike below spot.
func (c *OptionChain) ATMStrike(spot float64) (float64, bool) {
	best := 0.0
	bestDist := math.MaxFloat64
	found := false
	for _, q := range c.Calls {
		if _, ok := c.Quote(Put, q.Strike); !ok {
			continue
		}
		dist := math.Abs(q.Strike - spot)
		better := dist < bestDist
		if dist == bestDist && q.Strike < best {
			better = true
		}
		if better {
			best = q.Strike
			bestDist = dist
			found = true
		}
	}
	return best, found
}

// OffsetStrike returns the strike n increments away from the given strike in
// the listed chain for one side. Negative n walks toward lower strikes.
func (c *OptionChain) OffsetStrike(s OptionSide, from float64, n int) (float64, bool) {
	quotes := c.side(s)
	i := sort.Search(len(quotes), func(i int) bool {
		return quotes[i].Strike >= from
	})
	if i >= len(quotes) || quotes[i].Strike != from {
		return 0, false
	}
	j := i + n
	if j < 0 || j >= len(quotes) {
		return 0, false
	}
	return quotes[j].Strike, true
}

// NearestStrike snaps a target price to the closest listed strike on one side
func (c *OptionChain) NearestStrike(s OptionSide, target float64) (float64, bool) {
	quotes := c.side(s)
	if len(quotes) == 0 {
		return 0, false
	}
	best := quotes[0].Strike
	bestDist := math.Abs(best - target)
	for _, q := range quotes[1:] {
		if d := math.Abs(q.Strike - target); d < bestDist {
			best = q.Strike
			bestDist = d
		}
	}
	return best, true
}

// StrikeIncrement estimates the listing increment around the ATM strike
func (c *OptionChain) StrikeIncrement(spot float64) float64 {
	atm, ok := c.ATMStrike(spot)
	if !ok {
		return 0
	}
	if next, ok := c.OffsetStrike(Call, atm, 1); ok {
		return next - atm
	}
	if prev, ok := c.OffsetStrike(Call, atm, -1); ok {
		return atm - prev
	}
	return 0
}

// PairsNear counts strikes listed on both sides within pct percent of spot
func (c *OptionChain) PairsNear(spot, pct float64) int {
	count := 0
	for _, q := range c.Calls {
		if math.Abs(q.Strike-spot)/spot*100.0 > pct {
			continue
		}
		if _, ok := c.Quote(Put, q.Strike); ok {
			count++
		}
	}
	return count
}
