package model

import "time"

// OptionSide identifies the call/put side of a contract
type OptionSide string

const (
	Call OptionSide = "call"
	Put  OptionSide = "put"
)

// Greeks holds per-contract sensitivity measures
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
}

// OptionQuote is an immutable snapshot of one strike/side of an option chain.
// It is owned by the chain that produced it and never mutated after retrieval.
type OptionQuote struct {
	Symbol       string     `json:"symbol"`
	Side         OptionSide `json:"side"`
	Strike       float64    `json:"strike"`
	Bid          float64    `json:"bid"`
	Ask          float64    `json:"ask"`
	Last         float64    `json:"last"`
	IV           float64    `json:"iv"`
	OpenInterest int        `json:"open_interest"`
	Volume       int        `json:"volume"`
	Greeks       *Greeks    `json:"greeks,omitempty"` // nil when the provider has no Greeks
}

// Mid returns the bid/ask midpoint, falling back to the last trade price
// when either side of the market is missing.
func (q OptionQuote) Mid() float64 {
	if q.Bid <= 0 || q.Ask <= 0 {
		return q.Last
	}
	return (q.Bid + q.Ask) / 2
}

// SpreadPct returns the bid/ask spread as a percentage of the midpoint.
// A one-sided or empty market reports 100%.
func (q OptionQuote) SpreadPct() float64 {
	if q.Bid <= 0 || q.Ask <= 0 {
		return 100.0
	}
	mid := (q.Bid + q.Ask) / 2
	if mid <= 0 {
		return 100.0
	}
	return (q.Ask - q.Bid) / mid * 100.0
}

// EarningsSession indicates when during the day earnings are reported
type EarningsSession string

const (
	BeforeOpen EarningsSession = "BMO"
	AfterClose EarningsSession = "AMC"
)

// EarningsEvent is one upcoming earnings report for a ticker
type EarningsEvent struct {
	Ticker  string          `json:"ticker"`
	Name    string          `json:"name,omitempty"`
	Date    time.Time       `json:"date"`
	Session EarningsSession `json:"session"`
}

// HistoricalMove is one past earnings event with its realized price reaction
type HistoricalMove struct {
	Ticker    string          `json:"ticker"`
	Date      time.Time       `json:"date"`
	Session   EarningsSession `json:"session"`
	PreClose  float64         `json:"pre_close"`
	PostClose float64         `json:"post_close"`
	MovePct   float64         `json:"move_pct"` // signed percentage move
}

// Direction returns "UP" or "DOWN" for the realized move
func (m HistoricalMove) Direction() string {
	if m.MovePct >= 0 {
		return "UP"
	}
	return "DOWN"
}

// MoveStats summarizes a ticker's realized earnings moves over a lookback window
type MoveStats struct {
	Events         int     `json:"events"`
	MeanAbsPct     float64 `json:"mean_abs_pct"`
	WeightedAbsPct float64 `json:"weighted_abs_pct"` // recency-weighted mean
	StdDevPct      float64 `json:"std_dev_pct"`
	Consistency    float64 `json:"consistency"` // inverse CV, clamped to [0,1]
	LargestMovePct float64 `json:"largest_move_pct"`
	UpCount        int     `json:"up_count"`
	DownCount      int     `json:"down_count"`
}

// ImpliedMoveResult is the market-implied post-earnings move derived from
// the ATM straddle. Derived value, never persisted on its own.
type ImpliedMoveResult struct {
	Spot           float64 `json:"spot"`
	ATMStrike      float64 `json:"atm_strike"`
	StraddleCost   float64 `json:"straddle_cost"`
	ImpliedMovePct float64 `json:"implied_move_pct"`
}

// VRPTier classifies the volatility-risk-premium edge
type VRPTier string

const (
	VRPSkip      VRPTier = "SKIP"
	VRPMarginal  VRPTier = "MARGINAL"
	VRPGood      VRPTier = "GOOD"
	VRPExcellent VRPTier = "EXCELLENT"
)

// severity orders VRP tiers from no edge to best edge
func (t VRPTier) severity() int {
	switch t {
	case VRPMarginal:
		return 1
	case VRPGood:
		return 2
	case VRPExcellent:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether the tier is at or above the given tier
func (t VRPTier) AtLeast(other VRPTier) bool {
	return t.severity() >= other.severity()
}

// VRPResult is the implied-vs-historical comparison for one ticker/event
type VRPResult struct {
	ImpliedMovePct    float64 `json:"implied_move_pct"`
	HistoricalMeanPct float64 `json:"historical_mean_pct"`
	Ratio             float64 `json:"ratio"`
	Tier              VRPTier `json:"tier"`
	EdgeScore         float64 `json:"edge_score"`
	Consistency       float64 `json:"consistency"`
	Events            int     `json:"events"`
}

// Bias is the directional view supplied by the caller
type Bias string

const (
	Bullish Bias = "BULLISH"
	Bearish Bias = "BEARISH"
	Neutral Bias = "NEUTRAL"
)

// Candle is one daily OHLCV bar, used to bracket past earnings dates
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}
