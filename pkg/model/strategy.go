package model

import "time"

// StrategyType identifies a multi-leg structure
type StrategyType string

const (
	BullPutSpread  StrategyType = "BULL_PUT_SPREAD"
	BearCallSpread StrategyType = "BEAR_CALL_SPREAD"
	IronCondor     StrategyType = "IRON_CONDOR"
	IronButterfly  StrategyType = "IRON_BUTTERFLY"
)

// LegDirection marks a leg as bought or sold
type LegDirection string

const (
	LongLeg  LegDirection = "LONG"
	ShortLeg LegDirection = "SHORT"
)

// StrategyLeg is one leg of a multi-leg structure. Quote is the chain
// snapshot the leg was built from.
type StrategyLeg struct {
	Side      OptionSide   `json:"side"`
	Direction LegDirection `json:"direction"`
	Strike    float64      `json:"strike"`
	Quantity  int          `json:"quantity"`
	Quote     OptionQuote  `json:"quote"`
}

// LiquidityTier classifies how tradeable a leg or structure is
type LiquidityTier string

const (
	LiquidityExcellent LiquidityTier = "EXCELLENT"
	LiquidityGood      LiquidityTier = "GOOD"
	LiquidityWarning   LiquidityTier = "WARNING"
	LiquidityReject    LiquidityTier = "REJECT"
)

// Severity orders liquidity tiers from best (0) to rejected (3)
func (t LiquidityTier) Severity() int {
	switch t {
	case LiquidityExcellent:
		return 0
	case LiquidityGood:
		return 1
	case LiquidityWarning:
		return 2
	default:
		return 3
	}
}

// WorseLiquidity returns the more severe of two tiers. Tiers are never
// averaged; one bad leg drags the whole structure down.
func WorseLiquidity(a, b LiquidityTier) LiquidityTier {
	if a.Severity() >= b.Severity() {
		return a
	}
	return b
}

// LegLiquidity is the per-leg breakdown behind an assessment
type LegLiquidity struct {
	Side         OptionSide    `json:"side"`
	Strike       float64       `json:"strike"`
	OpenInterest int           `json:"open_interest"`
	Volume       int           `json:"volume"`
	SpreadPct    float64       `json:"spread_pct"`
	OITier       LiquidityTier `json:"oi_tier"`
	SpreadTier   LiquidityTier `json:"spread_tier"`
	Tier         LiquidityTier `json:"tier"`
}

// LiquidityAssessment summarizes tradeability across all legs of a structure
type LiquidityAssessment struct {
	Legs            []LegLiquidity `json:"legs"`
	MinOpenInterest int            `json:"min_open_interest"`
	MinVolume       int            `json:"min_volume"`
	MaxSpreadPct    float64        `json:"max_spread_pct"`
	Overall         LiquidityTier  `json:"overall"`
	Reason          string         `json:"reason,omitempty"`
}

// PositionSummary is the dollar view of a sized position
type PositionSummary struct {
	Contracts      int     `json:"contracts"`
	CreditReceived float64 `json:"credit_received"`
	DollarsAtRisk  float64 `json:"dollars_at_risk"`
	BudgetUsedPct  float64 `json:"budget_used_pct"`
}

// Strategy is a concrete multi-leg construction. All fields are write-once
// except Score and Rationale, which the scorer fills in after construction.
type Strategy struct {
	Type       StrategyType  `json:"type"`
	Ticker     string        `json:"ticker"`
	Expiration time.Time     `json:"expiration"`
	Legs       []StrategyLeg `json:"legs"`
	Contracts  int           `json:"contracts"`

	// Per-share economics of one contract
	NetCredit   float64 `json:"net_credit"`
	SpreadWidth float64 `json:"spread_width"` // wider width for condors/butterflies

	// Dollar totals across all contracts
	MaxProfit float64 `json:"max_profit"`
	MaxLoss   float64 `json:"max_loss"`

	BreakEvens []float64            `json:"break_evens"`
	POP        float64              `json:"pop"`
	Greeks     *Greeks              `json:"greeks,omitempty"` // aggregated per contract, nil without provider Greeks
	Liquidity  *LiquidityAssessment `json:"liquidity,omitempty"`
	Position   *PositionSummary     `json:"position,omitempty"`

	Score     float64 `json:"score"`
	Rationale string  `json:"rationale,omitempty"`
}

// ShortStrikes returns the sold strikes, put side first
func (s Strategy) ShortStrikes() []float64 {
	var put, call []float64
	for _, leg := range s.Legs {
		if leg.Direction != ShortLeg {
			continue
		}
		if leg.Side == Put {
			put = append(put, leg.Strike)
		} else {
			call = append(call, leg.Strike)
		}
	}
	return append(put, call...)
}

// AnalysisResult is the full outcome of one ticker/earnings-date evaluation.
// RankedStrategies may be empty (explicit no-trade) but is never nil.
type AnalysisResult struct {
	Ticker       string    `json:"ticker"`
	EarningsDate time.Time `json:"earnings_date"`
	Expiration   time.Time `json:"expiration"`
	Profile      string    `json:"profile"`
	Bias         Bias      `json:"bias"`
	Spot         float64   `json:"spot"`

	ImpliedMove *ImpliedMoveResult `json:"implied_move"`
	MoveStats   *MoveStats         `json:"move_stats"`
	VRP         *VRPResult         `json:"vrp"`

	LiquiditySummary LiquidityTier `json:"liquidity_summary"`
	RankedStrategies []Strategy    `json:"ranked_strategies"`
	NoTradeReason    string        `json:"no_trade_reason,omitempty"`
}

// Recommended returns the top-ranked strategy, nil when no trade cleared the bar
func (r AnalysisResult) Recommended() *Strategy {
	if len(r.RankedStrategies) == 0 {
		return nil
	}
	return &r.RankedStrategies[0]
}
