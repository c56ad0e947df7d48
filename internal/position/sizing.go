// Package position sizes defined-risk option structures against a dollar
// risk budget.
package position

import "math"

// Sizer computes contract counts for defined-risk structures. Max loss per
// contract is known up front, so sizing is a straight division against the
// budget rather than a stop-distance calculation.
type Sizer struct {
	RiskBudget   float64 // max dollars at risk for the position
	MaxContracts int
}

// NewSizer creates a sizer with the given budget and contract cap
func NewSizer(riskBudget float64, maxContracts int) *Sizer {
	if maxContracts < 1 {
		maxContracts = 1
	}
	return &Sizer{
		RiskBudget:   riskBudget,
		MaxContracts: maxContracts,
	}
}

// Contracts returns floor(budget / max loss per contract), at least 1 and at
// most the configured cap. A single contract is always allowed even when it
// exceeds the budget; callers see the overshoot in BudgetUsedPct.
func (s *Sizer) Contracts(maxLossPerContract float64) int {
	if maxLossPerContract <= 0 {
		return 1
	}
	n := int(math.Floor(s.RiskBudget / maxLossPerContract))
	if n < 1 {
		n = 1
	}
	if n > s.MaxContracts {
		n = s.MaxContracts
	}
	return n
}

// Summary is the dollar view of a sized position
type Summary struct {
	Contracts      int
	CreditReceived float64
	DollarsAtRisk  float64
	BudgetUsedPct  float64
}

// Summarize computes position dollars for a credit structure. netCredit and
// maxLoss are per-share amounts for one contract (x100 multiplier applies).
func (s *Sizer) Summarize(netCredit, maxLoss float64, contracts int) Summary {
	risk := maxLoss * 100 * float64(contracts)
	used := 0.0
	if s.RiskBudget > 0 {
		used = risk / s.RiskBudget * 100
	}
	return Summary{
		Contracts:      contracts,
		CreditReceived: netCredit * 100 * float64(contracts),
		DollarsAtRisk:  risk,
		BudgetUsedPct:  used,
	}
}
