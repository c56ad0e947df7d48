package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContracts_FloorsAgainstBudget(t *testing.T) {
	s := NewSizer(2000, 20)

	// $430 max loss per contract: floor(2000/430) = 4
	assert.Equal(t, 4, s.Contracts(430))
	assert.Equal(t, 20, s.Contracts(10))  // capped
	assert.Equal(t, 1, s.Contracts(5000)) // over budget still sizes one
	assert.Equal(t, 1, s.Contracts(0))
}

func TestSummarize(t *testing.T) {
	s := NewSizer(2000, 20)

	// 4 contracts of a 5-wide spread sold for 0.70
	summary := s.Summarize(0.70, 4.30, 4)
	assert.InDelta(t, 280.0, summary.CreditReceived, 1e-9)
	assert.InDelta(t, 1720.0, summary.DollarsAtRisk, 1e-9)
	assert.InDelta(t, 86.0, summary.BudgetUsedPct, 1e-9)
}
