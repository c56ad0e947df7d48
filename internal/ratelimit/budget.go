package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// ErrBudgetExhausted is returned once a provider's daily request budget is
// spent. Callers should fall back to the next provider rather than retry.
type ErrBudgetExhausted struct {
	Provider string
	PerDay   int
}

func (e *ErrBudgetExhausted) Error() string {
	return fmt.Sprintf("%s: daily request budget of %d exhausted", e.Provider, e.PerDay)
}

// Budget counts requests against a per-day allowance that rolls over at
// UTC midnight.
type Budget struct {
	name   string
	perDay int

	mu    sync.Mutex
	day   time.Time // UTC midnight of the day being counted
	spent int

	now func() time.Time // test hook
}

func NewBudget(name string, perDay int) *Budget {
	return &Budget{name: name, perDay: perDay, now: time.Now}
}

// Spend consumes one request from today's allowance
func (b *Budget) Spend() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()
	if b.spent >= b.perDay {
		return &ErrBudgetExhausted{Provider: b.name, PerDay: b.perDay}
	}
	b.spent++
	return nil
}

// Remaining reports how many requests are left today
func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()
	return b.perDay - b.spent
}

func (b *Budget) rollover() {
	today := b.now().UTC().Truncate(24 * time.Hour)
	if !today.Equal(b.day) {
		b.day = today
		b.spent = 0
	}
}
