package resilience

import "sync/atomic"

// Budget caps the number of model calls made during one run. A limit of zero
// or less means unlimited. Safe for concurrent use.
type Budget struct {
	limit int64
	used  atomic.Int64
}

// NewBudget creates a call budget.
func NewBudget(limit int) *Budget {
	return &Budget{limit: int64(limit)}
}

// Acquire reserves one call or returns a *BudgetExceededError.
func (b *Budget) Acquire() error {
	if b == nil || b.limit <= 0 {
		return nil
	}
	if n := b.used.Add(1); n > b.limit {
		b.used.Add(-1)
		return &BudgetExceededError{Limit: int(b.limit)}
	}
	return nil
}

// Used returns the number of calls reserved so far.
func (b *Budget) Used() int {
	if b == nil {
		return 0
	}
	return int(b.used.Load())
}

// Remaining returns the calls left, or -1 when unlimited.
func (b *Budget) Remaining() int {
	if b == nil || b.limit <= 0 {
		return -1
	}
	return int(b.limit - b.used.Load())
}
