package dom

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Budget is the page-wide conversion circuit breaker: a monotonically
// increasing operation counter with a fixed ceiling. Once tripped it never
// resets; existing conversions stay intact, new ones stop. It caps
// worst-case cost on pathological pages and is the backstop if the
// watcher's suppression bracket ever fails.
type Budget struct {
	ceiling int64
	used    atomic.Int64
	tripLog sync.Once
	logger  *slog.Logger
}

// NewBudget creates a Budget. A ceiling <= 0 selects the default of 5000
// operations.
func NewBudget(ceiling int64, logger *slog.Logger) *Budget {
	if ceiling <= 0 {
		ceiling = 5000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Budget{ceiling: ceiling, logger: logger}
}

// Spend consumes n operations. It returns false, logging once, when the
// ceiling has been reached; the caller must stop converting.
func (b *Budget) Spend(n int64) bool {
	if b.used.Add(n) > b.ceiling {
		b.tripLog.Do(func() {
			b.logger.Warn("dom: operation budget exceeded, halting conversions",
				"ceiling", b.ceiling)
		})
		return false
	}
	return true
}

// Tripped reports whether the ceiling has been reached.
func (b *Budget) Tripped() bool { return b.used.Load() > b.ceiling }

// Used returns the operations consumed so far.
func (b *Budget) Used() int64 { return b.used.Load() }
