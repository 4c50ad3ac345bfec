package oracle

import (
	"context"
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"
)

// Synthetic generates a bounded pseudo-random walk around a baseline.
// It never fails, which makes it the mandatory terminal chain source.
type Synthetic struct {
	baseline decimal.Decimal
	floor    decimal.Decimal
	ceiling  decimal.Decimal

	mu   sync.Mutex
	last decimal.Decimal
	rng  *rand.Rand
}

// NewSynthetic builds the terminal source. The walk stays within
// [0.5, 1.5] times the baseline with steps of at most 2%.
func NewSynthetic(baseline decimal.Decimal, seed int64) *Synthetic {
	if baseline.Sign() <= 0 {
		baseline = decimal.NewFromInt(100)
	}
	half := decimal.NewFromFloat(0.5)
	return &Synthetic{
		baseline: baseline,
		floor:    baseline.Mul(half),
		ceiling:  baseline.Add(baseline.Mul(half)),
		last:     baseline,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Name identifies this source in quotes and logs.
func (s *Synthetic) Name() string { return "synthetic" }

// TryFetch steps the walk and returns the new value. The error is
// always nil.
func (s *Synthetic) TryFetch(_ context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// step in (-2%, +2%)
	step := decimal.NewFromFloat((s.rng.Float64() - 0.5) * 0.04)
	next := s.last.Add(s.last.Mul(step))

	if next.LessThan(s.floor) {
		next = s.floor
	}
	if next.GreaterThan(s.ceiling) {
		next = s.ceiling
	}

	s.last = next
	return next, nil
}

var _ Source = (*Synthetic)(nil)
