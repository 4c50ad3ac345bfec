// Package ledger holds the runtime record stores: an append-only,
// bounded activity ledger and the monitor registry. Both are safe for
// concurrent use from many monitor loops.
package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"sentinelwatch/internal/model"
)

// DefaultCap bounds the trailing activity window.
const DefaultCap = 1000

// ActivityLedger is the append-only record of check cycles.
type ActivityLedger interface {
	Append(ctx context.Context, activity model.Activity) error
	RecentFor(ctx context.Context, monitorID string, n int) ([]model.Activity, error)
	Stats(ctx context.Context, monitorID string) (Stats, error)
}

// Stats summarises ledger contents, optionally per monitor.
type Stats struct {
	Total     int
	Success   int
	Failed    int
	Alerts    int
	FeesPaid  decimal.Decimal
	LastCheck time.Time
}

// Memory is the in-process ledger with a bounded trailing window:
// once cap is reached the oldest entries are evicted.
type Memory struct {
	mu      sync.RWMutex
	cap     int
	entries []model.Activity
}

// NewMemory builds an in-memory ledger. cap <= 0 means DefaultCap.
func NewMemory(cap int) *Memory {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &Memory{cap: cap}
}

// Append records one activity, evicting the oldest past the cap.
func (m *Memory) Append(_ context.Context, activity model.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, activity)
	if overflow := len(m.entries) - m.cap; overflow > 0 {
		m.entries = append(m.entries[:0:0], m.entries[overflow:]...)
	}
	return nil
}

// RecentFor returns up to n activities for a monitor, newest first.
func (m *Memory) RecentFor(_ context.Context, monitorID string, n int) ([]model.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n <= 0 {
		n = len(m.entries)
	}
	out := make([]model.Activity, 0, n)
	for i := len(m.entries) - 1; i >= 0 && len(out) < n; i-- {
		if m.entries[i].MonitorID == monitorID {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

// Stats aggregates over the window; empty monitorID covers everything.
func (m *Memory) Stats(_ context.Context, monitorID string) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{FeesPaid: decimal.Zero}
	for _, activity := range m.entries {
		if monitorID != "" && activity.MonitorID != monitorID {
			continue
		}
		stats.Total++
		switch activity.Status {
		case model.StatusFailed:
			stats.Failed++
		case model.StatusAlert:
			stats.Alerts++
			stats.Success++
		default:
			stats.Success++
		}
		stats.FeesPaid = stats.FeesPaid.Add(activity.FeePaid)
		if activity.Timestamp.After(stats.LastCheck) {
			stats.LastCheck = activity.Timestamp
		}
	}
	return stats, nil
}

// Len reports the current window size.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ ActivityLedger = (*Memory)(nil)
