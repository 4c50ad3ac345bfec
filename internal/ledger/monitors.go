package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"sentinelwatch/internal/model"
)

// ErrMonitorNotFound is returned for lookups of unknown monitor ids.
var ErrMonitorNotFound = errors.New("monitor not found")

// MonitorStore is the registry of configured monitors. Mutation is
// limited to pause/resume and threshold updates; the network binding
// set at creation cannot be changed through this interface.
type MonitorStore interface {
	Put(ctx context.Context, monitor *model.Monitor) error
	Get(ctx context.Context, id string) (*model.Monitor, error)
	List(ctx context.Context) ([]*model.Monitor, error)
	Delete(ctx context.Context, id string) error
	SetActive(ctx context.Context, id string, active bool) error
	UpdateThreshold(ctx context.Context, id string, threshold decimal.Decimal) error
}

// MemoryMonitors is the in-process monitor registry.
type MemoryMonitors struct {
	mu       sync.RWMutex
	monitors map[string]model.Monitor
}

// NewMemoryMonitors builds an empty registry.
func NewMemoryMonitors() *MemoryMonitors {
	return &MemoryMonitors{monitors: make(map[string]model.Monitor)}
}

// Put inserts a monitor. Re-putting an existing id keeps the original
// network binding.
func (s *MemoryMonitors) Put(_ context.Context, monitor *model.Monitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *monitor
	if existing, ok := s.monitors[monitor.ID]; ok {
		stored.Network = existing.Network
		stored.CreatedAt = existing.CreatedAt
	}
	s.monitors[monitor.ID] = stored
	return nil
}

// Get returns a copy of the monitor.
func (s *MemoryMonitors) Get(_ context.Context, id string) (*model.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	monitor, ok := s.monitors[id]
	if !ok {
		return nil, ErrMonitorNotFound
	}
	copied := monitor
	return &copied, nil
}

// List returns copies of all monitors ordered by creation time.
func (s *MemoryMonitors) List(_ context.Context) ([]*model.Monitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Monitor, 0, len(s.monitors))
	for _, monitor := range s.monitors {
		copied := monitor
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes a monitor; its activity history is orphaned, not
// deleted.
func (s *MemoryMonitors) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.monitors[id]; !ok {
		return ErrMonitorNotFound
	}
	delete(s.monitors, id)
	return nil
}

// SetActive pauses or resumes a monitor.
func (s *MemoryMonitors) SetActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	monitor, ok := s.monitors[id]
	if !ok {
		return ErrMonitorNotFound
	}
	monitor.Active = active
	s.monitors[id] = monitor
	return nil
}

// UpdateThreshold changes the alert threshold.
func (s *MemoryMonitors) UpdateThreshold(_ context.Context, id string, threshold decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	monitor, ok := s.monitors[id]
	if !ok {
		return ErrMonitorNotFound
	}
	monitor.Threshold = threshold
	s.monitors[id] = monitor
	return nil
}

var _ MonitorStore = (*MemoryMonitors)(nil)
