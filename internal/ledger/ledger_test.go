package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentinelwatch/internal/model"
)

func activityFor(monitorID string, status model.ActivityStatus) model.Activity {
	activity := model.NewActivity(monitorID, status)
	activity.FeePaid = decimal.NewFromFloat(0.0003)
	return activity
}

func TestMemoryBoundedWindow(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)

	for i := 0; i < 25; i++ {
		activity := model.NewActivity("mon-1", model.StatusSuccess)
		activity.Price = decimal.NewFromInt(int64(i))
		require.NoError(t, m.Append(ctx, activity))
	}

	assert.Equal(t, 10, m.Len(), "oldest entries must be evicted at the cap")

	recent, err := m.RecentFor(ctx, "mon-1", 0)
	require.NoError(t, err)
	require.Len(t, recent, 10)
	assert.True(t, recent[0].Price.Equal(decimal.NewFromInt(24)), "newest first")
	assert.True(t, recent[9].Price.Equal(decimal.NewFromInt(15)), "window keeps only the tail")
}

func TestMemoryRecentForFiltersAndLimits(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	require.NoError(t, m.Append(ctx, activityFor("a", model.StatusSuccess)))
	require.NoError(t, m.Append(ctx, activityFor("b", model.StatusFailed)))
	require.NoError(t, m.Append(ctx, activityFor("a", model.StatusAlert)))

	recent, err := m.RecentFor(ctx, "a", 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, model.StatusAlert, recent[0].Status)

	recent, err = m.RecentFor(ctx, "missing", 5)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestMemoryStats(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(0)

	require.NoError(t, m.Append(ctx, activityFor("a", model.StatusSuccess)))
	require.NoError(t, m.Append(ctx, activityFor("a", model.StatusAlert)))
	require.NoError(t, m.Append(ctx, activityFor("a", model.StatusFailed)))
	require.NoError(t, m.Append(ctx, activityFor("b", model.StatusSuccess)))

	stats, err := m.Stats(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Success)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Alerts)
	assert.True(t, stats.FeesPaid.Equal(decimal.NewFromFloat(0.0009)))
	assert.False(t, stats.LastCheck.IsZero())

	all, err := m.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 4, all.Total)
}

func TestMemoryConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10_000)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			id := fmt.Sprintf("mon-%d", g)
			for i := 0; i < 100; i++ {
				_ = m.Append(ctx, activityFor(id, model.StatusSuccess))
			}
		}(g)
	}
	wg.Wait()

	stats, err := m.Stats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 800, stats.Total)
}

func TestMonitorStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryMonitors()

	monitor, err := model.NewMonitor("user", "wallet", decimal.NewFromInt(200), model.DirectionBelow, model.InstrumentUSDC, model.NetworkDevnet)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, monitor))

	got, err := store.Get(ctx, monitor.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)

	require.NoError(t, store.SetActive(ctx, monitor.ID, false))
	got, err = store.Get(ctx, monitor.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	require.NoError(t, store.UpdateThreshold(ctx, monitor.ID, decimal.NewFromInt(250)))
	got, err = store.Get(ctx, monitor.ID)
	require.NoError(t, err)
	assert.True(t, got.Threshold.Equal(decimal.NewFromInt(250)))

	require.NoError(t, store.Delete(ctx, monitor.ID))
	_, err = store.Get(ctx, monitor.ID)
	assert.ErrorIs(t, err, ErrMonitorNotFound)
}

func TestMonitorNetworkImmutableOnRePut(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryMonitors()

	monitor, err := model.NewMonitor("user", "wallet", decimal.NewFromInt(200), model.DirectionBelow, model.InstrumentUSDC, model.NetworkDevnet)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, monitor))

	tampered := *monitor
	tampered.Network = model.NetworkMainnet
	require.NoError(t, store.Put(ctx, &tampered))

	got, err := store.Get(ctx, monitor.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NetworkDevnet, got.Network, "network binding must survive writes")
}
