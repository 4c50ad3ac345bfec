package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
)

// AddMonitor registers a new monitor in the persistent registry and
// prints its id.
func (a *App) AddMonitor(ctx context.Context, spec MonitorSpec) error {
	monitors, _, closeStore, err := a.openMonitorStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	monitor, err := a.buildMonitor(spec)
	if err != nil {
		return err
	}
	if err := monitors.Put(ctx, monitor); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "monitor %s created (network %s, %s %s)\n",
		monitor.ID, monitor.Network, monitor.Direction, monitor.Threshold.StringFixed(4))
	return nil
}

// ListMonitors prints the registry as a table.
func (a *App) ListMonitors(ctx context.Context) error {
	monitors, _, closeStore, err := a.openMonitorStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	known, err := monitors.List(ctx)
	if err != nil {
		return err
	}
	if len(known) == 0 {
		fmt.Fprintln(os.Stdout, "no monitors configured")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tUser\tWallet\tThreshold\tDirection\tInstrument\tNetwork\tActive\tCreated (UTC)")
	for _, monitor := range known {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\t%s\n",
			monitor.ID,
			monitor.UserID,
			monitor.Wallet,
			monitor.Threshold.StringFixed(4),
			monitor.Direction,
			monitor.Instrument,
			monitor.Network,
			monitor.Active,
			monitor.CreatedAt.UTC().Format(time.RFC3339),
		)
	}
	return writer.Flush()
}

// PauseMonitor marks a monitor inactive; its loop stops on the next
// refresh of a running node.
func (a *App) PauseMonitor(ctx context.Context, id string) error {
	return a.setMonitorActive(ctx, id, false)
}

// ResumeMonitor reactivates a paused monitor.
func (a *App) ResumeMonitor(ctx context.Context, id string) error {
	return a.setMonitorActive(ctx, id, true)
}

func (a *App) setMonitorActive(ctx context.Context, id string, active bool) error {
	monitors, _, closeStore, err := a.openMonitorStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := monitors.SetActive(ctx, id, active); err != nil {
		return err
	}
	state := "paused"
	if active {
		state = "resumed"
	}
	fmt.Fprintf(os.Stdout, "monitor %s %s\n", id, state)
	return nil
}

// RemoveMonitor deletes a monitor from the registry.
func (a *App) RemoveMonitor(ctx context.Context, id string) error {
	monitors, _, closeStore, err := a.openMonitorStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := monitors.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "monitor %s removed\n", id)
	return nil
}

// SetThreshold updates a monitor's alert threshold.
func (a *App) SetThreshold(ctx context.Context, id, threshold string) error {
	monitors, _, closeStore, err := a.openMonitorStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	value, err := parseThreshold(threshold)
	if err != nil {
		return err
	}
	if err := monitors.UpdateThreshold(ctx, id, value); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "monitor %s threshold set to %s\n", id, value.StringFixed(4))
	return nil
}

func parseThreshold(raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse threshold %q: %w", raw, err)
	}
	if value.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("threshold must be greater than zero")
	}
	return value, nil
}
