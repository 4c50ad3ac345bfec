package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// ShowOptions configure the show command.
type ShowOptions struct {
	MonitorID string
	Limit     int
}

// Show prints recent activities for a monitor along with aggregate
// stats.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	_, activities, closeStore, err := a.openMonitorStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	recent, err := activities.RecentFor(ctx, opts.MonitorID, opts.Limit)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		fmt.Fprintln(os.Stdout, "no activities found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tPrice\tFee\tInstrument\tSettlement\tTriggered\tStatus\tError")
	for _, activity := range recent {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%t\t%s\t%s\n",
			activity.Timestamp.UTC().Format(time.RFC3339),
			activity.Price.StringFixed(4),
			activity.FeePaid.String(),
			activity.Instrument,
			activity.Settlement,
			activity.Triggered,
			activity.Status,
			sanitizeInline(activity.Error),
		)
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	stats, err := activities.Stats(ctx, opts.MonitorID)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\ntotal %d, success %d, failed %d, alerts %d, fees paid %s\n",
		stats.Total, stats.Success, stats.Failed, stats.Alerts, stats.FeesPaid.String())
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
