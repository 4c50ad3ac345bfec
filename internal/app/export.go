package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"sentinelwatch/internal/model"
)

// ExportOptions hold parameters for exporting activity history.
type ExportOptions struct {
	MonitorID string
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// Export renders a monitor's activity history as CSV and/or PNG. The
// PNG plots checked prices against the monitor's threshold.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	monitors, activities, closeStore, err := a.openMonitorStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	monitor, err := monitors.Get(ctx, opts.MonitorID)
	if err != nil {
		return err
	}

	recent, err := activities.RecentFor(ctx, opts.MonitorID, opts.MaxPoints)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		a.Logger.Info().Str("monitor_id", opts.MonitorID).Msg("no activities found for export")
		return nil
	}

	// RecentFor is newest first; exports read oldest first.
	ordered := make([]model.Activity, len(recent))
	for i, activity := range recent {
		ordered[len(recent)-1-i] = activity
	}
	ordered = downsampleActivities(ordered, opts.MaxPoints)
	a.Logger.Info().Int("total", len(recent)).Int("exported", len(ordered)).Msg("exporting activities")

	if opts.CSVPath != "" {
		if err := writeActivitiesCSV(opts.CSVPath, ordered); err != nil {
			return err
		}
	}
	if opts.PNGPath != "" {
		if err := writeActivitiesPNG(opts.PNGPath, monitor, ordered); err != nil {
			return err
		}
	}
	return nil
}

func downsampleActivities(activities []model.Activity, max int) []model.Activity {
	if max <= 0 || len(activities) <= max {
		return activities
	}

	result := make([]model.Activity, 0, max)
	step := float64(len(activities)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(activities) {
			idx = len(activities) - 1
		}
		result = append(result, activities[idx])
	}
	return result
}

func writeActivitiesCSV(path string, activities []model.Activity) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"timestamp", "price", "fee_paid", "instrument", "settlement_ms", "proof_id", "triggered", "status", "error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, activity := range activities {
		triggered := "false"
		if activity.Triggered {
			triggered = "true"
		}
		record := []string{
			activity.Timestamp.UTC().Format(time.RFC3339),
			activity.Price.String(),
			activity.FeePaid.String(),
			string(activity.Instrument),
			strconv.FormatInt(activity.Settlement.Milliseconds(), 10),
			activity.ProofID,
			triggered,
			string(activity.Status),
			sanitizeInline(activity.Error),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return writer.Error()
}

func writeActivitiesPNG(path string, monitor *model.Monitor, activities []model.Activity) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(activities))
	prices := make([]float64, len(activities))
	thresholds := make([]float64, len(activities))
	threshold := monitor.Threshold.InexactFloat64()

	for i, activity := range activities {
		x[i] = activity.Timestamp
		prices[i] = activity.Price.InexactFloat64()
		thresholds[i] = threshold
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.4f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price (USD)",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Checked price",
				XValues: x,
				YValues: prices,
			},
			chart.TimeSeries{
				Name:    "Threshold (" + string(monitor.Direction) + ")",
				XValues: x,
				YValues: thresholds,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
