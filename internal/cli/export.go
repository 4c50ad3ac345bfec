package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"sentinelwatch/internal/app"
)

var (
	exportMonitorID string
	exportPNGPath   string
	exportCSVPath   string
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a monitor's activity history as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportMonitorID == "" {
			return errors.New("--monitor is required")
		}
		return getApp().Export(cmd.Context(), app.ExportOptions{
			MonitorID: exportMonitorID,
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			MaxPoints: exportMaxPoints,
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportMonitorID, "monitor", "", "Monitor id")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
