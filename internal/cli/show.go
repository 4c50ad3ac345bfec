package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"sentinelwatch/internal/app"
)

var (
	showMonitorID string
	showLimit     int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent activities for a monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showMonitorID == "" {
			return errors.New("--monitor is required")
		}
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}
		return getApp().Show(cmd.Context(), app.ShowOptions{
			MonitorID: showMonitorID,
			Limit:     showLimit,
		})
	},
}

func init() {
	showCmd.Flags().StringVar(&showMonitorID, "monitor", "", "Monitor id")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of activities to display")
}
