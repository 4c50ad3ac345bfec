package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"sentinelwatch/internal/app"
)

var (
	monitorUser       string
	monitorWallet     string
	monitorThreshold  string
	monitorDirection  string
	monitorInstrument string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Manage the persistent monitor registry",
}

var monitorAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		if monitorWallet == "" {
			return errors.New("--wallet is required")
		}
		if monitorThreshold == "" {
			return errors.New("--threshold is required")
		}
		return getApp().AddMonitor(cmd.Context(), app.MonitorSpec{
			UserID:     monitorUser,
			Wallet:     monitorWallet,
			Threshold:  monitorThreshold,
			Direction:  monitorDirection,
			Instrument: monitorInstrument,
		})
	},
}

var monitorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured monitors",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ListMonitors(cmd.Context())
	},
}

var monitorPauseCmd = &cobra.Command{
	Use:   "pause <monitor-id>",
	Short: "Pause a monitor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().PauseMonitor(cmd.Context(), args[0])
	},
}

var monitorResumeCmd = &cobra.Command{
	Use:   "resume <monitor-id>",
	Short: "Resume a paused monitor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ResumeMonitor(cmd.Context(), args[0])
	},
}

var monitorRemoveCmd = &cobra.Command{
	Use:   "remove <monitor-id>",
	Short: "Remove a monitor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().RemoveMonitor(cmd.Context(), args[0])
	},
}

var monitorThresholdCmd = &cobra.Command{
	Use:   "set-threshold <monitor-id> <threshold>",
	Short: "Update a monitor's alert threshold",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SetThreshold(cmd.Context(), args[0], args[1])
	},
}

func init() {
	monitorAddCmd.Flags().StringVar(&monitorUser, "user", "", "Owner id")
	monitorAddCmd.Flags().StringVar(&monitorWallet, "wallet", "", "Wallet paying the access fee")
	monitorAddCmd.Flags().StringVar(&monitorThreshold, "threshold", "", "Alert threshold")
	monitorAddCmd.Flags().StringVar(&monitorDirection, "direction", "above", "Alert direction (above or below)")
	monitorAddCmd.Flags().StringVar(&monitorInstrument, "instrument", "", "Preferred payment instrument")

	monitorCmd.AddCommand(monitorAddCmd)
	monitorCmd.AddCommand(monitorListCmd)
	monitorCmd.AddCommand(monitorPauseCmd)
	monitorCmd.AddCommand(monitorResumeCmd)
	monitorCmd.AddCommand(monitorRemoveCmd)
	monitorCmd.AddCommand(monitorThresholdCmd)
}
