package cli

import (
	"github.com/spf13/cobra"

	"sentinelwatch/internal/app"
)

var (
	runWallet     string
	runThreshold  string
	runDirection  string
	runInstrument string
	runUser       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitoring node (price endpoint plus monitor loops)",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.RunOptions{}
		if runWallet != "" || runThreshold != "" {
			opts.AdHoc = &app.MonitorSpec{
				UserID:     runUser,
				Wallet:     runWallet,
				Threshold:  runThreshold,
				Direction:  runDirection,
				Instrument: runInstrument,
			}
		}
		return getApp().Run(cmd.Context(), opts)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run only the paid price endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Serve(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVar(&runWallet, "wallet", "", "Wallet for an ad-hoc monitor")
	runCmd.Flags().StringVar(&runThreshold, "threshold", "", "Alert threshold for an ad-hoc monitor")
	runCmd.Flags().StringVar(&runDirection, "direction", "above", "Alert direction (above or below)")
	runCmd.Flags().StringVar(&runInstrument, "instrument", "", "Payment instrument (defaults to network default)")
	runCmd.Flags().StringVar(&runUser, "user", "", "Owner id for an ad-hoc monitor")
}
