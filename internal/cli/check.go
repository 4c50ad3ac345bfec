package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"sentinelwatch/internal/app"
)

var (
	checkWallet     string
	checkThreshold  string
	checkDirection  string
	checkInstrument string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one paid price check against the provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		if checkWallet == "" {
			return errors.New("--wallet is required")
		}
		if checkThreshold == "" {
			return errors.New("--threshold is required")
		}
		return getApp().Check(cmd.Context(), app.MonitorSpec{
			Wallet:     checkWallet,
			Threshold:  checkThreshold,
			Direction:  checkDirection,
			Instrument: checkInstrument,
		})
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkWallet, "wallet", "", "Wallet paying the access fee")
	checkCmd.Flags().StringVar(&checkThreshold, "threshold", "", "Alert threshold to evaluate")
	checkCmd.Flags().StringVar(&checkDirection, "direction", "above", "Alert direction (above or below)")
	checkCmd.Flags().StringVar(&checkInstrument, "instrument", "", "Preferred payment instrument")
}
