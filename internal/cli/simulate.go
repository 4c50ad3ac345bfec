package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"sentinelwatch/internal/app"
)

var (
	simulatePrice     float64
	simulateThreshold string
	simulateDirection string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Evaluate a fixed price against a threshold and send the alert",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrice <= 0 {
			return errors.New("--price must be greater than 0")
		}
		if simulateThreshold == "" {
			return errors.New("--threshold is required")
		}
		return getApp().SimulateAlert(cmd.Context(), app.MonitorSpec{
			Wallet:    "simulated",
			Threshold: simulateThreshold,
			Direction: simulateDirection,
		}, decimal.NewFromFloat(simulatePrice))
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulatePrice, "price", 0, "Price to evaluate")
	simulateCmd.Flags().StringVar(&simulateThreshold, "threshold", "", "Alert threshold")
	simulateCmd.Flags().StringVar(&simulateDirection, "direction", "above", "Alert direction (above or below)")
}
