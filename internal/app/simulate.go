package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"sentinelwatch/internal/alerting"
	"sentinelwatch/internal/model"
)

// SimulateAlert evaluates a fixed price against a threshold and, when
// it triggers, pushes the alert through the configured channel. Useful
// for verifying delivery without waiting for a real crossing.
func (a *App) SimulateAlert(ctx context.Context, spec MonitorSpec, price decimal.Decimal) error {
	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	monitor, err := a.buildMonitor(spec)
	if err != nil {
		return err
	}

	quote := model.PriceQuote{
		Price:     price,
		Source:    "simulated",
		Fresh:     true,
		Timestamp: time.Now().UTC(),
	}

	if !alerting.Evaluate(quote.Price, monitor.Threshold, monitor.Direction) {
		fmt.Fprintf(os.Stdout, "price %s does not cross threshold %s %s; no alert sent\n",
			price.StringFixed(4), monitor.Direction, monitor.Threshold.StringFixed(4))
		return nil
	}

	alert := alerting.NewAlert(monitor, quote)
	if err := notifier.Notify(ctx, alert); err != nil {
		return fmt.Errorf("deliver simulated alert: %w", err)
	}

	fmt.Fprintln(os.Stdout, "simulated alert delivered")
	return nil
}
