package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Check runs a single paid price check against the configured provider
// and prints the outcome. The monitor is ad hoc; nothing is persisted.
func (a *App) Check(ctx context.Context, spec MonitorSpec) error {
	monitor, err := a.buildMonitor(spec)
	if err != nil {
		return err
	}

	client := a.newPaymentClient()
	signer := a.newSigner()

	quote, activity, err := client.FetchPaid(ctx, monitor, signer)
	if err != nil {
		return fmt.Errorf("paid check: %w", err)
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Price\t%s\n", quote.Price.StringFixed(4))
	fmt.Fprintf(writer, "Source\t%s\n", quote.Source)
	fmt.Fprintf(writer, "Fresh\t%t\n", quote.Fresh)
	fmt.Fprintf(writer, "Fee paid\t%s %s\n", activity.FeePaid.String(), activity.Instrument)
	fmt.Fprintf(writer, "Proof\t%s\n", activity.ProofID)
	fmt.Fprintf(writer, "Settlement\t%s\n", activity.Settlement)
	fmt.Fprintf(writer, "Triggered\t%t\n", activity.Triggered)
	fmt.Fprintf(writer, "Status\t%s\n", activity.Status)
	fmt.Fprintf(writer, "At\t%s\n", activity.Timestamp.UTC().Format(time.RFC3339))
	return writer.Flush()
}
