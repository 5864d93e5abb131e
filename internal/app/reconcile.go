package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"farm-price-alerts/internal/reconcile"
)

// ReconcileOnce runs a single reconciliation pass against the configured
// catalog and prints the results.
func (a *App) ReconcileOnce(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot read the catalog")
	}
	defer closeStore()

	svc, err := a.newService(store, store)
	if err != nil {
		return err
	}

	report, runErr := svc.Run(ctx)
	if runErr != nil && !errors.Is(runErr, reconcile.ErrAlertDelivery) {
		return runErr
	}

	printReport(report)

	if runErr != nil {
		// Analysis results above are complete; only persistence failed.
		fmt.Fprintf(os.Stderr, "warning: %v\n", runErr)
	}
	return nil
}

func printReport(report reconcile.Report) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Kind\tItem\tYour Price\tMarket\tUnit\tDeviation%\tStatus")
	for _, r := range report.Results {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s (%s)\t%s\t%s\t%s\n",
			r.Kind,
			r.Name,
			r.UserPrice.StringFixed(2),
			r.MarketPrice.StringFixed(2),
			r.CommodityName,
			r.MarketUnit,
			r.Percentage.StringFixed(2),
			r.Status,
		)
	}
	writer.Flush()
	fmt.Printf("analyzed: %d, alerts sent: %d\n", report.TotalAnalyzed, report.AlertsSent)
}
