package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"farm-price-alerts/internal/catalog"
	"farm-price-alerts/internal/match"
	"farm-price-alerts/internal/quotes"
	"farm-price-alerts/internal/reconcile"
)

// Simulate runs the full pipeline over one synthetic catalog item against
// the baseline dataset, without touching the database or the feed.
func (a *App) Simulate(ctx context.Context, name string, price decimal.Decimal) error {
	src := catalog.StaticSource{{
		ID:       "simulated",
		OwnerID:  "simulated",
		Name:     name,
		Price:    price,
		Currency: "MXN",
		Kind:     catalog.KindProduct,
	}}

	table, err := a.aliasTable()
	if err != nil {
		return err
	}

	cache := quotes.NewCache(quotes.Baseline(), nil, quotes.CacheOptions{}, a.Logger)
	svc := reconcile.New(src, cache, table, nil, nil, a.Logger)

	report, err := svc.Run(ctx)
	if err != nil && !errors.Is(err, reconcile.ErrAlertDelivery) {
		return err
	}

	if report.TotalAnalyzed == 0 {
		fmt.Printf("%q did not resolve to any reference quote\n", name)
		printKnownGroups(table)
		return nil
	}

	printReport(report)
	return nil
}

func printKnownGroups(table *match.Table) {
	fmt.Println("known commodity groups:")
	for _, entry := range table.Entries() {
		fmt.Printf("  %s\n", entry.Key)
	}
}
