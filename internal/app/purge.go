package app

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Purge removes alerts older than the configured retention window.
func (a *App) Purge(ctx context.Context, opts PurgeOptions) error {
	if opts.OlderThan <= 0 {
		opts.OlderThan = a.Config.Alerts.Retention
	}
	if opts.OlderThan <= 0 {
		return errors.New("retention window must be positive")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("purge requires database.dsn")
	}
	defer closeStore()

	cutoff := time.Now().Add(-opts.OlderThan)

	if opts.DryRun {
		count, err := store.CountAlertsBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		fmt.Printf("would delete %d alert(s) created before %s\n", count, cutoff.Format(time.RFC3339))
		return nil
	}

	deleted, err := store.DeleteAlertsBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Int64("deleted", deleted).
		Time("cutoff", cutoff).
		Msg("alert retention purge complete")
	fmt.Printf("deleted %d alert(s) created before %s\n", deleted, cutoff.Format(time.RFC3339))
	return nil
}
