package app

import (
	"context"
	"errors"
	"fmt"
)

// Migrate applies pending SQL migrations. An empty dir falls back to the
// configured database.migrations_path.
func (a *App) Migrate(ctx context.Context, dir string) error {
	if dir == "" {
		dir = a.Config.Database.MigrationsPath
	}
	if dir == "" {
		return errors.New("no migrations directory configured")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("migrate requires database.dsn")
	}
	defer closeStore()

	applied, err := store.RunMigrations(ctx, dir, a.Logger)
	if err != nil {
		return err
	}

	fmt.Printf("applied %d migration(s) from %s\n", applied, dir)
	return nil
}
