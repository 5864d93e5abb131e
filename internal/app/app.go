// Package app wires configuration into runnable commands.
package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"farm-price-alerts/internal/alerting"
	"farm-price-alerts/internal/catalog"
	"farm-price-alerts/internal/config"
	"farm-price-alerts/internal/match"
	"farm-price-alerts/internal/quotes"
	"farm-price-alerts/internal/reconcile"
	"farm-price-alerts/internal/scheduler"
	"farm-price-alerts/internal/server"
	"farm-price-alerts/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	return store, store.Close, nil
}

func (a *App) newCache() *quotes.Cache {
	var fetcher quotes.Fetcher
	if a.Config.Feed.BaseURL != "" {
		fetcher = quotes.NewFeed(quotes.FeedOptions{
			BaseURL:   a.Config.Feed.BaseURL,
			Timeout:   a.Config.Feed.RequestTimeout,
			UserAgent: a.Config.Feed.UserAgent,
		}, a.Logger)
	} else {
		a.Logger.Warn().Msg("feed.base_url not configured; quotes come from the baseline dataset only")
	}

	return quotes.NewCache(quotes.Baseline(), fetcher, quotes.CacheOptions{
		TTL:          a.Config.Quotes.TTL,
		RefreshWait:  a.Config.Quotes.RefreshWait,
		FetchTimeout: a.Config.Feed.RequestTimeout,
	}, a.Logger)
}

func (a *App) aliasTable() (*match.Table, error) {
	if path := a.Config.Matcher.AliasPath; path != "" {
		table, err := match.LoadTableFile(path)
		if err != nil {
			return nil, err
		}
		a.Logger.Info().Str("path", path).Int("groups", table.Len()).Msg("alias table loaded from file")
		return table, nil
	}
	return match.DefaultTable(), nil
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerts.Telegram.Enabled {
		cfg := a.Config.Alerts.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) newService(src catalog.Source, sink alerting.Sink) (*reconcile.Service, error) {
	table, err := a.aliasTable()
	if err != nil {
		return nil, err
	}
	return reconcile.New(src, a.newCache(), table, sink, a.newNotifier(), a.Logger), nil
}

// Serve runs the HTTP trigger surface and, when configured, the periodic
// reconciliation loop.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; alert persistence and catalog reads disabled")
		return errors.New("serve requires database.dsn")
	}
	defer closeStore()

	svc, err := a.newService(store, store)
	if err != nil {
		return err
	}

	srv := server.New(server.Options{
		ListenAddr:   a.Config.Server.ListenAddr,
		AuthToken:    a.Config.Server.AuthToken,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		PageSize:     a.Config.Alerts.PageSize,
	}, svc, store, a.Logger)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.ListenAndServe(groupCtx)
	})

	if interval := a.Config.Reconcile.Interval; interval > 0 {
		sched := scheduler.New(scheduler.Options{
			Interval:        interval,
			AlignToInterval: a.Config.Reconcile.AlignToInterval,
			StartupDelay:    a.Config.Reconcile.StartupDelay,
		}, a.Logger)
		group.Go(func() error {
			return sched.Run(groupCtx, func(tickCtx context.Context, at time.Time) error {
				_, err := svc.Run(tickCtx)
				return err
			})
		})
		a.Logger.Info().Dur("interval", interval).Msg("periodic reconciliation enabled")
	}

	a.Logger.Info().Msg("starting reconciliation service")
	err = group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("reconciliation service stopped")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
	Owner string
}

// ExportOptions hold parameters for exporting alert history.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// PurgeOptions configure alert retention cleanup.
type PurgeOptions struct {
	OlderThan time.Duration
	DryRun    bool
}
