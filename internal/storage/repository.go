package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"farm-price-alerts/internal/alerting"
	"farm-price-alerts/internal/catalog"
)

// ErrNotConfigured indicates the storage pool was not initialised.
var ErrNotConfigured = errors.New("storage: pool not configured")

const (
	insertAlertSQL = `INSERT INTO price_alerts (
        id,
        target_user_id,
        alert_type,
        title,
        message,
        commodity_name,
        market_price,
        market_unit,
        user_price,
        status,
        recommendation,
        read,
        created_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
    );`

	alertColumns = `id,
        target_user_id,
        alert_type,
        title,
        message,
        commodity_name,
        market_price,
        market_unit,
        user_price,
        status,
        recommendation,
        read,
        created_at`

	listAlertsForOwnerSQL = `SELECT ` + alertColumns + `
    FROM price_alerts
    WHERE target_user_id = $1
    ORDER BY created_at DESC
    LIMIT $2;`

	listRecentAlertsSQL = `SELECT ` + alertColumns + `
    FROM price_alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	listAlertsBetweenSQL = `SELECT ` + alertColumns + `
    FROM price_alerts
    WHERE created_at >= $1
      AND created_at < $2
    ORDER BY created_at;`

	countAlertsBeforeSQL = `SELECT COUNT(*) FROM price_alerts WHERE created_at < $1;`

	deleteAlertsBeforeSQL = `DELETE FROM price_alerts WHERE created_at < $1;`

	listCatalogSQL = `SELECT id, owner_id, name, price, currency, kind FROM (
        SELECT id::text, owner_id::text, name, price, currency, 'product' AS kind, created_at
        FROM products
        WHERE price IS NOT NULL
        UNION ALL
        SELECT id::text, owner_id::text, name, price, currency, 'resource' AS kind, created_at
        FROM resources
        WHERE price IS NOT NULL
    ) listings
    ORDER BY kind, created_at, id;`
)

// AlertReader exposes the read side of the alert store.
type AlertReader interface {
	ListAlertsForOwner(ctx context.Context, ownerID string, limit int) ([]alerting.Alert, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]alerting.Alert, error)
	ListAlertsBetween(ctx context.Context, from, to time.Time) ([]alerting.Alert, error)
}

// Store aggregates alert persistence and the read-only catalog view.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertAlerts persists the full batch in one round trip. The batch is the
// sole at-least-once hand-off of a reconciliation run: a retried batch may
// duplicate alerts, a failed one must report its error.
func (s *Store) InsertAlerts(ctx context.Context, alerts []alerting.Alert) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, a := range alerts {
		batch.Queue(insertAlertSQL,
			a.ID,
			a.TargetUserID,
			a.Type,
			a.Title,
			a.Message,
			a.Market.CommodityName,
			a.Market.MarketPrice.String(),
			a.Market.MarketUnit,
			a.Market.UserPrice.String(),
			a.Market.Status,
			a.Market.Recommendation,
			a.Read,
			a.CreatedAt,
		)
	}

	results := pool.SendBatch(ctx, batch)
	defer results.Close()

	for range alerts {
		if _, execErr := results.Exec(); execErr != nil {
			return fmt.Errorf("insert alert batch: %w", execErr)
		}
	}
	return nil
}

// ListAlertsForOwner lists an owner's alerts, newest first.
func (s *Store) ListAlertsForOwner(ctx context.Context, ownerID string, limit int) ([]alerting.Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAlertsForOwnerSQL, ownerID, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts for owner: %w", queryErr)
	}
	defer rows.Close()

	return scanAlerts(rows, limit)
}

// ListRecentAlerts lists the most recent alerts across all owners.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]alerting.Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	return scanAlerts(rows, limit)
}

// ListAlertsBetween lists alerts within a time window, oldest first.
func (s *Store) ListAlertsBetween(ctx context.Context, from, to time.Time) ([]alerting.Alert, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAlertsBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list alerts between: %w", queryErr)
	}
	defer rows.Close()

	return scanAlerts(rows, 0)
}

// CountAlertsBefore counts alerts older than the cutoff.
func (s *Store) CountAlertsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countAlertsBeforeSQL, olderThan).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count alerts before: %w", scanErr)
	}
	return count, nil
}

// DeleteAlertsBefore deletes alerts older than the cutoff and reports how
// many rows went away.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan)
	if execErr != nil {
		return 0, fmt.Errorf("delete alerts before: %w", execErr)
	}
	return cmdTag.RowsAffected(), nil
}

// ListCatalog reads every priced listing from the marketplace's products and
// resources collections, tagged by kind, in a stable order.
func (s *Store) ListCatalog(ctx context.Context) ([]catalog.Item, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listCatalogSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list catalog: %w", queryErr)
	}
	defer rows.Close()

	items := make([]catalog.Item, 0)
	for rows.Next() {
		var (
			item     catalog.Item
			priceStr string
			kind     string
		)
		if err := rows.Scan(&item.ID, &item.OwnerID, &item.Name, &priceStr, &item.Currency, &kind); err != nil {
			return nil, err
		}

		price, convErr := decimal.NewFromString(priceStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse catalog price: %w", convErr)
		}
		item.Price = price
		item.Kind = catalog.Kind(kind)
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

func scanAlerts(rows pgx.Rows, sizeHint int) ([]alerting.Alert, error) {
	alerts := make([]alerting.Alert, 0, sizeHint)
	for rows.Next() {
		alert, scanErr := scanAlert(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, alert)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

func scanAlert(rows pgx.Rows) (alerting.Alert, error) {
	var (
		alert          alerting.Alert
		id             uuid.UUID
		marketPriceStr string
		userPriceStr   string
	)

	if err := rows.Scan(
		&id,
		&alert.TargetUserID,
		&alert.Type,
		&alert.Title,
		&alert.Message,
		&alert.Market.CommodityName,
		&marketPriceStr,
		&alert.Market.MarketUnit,
		&userPriceStr,
		&alert.Market.Status,
		&alert.Market.Recommendation,
		&alert.Read,
		&alert.CreatedAt,
	); err != nil {
		return alerting.Alert{}, err
	}
	alert.ID = id

	marketPrice, err := decimal.NewFromString(marketPriceStr)
	if err != nil {
		return alerting.Alert{}, fmt.Errorf("parse market price: %w", err)
	}
	userPrice, err := decimal.NewFromString(userPriceStr)
	if err != nil {
		return alerting.Alert{}, fmt.Errorf("parse user price: %w", err)
	}
	alert.Market.MarketPrice = marketPrice
	alert.Market.UserPrice = userPrice

	return alert, nil
}

var (
	_ alerting.Sink  = (*Store)(nil)
	_ catalog.Source = (*Store)(nil)
	_ AlertReader    = (*Store)(nil)
)
