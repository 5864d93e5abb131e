package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"farm-price-alerts/internal/alerting"
	"farm-price-alerts/internal/catalog"
	"farm-price-alerts/internal/match"
	"farm-price-alerts/internal/metrics"
	"farm-price-alerts/internal/quotes"
)

// ErrAlertDelivery marks a run whose analysis succeeded but whose alert batch
// could not be persisted. The Report returned alongside it is still complete.
var ErrAlertDelivery = errors.New("alert delivery failed")

// QuoteProvider yields the current reference quote list.
type QuoteProvider interface {
	Quotes(ctx context.Context) ([]quotes.CommodityQuote, error)
}

// Result is the analysis of one catalog item against its matched quote.
type Result struct {
	Kind           catalog.Kind    `json:"kind"`
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	UserPrice      decimal.Decimal `json:"userPrice"`
	MarketPrice    decimal.Decimal `json:"marketPrice"`
	MarketUnit     string          `json:"marketUnit"`
	CommodityName  string          `json:"commodityName"`
	Status         Status          `json:"status"`
	Difference     decimal.Decimal `json:"difference"`
	Percentage     decimal.Decimal `json:"percentage"`
	Recommendation string          `json:"recommendation"`
}

// Report is what one reconciliation run hands back to the caller.
type Report struct {
	Results       []Result `json:"results"`
	TotalAnalyzed int      `json:"totalAnalyzed"`
	AlertsSent    int      `json:"alertsSent"`
}

// Service orchestrates one reconciliation pass: catalog in, results and a
// persisted alert batch out.
type Service struct {
	catalog  catalog.Source
	provider QuoteProvider
	table    *match.Table
	sink     alerting.Sink
	notifier alerting.Notifier
	logger   zerolog.Logger
}

// New constructs the reconciliation service. sink and notifier may be nil;
// a nil sink disables persistence (alerts are counted but dropped with a
// warning), a nil notifier disables operator pushes.
func New(src catalog.Source, provider QuoteProvider, table *match.Table, sink alerting.Sink, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	if table == nil {
		table = match.DefaultTable()
	}
	return &Service{
		catalog:  src,
		provider: provider,
		table:    table,
		sink:     sink,
		notifier: notifier,
		logger:   logger.With().Str("component", "reconcile").Logger(),
	}
}

// Run reconciles the full catalog against the current quote snapshot.
//
// Failure semantics: a catalog read failure is fatal (no partial results); a
// feed failure never surfaces here (the quote cache degrades to baseline);
// an alert persistence failure is returned wrapped in ErrAlertDelivery while
// the computed Report is still returned. Items that do not resolve to a
// usable quote are skipped, not errors.
func (s *Service) Run(ctx context.Context) (Report, error) {
	items, err := s.catalog.ListCatalog(ctx)
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues("error").Inc()
		return Report{}, fmt.Errorf("list catalog: %w", err)
	}

	// One snapshot per run; per-item lookups would hammer the cache for no
	// benefit and could even observe two different snapshots mid-run.
	quoteList, err := s.provider.Quotes(ctx)
	if err != nil {
		metrics.ReconcileRuns.WithLabelValues("error").Inc()
		return Report{}, fmt.Errorf("load quotes: %w", err)
	}

	now := time.Now().UTC()
	results := make([]Result, 0, len(items))
	alerts := make([]alerting.Alert, 0)

	for _, item := range items {
		if strings.TrimSpace(item.Name) == "" || !item.Price.IsPositive() {
			s.logger.Debug().Str("id", item.ID).Msg("skipping malformed catalog item")
			continue
		}

		quote, ok := match.Match(item.Name, quoteList, s.table)
		if !ok || !quote.Price.IsPositive() {
			continue
		}
		s.logger.Debug().Str("item", item.Name).Str("quote", quote.Key()).Msg("item resolved to quote")

		verdict := Classify(item.Price, quote.Price)
		result := Result{
			Kind:           item.Kind,
			ID:             item.ID,
			Name:           item.Name,
			UserPrice:      item.Price,
			MarketPrice:    quote.Price,
			MarketUnit:     quote.Unit,
			CommodityName:  quote.Name,
			Status:         verdict.Status,
			Difference:     verdict.Difference,
			Percentage:     verdict.Percentage,
			Recommendation: verdict.Recommendation,
		}
		results = append(results, result)

		if verdict.Status != StatusOptimal {
			alerts = append(alerts, s.buildAlert(item, result, now))
		}
	}

	metrics.ItemsAnalyzed.Add(float64(len(results)))
	report := Report{Results: results, TotalAnalyzed: len(results)}

	var deliveryErr error
	if len(alerts) > 0 {
		switch {
		case s.sink == nil:
			s.logger.Warn().Int("alerts", len(alerts)).Msg("alert sink not configured; alert batch dropped")
		default:
			if err := s.sink.InsertAlerts(ctx, alerts); err != nil {
				metrics.AlertDeliveryFailures.Inc()
				deliveryErr = fmt.Errorf("%w: %v", ErrAlertDelivery, err)
				s.logger.Error().Err(err).Int("alerts", len(alerts)).Msg("failed to persist alert batch")
			} else {
				report.AlertsSent = len(alerts)
				for _, a := range alerts {
					metrics.AlertsEmitted.WithLabelValues(a.Market.Status).Inc()
				}
			}
		}
	}

	if deliveryErr == nil {
		metrics.ReconcileRuns.WithLabelValues("ok").Inc()
	} else {
		metrics.ReconcileRuns.WithLabelValues("delivery_failed").Inc()
	}

	s.notifySummary(ctx, report, len(alerts), deliveryErr == nil, now)

	s.logger.Info().
		Int("catalog_items", len(items)).
		Int("analyzed", report.TotalAnalyzed).
		Int("alerts_sent", report.AlertsSent).
		Msg("reconciliation run complete")

	return report, deliveryErr
}

func (s *Service) buildAlert(item catalog.Item, result Result, now time.Time) alerting.Alert {
	md := alerting.MarketData{
		CommodityName:  result.CommodityName,
		MarketPrice:    result.MarketPrice,
		MarketUnit:     result.MarketUnit,
		UserPrice:      result.UserPrice,
		Recommendation: result.Recommendation,
		Status:         string(result.Status),
	}
	return alerting.Alert{
		ID:           uuid.New(),
		TargetUserID: item.OwnerID,
		Type:         alerting.TypePriceAlert,
		Title:        alerting.RenderTitle(item.Name),
		Message:      alerting.RenderMessage(item.Name, item.Currency, md),
		Market:       md,
		CreatedAt:    now,
	}
}

// notifySummary pushes a best-effort operator summary; failures are logged
// and never affect the run outcome.
func (s *Service) notifySummary(ctx context.Context, report Report, emitted int, delivered bool, runAt time.Time) {
	if s.notifier == nil || emitted == 0 {
		return
	}

	top := make([]string, 0, 3)
	for _, r := range report.Results {
		if r.Status == StatusOptimal {
			continue
		}
		top = append(top, fmt.Sprintf("%s %s%%", r.Name, r.Percentage.StringFixed(2)))
		if len(top) == 3 {
			break
		}
	}

	summary := alerting.RunSummary{
		RunAt:         runAt,
		TotalAnalyzed: report.TotalAnalyzed,
		AlertsEmitted: emitted,
		Delivered:     delivered,
		TopDeviations: top,
	}
	if err := s.notifier.Notify(ctx, summary); err != nil {
		s.logger.Error().Err(err).Msg("failed to push run summary")
	}
}
