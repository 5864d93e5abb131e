// Package alerting holds the price-alert record handed to the notification
// sink, plus an optional operator push channel.
package alerting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TypePriceAlert is the alert type emitted by the reconciliation engine.
const TypePriceAlert = "price_alert"

// MarketData captures the comparison behind an alert.
type MarketData struct {
	CommodityName  string          `json:"commodityName"`
	MarketPrice    decimal.Decimal `json:"marketPrice"`
	MarketUnit     string          `json:"marketUnit"`
	UserPrice      decimal.Decimal `json:"userPrice"`
	Recommendation string          `json:"recommendation"`
	Status         string          `json:"status"`
}

// Alert is one persisted price alert addressed to an item owner. The engine's
// responsibility ends at the sink hand-off: delivery and read state belong to
// the marketplace application.
type Alert struct {
	ID           uuid.UUID  `json:"id"`
	TargetUserID string     `json:"targetUserId"`
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	Market       MarketData `json:"marketData"`
	Read         bool       `json:"read"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Sink persists a batch of alerts. At-least-once: a retried batch may insert
// duplicates, a failed batch must surface its error.
type Sink interface {
	InsertAlerts(ctx context.Context, alerts []Alert) error
}

// RenderTitle builds the alert headline for one item.
func RenderTitle(itemName string) string {
	return fmt.Sprintf("Price alert: %s", itemName)
}

// RenderMessage builds the human-readable alert body.
func RenderMessage(itemName, currency string, md MarketData) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Your listing %q is priced at %s %s.\n", itemName, md.UserPrice.StringFixed(2), currency))
	builder.WriteString(fmt.Sprintf("Market reference for %s: %s %s per %s.\n", md.CommodityName, md.MarketPrice.StringFixed(2), currency, md.MarketUnit))
	builder.WriteString(md.Recommendation)
	return builder.String()
}
