// Package quotes provides the reference commodity quote list consumed by the
// reconciliation engine: a static baseline dataset merged with an optional
// external price feed, held behind a single-flight refreshing cache.
package quotes

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommodityQuote is one priced reference record. Immutable once fetched.
type CommodityQuote struct {
	Name   string          `json:"name"`
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Unit   string          `json:"unit"`
}

// Key returns the quote identity: the symbol, or the name if no symbol is set.
func (q CommodityQuote) Key() string {
	if q.Symbol != "" {
		return q.Symbol
	}
	return q.Name
}

// Snapshot is an immutable view of the quote list at a point in time. It is
// replaced atomically by the cache, never mutated in place.
type Snapshot struct {
	Quotes    []CommodityQuote
	FetchedAt time.Time
}
