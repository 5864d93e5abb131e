// Package catalog defines the read-only listing contract supplied by the
// surrounding marketplace application. The engine never writes catalog data.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Kind tags which marketplace collection an item came from.
type Kind string

const (
	KindProduct  Kind = "product"
	KindResource Kind = "resource"
)

// Item is one priced listing owned by a marketplace user.
type Item struct {
	ID       string          `json:"id"`
	OwnerID  string          `json:"ownerId"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	Kind     Kind            `json:"kind"`
}

// Source lists every priced item the caller wants reconciled, in a stable
// order.
type Source interface {
	ListCatalog(ctx context.Context) ([]Item, error)
}

// StaticSource serves a fixed item list. Used by the simulate command and in
// tests.
type StaticSource []Item

// ListCatalog returns the fixed list.
func (s StaticSource) ListCatalog(ctx context.Context) ([]Item, error) {
	return s, nil
}

var _ Source = (StaticSource)(nil)
