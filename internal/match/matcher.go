package match

import (
	"strings"

	"farm-price-alerts/internal/quotes"
)

// Match resolves an item name to a reference quote. Pass 1 walks the alias
// table in declaration order and, for the first group the normalised name
// hits, returns the first quote whose name or symbol contains the group's
// canonical key. Pass 2 falls back to direct name containment against the
// quote list. Both the table order and the quote order decide which quote a
// name resolves to, so neither may be reordered.
//
// A group hit whose key matches no quote does not end the search; the walk
// continues with the next group.
func Match(itemName string, list []quotes.CommodityQuote, table *Table) (quotes.CommodityQuote, bool) {
	name := strings.ToLower(strings.TrimSpace(itemName))
	if name == "" || table == nil {
		return quotes.CommodityQuote{}, false
	}

	for _, entry := range table.entries {
		if !aliasHit(name, entry.Aliases) {
			continue
		}
		if q, ok := quoteForKey(entry.Key, list); ok {
			return q, true
		}
	}

	for _, q := range list {
		qName := strings.ToLower(q.Name)
		qSymbol := strings.ToLower(q.Symbol)
		if strings.Contains(qName, name) || (qSymbol != "" && strings.Contains(qSymbol, name)) {
			return q, true
		}
		if qName != "" && strings.Contains(name, qName) {
			return q, true
		}
	}

	return quotes.CommodityQuote{}, false
}

// aliasHit reports whether the normalised name belongs to an alias group:
// either an alias occurs inside the name, or the name inside an alias.
func aliasHit(name string, aliases []string) bool {
	for _, alias := range aliases {
		if strings.Contains(name, alias) || strings.Contains(alias, name) {
			return true
		}
	}
	return false
}

func quoteForKey(key string, list []quotes.CommodityQuote) (quotes.CommodityQuote, bool) {
	for _, q := range list {
		if strings.Contains(strings.ToLower(q.Name), key) || strings.Contains(strings.ToLower(q.Symbol), key) {
			return q, true
		}
	}
	return quotes.CommodityQuote{}, false
}
