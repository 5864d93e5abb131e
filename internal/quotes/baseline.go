package quotes

import "github.com/shopspring/decimal"

// baseline is the authoritative in-process dataset. It always loads, so a
// refresh can never fail outright: a broken external feed degrades the
// snapshot to this list. Order matters: baseline entries are prepended to
// the snapshot, so they shadow external duplicates during matching.
var baseline = []CommodityQuote{
	{Name: "Seeds", Symbol: "SEEDS", Price: d("155.00"), Unit: "kg"},
	{Name: "Fertilizer", Symbol: "FERT", Price: d("620.00"), Unit: "bag"},
	{Name: "Wheat", Symbol: "WHEAT", Price: d("280.50"), Unit: "kg"},
	{Name: "Corn", Symbol: "CORN", Price: d("215.25"), Unit: "kg"},
	{Name: "Rice", Symbol: "RICE", Price: d("340.00"), Unit: "kg"},
	{Name: "Tomato", Symbol: "TOMATO", Price: d("280.50"), Unit: "kg"},
	{Name: "Potato", Symbol: "POTATO", Price: d("190.00"), Unit: "kg"},
	{Name: "Onion", Symbol: "ONION", Price: d("230.00"), Unit: "kg"},
	{Name: "Beans", Symbol: "BEANS", Price: d("410.00"), Unit: "kg"},
	{Name: "Coffee", Symbol: "COFFEE", Price: d("890.00"), Unit: "kg"},
	{Name: "Sugarcane", Symbol: "CANE", Price: d("95.50"), Unit: "ton"},
	{Name: "Milk", Symbol: "MILK", Price: d("26.00"), Unit: "liter"},
	{Name: "Eggs", Symbol: "EGGS", Price: d("48.00"), Unit: "dozen"},
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Baseline returns a copy of the baseline dataset.
func Baseline() []CommodityQuote {
	out := make([]CommodityQuote, len(baseline))
	copy(out, baseline)
	return out
}
