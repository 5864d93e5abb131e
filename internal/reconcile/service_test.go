package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"farm-price-alerts/internal/alerting"
	"farm-price-alerts/internal/catalog"
	"farm-price-alerts/internal/quotes"
)

type staticProvider []quotes.CommodityQuote

func (p staticProvider) Quotes(ctx context.Context) ([]quotes.CommodityQuote, error) {
	return p, nil
}

type captureSink struct {
	batches [][]alerting.Alert
	err     error
}

func (s *captureSink) InsertAlerts(ctx context.Context, alerts []alerting.Alert) error {
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, alerts)
	return nil
}

type failingSource struct{}

func (failingSource) ListCatalog(ctx context.Context) ([]catalog.Item, error) {
	return nil, errors.New("catalog store unreachable")
}

func item(id, owner, name, price string, kind catalog.Kind) catalog.Item {
	return catalog.Item{ID: id, OwnerID: owner, Name: name, Price: dec(price), Currency: "MXN", Kind: kind}
}

func newTestService(src catalog.Source, sink alerting.Sink) *Service {
	return New(src, staticProvider(quotes.Baseline()), nil, sink, nil, zerolog.Nop())
}

func TestRunClassifiesAndAlerts(t *testing.T) {
	src := catalog.StaticSource{
		item("p1", "farmer-a", "Tomato", "350", catalog.KindProduct),  // +24.78% too_high
		item("p2", "farmer-a", "Tomato", "290", catalog.KindProduct),  // +3.39% optimal
		item("r1", "farmer-b", "Tomato", "300", catalog.KindResource), // +6.95% volatile
	}
	sink := &captureSink{}

	report, err := newTestService(src, sink).Run(context.Background())
	if err != nil {
		t.Fatalf("run should succeed: %v", err)
	}

	if report.TotalAnalyzed != 3 || len(report.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", report.TotalAnalyzed)
	}
	wantStatus := []Status{StatusTooHigh, StatusOptimal, StatusVolatile}
	for i, want := range wantStatus {
		if report.Results[i].Status != want {
			t.Fatalf("result %d: got %s, want %s", i, report.Results[i].Status, want)
		}
	}

	// Exactly one alert per non-optimal result, in the same run.
	if report.AlertsSent != 2 {
		t.Fatalf("alertsSent: got %d, want 2", report.AlertsSent)
	}
	if len(sink.batches) != 1 || len(sink.batches[0]) != 2 {
		t.Fatalf("expected one batch of 2 alerts, got %#v", sink.batches)
	}

	first := sink.batches[0][0]
	if first.TargetUserID != "farmer-a" {
		t.Fatalf("alert target: got %s, want farmer-a", first.TargetUserID)
	}
	if first.Type != alerting.TypePriceAlert {
		t.Fatalf("alert type: got %s", first.Type)
	}
	if first.Read {
		t.Fatal("alerts start unread")
	}
	if first.Market.Status != string(StatusTooHigh) {
		t.Fatalf("alert status: got %s", first.Market.Status)
	}
}

func TestRunSkipsUnmatchedAndMalformed(t *testing.T) {
	src := catalog.StaticSource{
		item("p1", "farmer-a", "Quantum Widget", "100", catalog.KindProduct), // no quote
		item("p2", "farmer-a", "", "100", catalog.KindProduct),               // missing name
		item("p3", "farmer-a", "Tomato", "0", catalog.KindProduct),           // missing price
		item("p4", "farmer-a", "Tomato", "290", catalog.KindProduct),         // the one good item
	}
	sink := &captureSink{}

	report, err := newTestService(src, sink).Run(context.Background())
	if err != nil {
		t.Fatalf("skips must not fail the run: %v", err)
	}
	if report.TotalAnalyzed != 1 {
		t.Fatalf("expected 1 analyzed item, got %d", report.TotalAnalyzed)
	}
	if report.AlertsSent != 0 || len(sink.batches) != 0 {
		t.Fatalf("optimal-only run must emit no alerts: %#v", report)
	}
}

func TestRunWheatSeedAliasPrecedence(t *testing.T) {
	src := catalog.StaticSource{
		item("p1", "farmer-a", "Wheat Seed", "300", catalog.KindProduct),
	}
	sink := &captureSink{}

	report, err := newTestService(src, sink).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalAnalyzed != 1 {
		t.Fatalf("wheat seed should be analyzed, got %d results", report.TotalAnalyzed)
	}
	// Resolved against the Seeds quote (155.00), not Wheat (280.50).
	if got := report.Results[0].CommodityName; got != "Seeds" {
		t.Fatalf("wheat seed resolved to %q, want Seeds", got)
	}
	if report.Results[0].Status != StatusTooHigh {
		t.Fatalf("300 vs 155: got %s, want %s", report.Results[0].Status, StatusTooHigh)
	}
}

func TestRunDeliveryFailureStillReturnsResults(t *testing.T) {
	src := catalog.StaticSource{
		item("p1", "farmer-a", "Tomato", "350", catalog.KindProduct),
	}
	sink := &captureSink{err: errors.New("sink down")}

	report, err := newTestService(src, sink).Run(context.Background())
	if !errors.Is(err, ErrAlertDelivery) {
		t.Fatalf("expected ErrAlertDelivery, got %v", err)
	}
	if report.TotalAnalyzed != 1 || len(report.Results) != 1 {
		t.Fatalf("results must survive a delivery failure: %#v", report)
	}
	if report.AlertsSent != 0 {
		t.Fatalf("alertsSent must be 0 on delivery failure, got %d", report.AlertsSent)
	}
}

func TestRunCatalogFailureIsFatal(t *testing.T) {
	report, err := newTestService(failingSource{}, &captureSink{}).Run(context.Background())
	if err == nil {
		t.Fatal("catalog failure must fail the run")
	}
	if errors.Is(err, ErrAlertDelivery) {
		t.Fatal("catalog failure must not be reported as a delivery failure")
	}
	if len(report.Results) != 0 {
		t.Fatalf("no partial results on a fatal failure: %#v", report)
	}
}

func TestRunSkipsZeroPricedQuote(t *testing.T) {
	// A garbage market price makes the percentage undefined; the item is
	// excluded rather than classified.
	provider := staticProvider{
		{Name: "Tomato", Symbol: "TOMATO", Price: dec("0"), Unit: "kg"},
	}
	src := catalog.StaticSource{
		item("p1", "farmer-a", "Tomato", "290", catalog.KindProduct),
	}
	svc := New(src, provider, nil, &captureSink{}, nil, zerolog.Nop())

	report, err := svc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.TotalAnalyzed != 0 {
		t.Fatalf("zero market price must exclude the item, got %d results", report.TotalAnalyzed)
	}
}

func TestRunAlertPerNonOptimalInvariant(t *testing.T) {
	src := catalog.StaticSource{
		item("p1", "a", "Tomato", "350", catalog.KindProduct),
		item("p2", "b", "Wheat", "200", catalog.KindProduct),
		item("p3", "c", "Rice", "345", catalog.KindProduct),
		item("p4", "d", "Corn", "400", catalog.KindProduct),
	}
	sink := &captureSink{}

	report, err := newTestService(src, sink).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	nonOptimal := 0
	for _, r := range report.Results {
		if r.Status != StatusOptimal {
			nonOptimal++
		}
	}
	if nonOptimal == 0 {
		t.Fatal("fixture should produce non-optimal results")
	}
	if report.AlertsSent != nonOptimal {
		t.Fatalf("alerts (%d) must equal non-optimal results (%d)", report.AlertsSent, nonOptimal)
	}
}
