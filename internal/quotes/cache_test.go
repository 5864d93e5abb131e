package quotes

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type fakeFetcher struct {
	calls   atomic.Int64
	delay   time.Duration
	blockCh chan struct{}
	quotes  []CommodityQuote
	err     error
}

func (f *fakeFetcher) Fetch(ctx context.Context) ([]CommodityQuote, error) {
	f.calls.Add(1)
	if f.blockCh != nil {
		select {
		case <-f.blockCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.quotes, nil
}

func externalQuote() CommodityQuote {
	return CommodityQuote{Name: "Barley", Symbol: "BARLEY", Price: decimal.RequireFromString("198.75"), Unit: "kg"}
}

func TestCacheSingleFlight(t *testing.T) {
	fetcher := &fakeFetcher{delay: 50 * time.Millisecond, quotes: []CommodityQuote{externalQuote()}}
	cache := NewCache(Baseline(), fetcher, CacheOptions{TTL: time.Hour, RefreshWait: time.Second}, zerolog.Nop())

	const workers = 16
	var wg sync.WaitGroup
	results := make([][]CommodityQuote, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := cache.Quotes(context.Background())
			if err != nil {
				t.Errorf("worker %d: %v", i, err)
				return
			}
			results[i] = got
		}(i)
	}
	wg.Wait()

	if calls := fetcher.calls.Load(); calls != 1 {
		t.Fatalf("expected exactly one feed call for a cold cache, got %d", calls)
	}
	want := len(Baseline()) + 1
	for i, got := range results {
		if len(got) != want {
			t.Fatalf("worker %d got %d quotes, want %d", i, len(got), want)
		}
	}
}

func TestCacheServesFreshSnapshotWithoutFetch(t *testing.T) {
	fetcher := &fakeFetcher{quotes: []CommodityQuote{externalQuote()}}
	cache := NewCache(Baseline(), fetcher, CacheOptions{TTL: time.Hour}, zerolog.Nop())

	for i := 0; i < 3; i++ {
		if _, err := cache.Quotes(context.Background()); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	if calls := fetcher.calls.Load(); calls != 1 {
		t.Fatalf("fresh snapshot should not refetch, got %d calls", calls)
	}
}

func TestCacheFallsBackToBaselineOnFeedError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	cache := NewCache(Baseline(), fetcher, CacheOptions{TTL: time.Hour}, zerolog.Nop())

	got, err := cache.Quotes(context.Background())
	if err != nil {
		t.Fatalf("feed failure must not surface: %v", err)
	}
	if len(got) != len(Baseline()) {
		t.Fatalf("expected baseline-only snapshot, got %d quotes", len(got))
	}
}

func TestCacheExternalQuotesAppendedAfterBaseline(t *testing.T) {
	// The baseline starts at index 0 so matching shadows external duplicates.
	fetcher := &fakeFetcher{quotes: []CommodityQuote{externalQuote()}}
	cache := NewCache(Baseline(), fetcher, CacheOptions{TTL: time.Hour}, zerolog.Nop())

	got, err := cache.Quotes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Symbol != "SEEDS" {
		t.Fatalf("baseline must lead the snapshot, got %s first", got[0].Symbol)
	}
	if got[len(got)-1].Symbol != "BARLEY" {
		t.Fatalf("external quotes must trail the snapshot, got %s last", got[len(got)-1].Symbol)
	}
}

func TestCacheServesStaleWhileRefreshIsSlow(t *testing.T) {
	release := make(chan struct{})
	fetcher := &fakeFetcher{blockCh: release, quotes: []CommodityQuote{externalQuote()}}
	cache := NewCache(Baseline(), fetcher, CacheOptions{
		TTL:          10 * time.Millisecond,
		RefreshWait:  20 * time.Millisecond,
		FetchTimeout: time.Second,
	}, zerolog.Nop())

	// Warm the cache, then let the snapshot expire.
	close(release)
	first, err := cache.Quotes(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	fetcher.blockCh = make(chan struct{})
	defer close(fetcher.blockCh)

	start := time.Now()
	got, err := cache.Quotes(context.Background())
	if err != nil {
		t.Fatalf("stale fallback must not error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("caller blocked %v on a slow refresh", elapsed)
	}
	if len(got) != len(first) {
		t.Fatalf("expected the prior snapshot, got %d quotes want %d", len(got), len(first))
	}
}

func TestCacheCurrentDoesNotRefresh(t *testing.T) {
	fetcher := &fakeFetcher{quotes: []CommodityQuote{externalQuote()}}
	cache := NewCache(Baseline(), fetcher, CacheOptions{TTL: time.Hour}, zerolog.Nop())

	if snap := cache.Current(); snap != nil {
		t.Fatalf("cold cache must have no snapshot, got %d quotes", len(snap.Quotes))
	}
	if calls := fetcher.calls.Load(); calls != 0 {
		t.Fatalf("Current must not trigger a fetch, got %d calls", calls)
	}

	if _, err := cache.Quotes(context.Background()); err != nil {
		t.Fatal(err)
	}

	snap := cache.Current()
	if snap == nil || len(snap.Quotes) != len(Baseline())+1 {
		t.Fatalf("Current should expose the refreshed snapshot: %#v", snap)
	}
	if snap.FetchedAt.IsZero() {
		t.Fatal("snapshot must carry its fetch time")
	}
}

func TestCacheCancelledColdCall(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	fetcher := &fakeFetcher{blockCh: release, quotes: []CommodityQuote{externalQuote()}}
	cache := NewCache(Baseline(), fetcher, CacheOptions{TTL: time.Hour, FetchTimeout: time.Minute}, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := cache.Quotes(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("cold cancelled call should return ctx error, got %v", err)
	}
}
