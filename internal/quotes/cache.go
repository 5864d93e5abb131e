package quotes

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"farm-price-alerts/internal/metrics"
)

const refreshKey = "quote-refresh"

// CacheOptions tune snapshot lifetime and refresh patience.
type CacheOptions struct {
	// TTL is how long a snapshot stays valid.
	TTL time.Duration
	// RefreshWait bounds how long a caller with a stale snapshot waits for an
	// in-flight refresh before being served the stale data instead.
	RefreshWait time.Duration
	// FetchTimeout bounds the external feed call inside a refresh.
	FetchTimeout time.Duration
}

// Cache holds the current quote snapshot. Reads are lock-free; refreshes are
// deduplicated through a single-flight group so concurrent expiry triggers
// exactly one feed call. The snapshot pointer is swapped atomically, so a
// reader never observes a partially built list.
type Cache struct {
	baseline []CommodityQuote
	fetcher  Fetcher
	opts     CacheOptions
	logger   zerolog.Logger

	group singleflight.Group
	snap  atomic.Pointer[Snapshot]
}

// NewCache constructs a cache over the given baseline and optional fetcher.
// A nil fetcher disables the external feed entirely.
func NewCache(baseline []CommodityQuote, fetcher Fetcher, opts CacheOptions, logger zerolog.Logger) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.RefreshWait <= 0 {
		opts.RefreshWait = 2 * time.Second
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Second
	}

	return &Cache{
		baseline: baseline,
		fetcher:  fetcher,
		opts:     opts,
		logger:   logger.With().Str("component", "quote_cache").Logger(),
	}
}

// Quotes returns the current quote list, refreshing the snapshot if it has
// expired. Callers holding a prior snapshot are never blocked longer than
// RefreshWait by a slow feed; they get the stale list instead. Only a cold
// cache waits for the full refresh, and that refresh cannot fail because the
// baseline dataset always loads.
func (c *Cache) Quotes(ctx context.Context) ([]CommodityQuote, error) {
	if snap := c.snap.Load(); snap != nil && c.fresh(snap) {
		return snap.Quotes, nil
	}

	ch := c.group.DoChan(refreshKey, func() (interface{}, error) {
		return c.refresh(), nil
	})

	stale := c.snap.Load()
	var staleAfter <-chan time.Time
	if stale != nil {
		timer := time.NewTimer(c.opts.RefreshWait)
		defer timer.Stop()
		staleAfter = timer.C
	}

	select {
	case res := <-ch:
		return res.Val.(*Snapshot).Quotes, nil
	case <-staleAfter:
		c.logger.Warn().
			Time("fetched_at", stale.FetchedAt).
			Msg("refresh exceeded wait budget; serving stale snapshot")
		return stale.Quotes, nil
	case <-ctx.Done():
		if stale != nil {
			return stale.Quotes, nil
		}
		return nil, ctx.Err()
	}
}

// Current returns the snapshot as-is, without triggering a refresh. Nil until
// the first refresh completes.
func (c *Cache) Current() *Snapshot {
	return c.snap.Load()
}

func (c *Cache) fresh(s *Snapshot) bool {
	return time.Since(s.FetchedAt) < c.opts.TTL
}

// refresh rebuilds the snapshot: baseline first, then the external list
// appended on success. The feed call is detached from caller contexts so one
// cancelled request cannot abort a refresh other callers are waiting on.
func (c *Cache) refresh() *Snapshot {
	merged := make([]CommodityQuote, len(c.baseline), len(c.baseline)*2)
	copy(merged, c.baseline)

	source := "baseline"
	if c.fetcher != nil {
		fetchCtx, cancel := context.WithTimeout(context.Background(), c.opts.FetchTimeout)
		defer cancel()

		external, err := c.fetcher.Fetch(fetchCtx)
		if err != nil {
			metrics.FeedFailures.Inc()
			c.logger.Warn().Err(err).Msg("external feed unavailable; using baseline only")
		} else {
			merged = append(merged, external...)
			source = "merged"
		}
	}

	snap := &Snapshot{Quotes: merged, FetchedAt: time.Now().UTC()}
	c.snap.Store(snap)
	metrics.QuoteRefreshes.WithLabelValues(source).Inc()
	c.logger.Debug().Int("quotes", len(merged)).Str("source", source).Msg("quote snapshot refreshed")
	return snap
}
