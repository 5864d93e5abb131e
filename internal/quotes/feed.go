package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Fetcher retrieves reference quotes from a remote price feed.
type Fetcher interface {
	Fetch(ctx context.Context) ([]CommodityQuote, error)
}

// FeedOptions parameterise the HTTP feed client.
type FeedOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Feed fetches the external commodity price list over HTTP. The feed is
// best-effort; every failure mode here surfaces as an error so the cache can
// fall back to the baseline dataset.
type Feed struct {
	opts   FeedOptions
	logger zerolog.Logger
	client *http.Client
	url    string
}

// NewFeed constructs the HTTP feed client.
func NewFeed(opts FeedOptions, logger zerolog.Logger) *Feed {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Feed{
		opts:   opts,
		logger: logger.With().Str("component", "quote_feed").Logger(),
		client: &http.Client{Timeout: timeout},
		url:    strings.TrimRight(opts.BaseURL, "/"),
	}
}

// Fetch performs one GET against the feed and decodes the quote list. The
// decode fails closed: any payload that is not a JSON array (bare or wrapped
// in a {"data": [...]} envelope) of well-formed records is a fetch failure.
func (f *Feed) Fetch(ctx context.Context) ([]CommodityQuote, error) {
	if f.url == "" {
		return nil, errors.New("feed base url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(f.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "cropwatcher/1.0")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseFeedError(resp.StatusCode, payload)
	}

	return decodeFeedPayload(payload)
}

type feedRecord struct {
	Name   string          `json:"name"`
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Unit   string          `json:"unit"`
}

func decodeFeedPayload(payload []byte) ([]CommodityQuote, error) {
	var records []feedRecord

	var envelope struct {
		Data []feedRecord `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Data != nil {
		records = envelope.Data
	} else {
		if err := json.Unmarshal(payload, &records); err != nil {
			return nil, fmt.Errorf("decode feed payload: %w", err)
		}
	}

	out := make([]CommodityQuote, 0, len(records))
	for i, rec := range records {
		if strings.TrimSpace(rec.Name) == "" && strings.TrimSpace(rec.Symbol) == "" {
			return nil, fmt.Errorf("feed record %d has neither name nor symbol", i)
		}
		if !rec.Price.IsPositive() {
			return nil, fmt.Errorf("feed record %d (%s) has non-positive price %s", i, rec.Name, rec.Price.String())
		}
		out = append(out, CommodityQuote{
			Name:   strings.TrimSpace(rec.Name),
			Symbol: strings.TrimSpace(rec.Symbol),
			Price:  rec.Price,
			Unit:   strings.TrimSpace(rec.Unit),
		})
	}

	return out, nil
}

type feedErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func parseFeedError(status int, payload []byte) error {
	var apiErr feedErrorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Error != "" {
			return fmt.Errorf("feed error (%d): %s", status, apiErr.Error)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("feed error (%d): %s", status, apiErr.Message)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("feed error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("feed error (%d)", status)
}

var _ Fetcher = (*Feed)(nil)
