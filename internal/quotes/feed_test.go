package quotes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testFeed(t *testing.T, body string, status int) *Feed {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewFeed(FeedOptions{BaseURL: srv.URL, Timeout: time.Second, UserAgent: "test"}, zerolog.Nop())
}

func TestFeedFetchBareArray(t *testing.T) {
	feed := testFeed(t, `[{"name":"Barley","symbol":"BARLEY","price":198.75,"unit":"kg"}]`, http.StatusOK)

	got, err := feed.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if len(got) != 1 || got[0].Symbol != "BARLEY" {
		t.Fatalf("unexpected quotes: %#v", got)
	}
	if got[0].Price.String() != "198.75" {
		t.Fatalf("price mismatch: %s", got[0].Price.String())
	}
}

func TestFeedFetchDataEnvelope(t *testing.T) {
	feed := testFeed(t, `{"data":[{"name":"Oats","price":"142.50","unit":"kg"}]}`, http.StatusOK)

	got, err := feed.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Oats" {
		t.Fatalf("unexpected quotes: %#v", got)
	}
}

func TestFeedFetchMalformedPayload(t *testing.T) {
	cases := map[string]string{
		"not json":           `<html>oops</html>`,
		"object not array":   `{"quotes":"all of them"}`,
		"missing identity":   `[{"price":10,"unit":"kg"}]`,
		"zero price":         `[{"name":"Oats","price":0}]`,
		"negative price":     `[{"name":"Oats","price":-5}]`,
		"price not a number": `[{"name":"Oats","price":"cheap"}]`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			feed := testFeed(t, body, http.StatusOK)
			if _, err := feed.Fetch(context.Background()); err == nil {
				t.Fatalf("payload %q should fail closed", body)
			}
		})
	}
}

func TestFeedFetchHTTPError(t *testing.T) {
	feed := testFeed(t, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	if _, err := feed.Fetch(context.Background()); err == nil {
		t.Fatal("non-2xx status should be an error")
	}
}

func TestFeedFetchNoBaseURL(t *testing.T) {
	feed := NewFeed(FeedOptions{}, zerolog.Nop())
	if _, err := feed.Fetch(context.Background()); err == nil {
		t.Fatal("missing base url should be an error")
	}
}
