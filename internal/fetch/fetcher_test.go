package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abelbrown/newsdesk/internal/news"
	"github.com/abelbrown/newsdesk/internal/relay"
)

// countingRelay wraps an httptest server in a relay descriptor and
// counts how many times it was hit.
func countingRelay(t *testing.T, name string, handler http.HandlerFunc) (relay.Relay, *atomic.Int64, func()) {
	t.Helper()
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	return relay.Relay{
		Name:   name,
		Build:  func(target string) string { return server.URL + "/?url=" + target },
		Decode: relay.RawBody,
	}, &hits, server.Close
}

func serveRSS(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(sampleRSS))
}

func serveError(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusBadGateway)
}

func serve429(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTooManyRequests)
}

func newTestFetcher(relays ...relay.Relay) *Fetcher {
	return New(Options{
		Relays:  relays,
		Timeout: 2 * time.Second,
	})
}

func TestFetchFallsThroughFailingRelays(t *testing.T) {
	bad, badHits, closeBad := countingRelay(t, "bad", serveError)
	defer closeBad()
	good, goodHits, closeGood := countingRelay(t, "good", serveRSS)
	defer closeGood()
	spare, spareHits, closeSpare := countingRelay(t, "spare", serveRSS)
	defer closeSpare()

	f := newTestFetcher(bad, good, spare)
	src := news.Source{Name: "Test Feed", URL: "https://example.com/rss", Category: "tech"}

	items := f.Fetch(context.Background(), src)
	if len(items) == 0 {
		t.Fatal("expected items from the second relay")
	}

	if badHits.Load() != 1 {
		t.Errorf("failing relay hit %d times, want 1", badHits.Load())
	}
	if goodHits.Load() != 1 {
		t.Errorf("working relay hit %d times, want 1", goodHits.Load())
	}
	if spareHits.Load() != 0 {
		t.Errorf("later relay hit %d times, want 0 after a success", spareHits.Load())
	}
}

func TestFetchSkipsRateLimitedRelay(t *testing.T) {
	limited, _, closeLimited := countingRelay(t, "limited", serve429)
	defer closeLimited()
	good, _, closeGood := countingRelay(t, "good", serveRSS)
	defer closeGood()

	f := newTestFetcher(limited, good)
	src := news.Source{Name: "Test Feed", URL: "https://example.com/rss"}

	if items := f.Fetch(context.Background(), src); len(items) == 0 {
		t.Fatal("rate-limited relay should be skipped, not terminal")
	}
}

func TestFetchAllRelaysFail(t *testing.T) {
	bad1, _, close1 := countingRelay(t, "bad1", serveError)
	defer close1()
	bad2, _, close2 := countingRelay(t, "bad2", serveError)
	defer close2()

	f := newTestFetcher(bad1, bad2)
	src := news.Source{Name: "Doomed", URL: "https://example.com/rss"}

	if items := f.Fetch(context.Background(), src); items != nil {
		t.Errorf("expected nil for a source failing on every relay, got %d items", len(items))
	}
}

func TestFetchServesFromCache(t *testing.T) {
	good, hits, closeGood := countingRelay(t, "good", serveRSS)
	defer closeGood()

	f := newTestFetcher(good)
	src := news.Source{Name: "Test Feed", URL: "https://example.com/rss"}

	first := f.Fetch(context.Background(), src)
	second := f.Fetch(context.Background(), src)

	if hits.Load() != 1 {
		t.Errorf("relay hit %d times, want 1 (second fetch should be a cache hit)", hits.Load())
	}
	if len(first) == 0 {
		t.Fatal("first fetch returned no items")
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("cached items differ from the original fetch:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestFetchCacheExpiry(t *testing.T) {
	good, hits, closeGood := countingRelay(t, "good", serveRSS)
	defer closeGood()

	f := New(Options{
		Relays:   []relay.Relay{good},
		CacheTTL: 5 * time.Minute,
		Timeout:  2 * time.Second,
	})

	base := time.Now()
	current := base
	f.now = func() time.Time { return current }

	src := news.Source{Name: "Test Feed", URL: "https://example.com/rss"}

	f.Fetch(context.Background(), src)

	// Just inside the TTL: still a cache hit.
	current = base.Add(4 * time.Minute)
	f.Fetch(context.Background(), src)
	if hits.Load() != 1 {
		t.Fatalf("relay hit %d times inside TTL, want 1", hits.Load())
	}

	// Past the TTL: refetched.
	current = base.Add(6 * time.Minute)
	f.Fetch(context.Background(), src)
	if hits.Load() != 2 {
		t.Errorf("relay hit %d times after TTL expiry, want 2", hits.Load())
	}
}

func TestFetchCancelledContext(t *testing.T) {
	good, hits, closeGood := countingRelay(t, "good", serveRSS)
	defer closeGood()

	f := newTestFetcher(good)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if items := f.Fetch(ctx, news.Source{Name: "x", URL: "https://example.com/rss"}); items != nil {
		t.Error("cancelled context should yield no items")
	}
	if hits.Load() != 0 {
		t.Errorf("relay hit %d times with a cancelled context", hits.Load())
	}
}
