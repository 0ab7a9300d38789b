package agg

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/abelbrown/newsdesk/internal/news"
)

// mockFetcher returns canned items per source name.
type mockFetcher struct {
	mu      sync.Mutex
	results map[string][]news.Item
	calls   []string
}

func (m *mockFetcher) Fetch(ctx context.Context, src news.Source) []news.Item {
	m.mu.Lock()
	m.calls = append(m.calls, src.Name)
	m.mu.Unlock()
	return m.results[src.Name]
}

func itemAt(title, url string, age time.Duration) news.Item {
	return news.Item{Title: title, URL: url, Published: time.Now().Add(-age)}
}

func TestFetchAllMergesAndSorts(t *testing.T) {
	fetcher := &mockFetcher{results: map[string][]news.Item{
		"a": {
			itemAt("old", "https://a.example/old", 48*time.Hour),
			itemAt("newest", "https://a.example/new", time.Hour),
		},
		"b": {
			itemAt("middle", "https://b.example/mid", 12*time.Hour),
		},
	}}

	s := NewScheduler(fetcher, []news.Source{{Name: "a"}, {Name: "b"}}, nil)
	snap := s.FetchAll(context.Background())

	if snap.Succeeded != 2 || snap.Failed != 0 {
		t.Errorf("succeeded=%d failed=%d, want 2/0", snap.Succeeded, snap.Failed)
	}
	if len(snap.Items) != 3 {
		t.Fatalf("got %d items, want 3", len(snap.Items))
	}
	for i := 1; i < len(snap.Items); i++ {
		if snap.Items[i].Published.After(snap.Items[i-1].Published) {
			t.Errorf("items not sorted newest first at index %d", i)
		}
	}
	if snap.Items[0].Title != "newest" {
		t.Errorf("first item = %q, want %q", snap.Items[0].Title, "newest")
	}
}

func TestFetchAllPartialFailure(t *testing.T) {
	fetcher := &mockFetcher{results: map[string][]news.Item{
		"ok": {itemAt("x", "https://ok.example/x", time.Hour)},
		// "down" absent: fetch returns nil.
	}}

	s := NewScheduler(fetcher, []news.Source{{Name: "ok"}, {Name: "down"}}, nil)
	snap := s.FetchAll(context.Background())

	if snap.Succeeded != 1 {
		t.Errorf("succeeded = %d, want 1", snap.Succeeded)
	}
	if snap.Failed != 1 {
		t.Errorf("failed = %d, want 1", snap.Failed)
	}
	if len(snap.Items) != 1 {
		t.Errorf("got %d items, want 1 from the healthy source", len(snap.Items))
	}
}

func TestFetchAllDeduplicates(t *testing.T) {
	shared := "https://example.com/story"
	fetcher := &mockFetcher{results: map[string][]news.Item{
		"a": {
			{Title: "Breaking story", URL: shared, Published: time.Now().Add(-time.Hour), SourceName: "a"},
			{Title: "Same headline", Published: time.Now().Add(-2 * time.Hour), SourceName: "a"},
		},
		"b": {
			{Title: "Breaking story again", URL: shared, Published: time.Now().Add(-time.Hour), SourceName: "b"},
			{Title: "Same headline", Published: time.Now().Add(-3 * time.Hour), SourceName: "b"},
		},
	}}

	s := NewScheduler(fetcher, []news.Source{{Name: "a"}, {Name: "b"}}, nil)
	snap := s.FetchAll(context.Background())

	if len(snap.Items) != 2 {
		t.Fatalf("got %d items, want 2 after dedup", len(snap.Items))
	}
	byURL := 0
	for _, item := range snap.Items {
		if item.URL == shared {
			byURL++
		}
	}
	if byURL != 1 {
		t.Errorf("URL duplicate kept %d times, want 1", byURL)
	}
}

func TestFetchAllEmptySources(t *testing.T) {
	s := NewScheduler(&mockFetcher{}, nil, nil)
	snap := s.FetchAll(context.Background())
	if snap.Succeeded != 0 || snap.Failed != 0 || len(snap.Items) != 0 {
		t.Errorf("empty source list produced %+v", snap)
	}
}

// slowFetcher blocks to surface the concurrency ceiling.
type slowFetcher struct {
	inflight atomic.Int64
	peak     atomic.Int64
}

func (s *slowFetcher) Fetch(ctx context.Context, src news.Source) []news.Item {
	cur := s.inflight.Add(1)
	for {
		peak := s.peak.Load()
		if cur <= peak || s.peak.CompareAndSwap(peak, cur) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	s.inflight.Add(-1)
	return []news.Item{{Title: src.Name, URL: "https://x/" + src.Name, Published: time.Now()}}
}

func TestFetchAllBoundsConcurrency(t *testing.T) {
	fetcher := &slowFetcher{}
	sources := make([]news.Source, 12)
	for i := range sources {
		sources[i] = news.Source{Name: string(rune('a' + i))}
	}

	s := NewScheduler(fetcher, sources, nil)
	s.FetchAll(context.Background())

	if peak := fetcher.peak.Load(); peak > maxConcurrentFetches {
		t.Errorf("peak concurrency %d exceeds limit %d", peak, maxConcurrentFetches)
	}
}
