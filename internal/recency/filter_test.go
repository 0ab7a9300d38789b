package recency

import (
	"testing"
	"time"

	"github.com/abelbrown/newsdesk/internal/news"
)

func TestFilterAtBoundary(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	window := 14 * 24 * time.Hour
	cutoff := now.Add(-window)

	items := []news.Item{
		{Title: "just inside", Published: cutoff.Add(time.Second)},
		{Title: "exactly at cutoff", Published: cutoff},
		{Title: "just outside", Published: cutoff.Add(-time.Second)},
		{Title: "fresh", Published: now.Add(-time.Hour)},
		{Title: "undated"},
	}

	kept := FilterAt(items, window, now)

	if len(kept) != 2 {
		t.Fatalf("kept %d items, want 2", len(kept))
	}
	for _, item := range kept {
		if item.Title != "just inside" && item.Title != "fresh" {
			t.Errorf("unexpected item kept: %q", item.Title)
		}
	}
}

func TestFilterAtIdempotent(t *testing.T) {
	now := time.Now()
	items := []news.Item{
		{Title: "a", Published: now.Add(-time.Hour)},
		{Title: "b", Published: now.Add(-30 * 24 * time.Hour)},
		{Title: "c", Published: now.Add(-2 * time.Hour)},
	}

	once := FilterAt(items, DefaultWindow, now)
	twice := FilterAt(once, DefaultWindow, now)

	if len(once) != len(twice) {
		t.Errorf("second pass changed the result: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].Title != twice[i].Title {
			t.Errorf("item %d changed between passes", i)
		}
	}
}

func TestFilterDropsUndated(t *testing.T) {
	items := []news.Item{{Title: "undated"}}
	if kept := Filter(items, DefaultWindow); len(kept) != 0 {
		t.Errorf("undated item survived the filter")
	}
}

func TestFallback(t *testing.T) {
	now := time.Now()
	items := []news.Item{
		{Title: "oldest", Published: now.Add(-72 * time.Hour)},
		{Title: "newest", Published: now.Add(-time.Hour)},
		{Title: "middle", Published: now.Add(-24 * time.Hour)},
	}

	top := Fallback(items, 2)
	if len(top) != 2 {
		t.Fatalf("got %d items, want 2", len(top))
	}
	if top[0].Title != "newest" || top[1].Title != "middle" {
		t.Errorf("fallback order wrong: %q, %q", top[0].Title, top[1].Title)
	}

	// Input order untouched.
	if items[0].Title != "oldest" {
		t.Error("Fallback mutated its input")
	}
}

func TestFallbackDefaultCount(t *testing.T) {
	items := make([]news.Item, 30)
	for i := range items {
		items[i] = news.Item{Published: time.Now().Add(-time.Duration(i) * time.Hour)}
	}
	if got := Fallback(items, 0); len(got) != FallbackCount {
		t.Errorf("got %d items, want %d", len(got), FallbackCount)
	}
}
