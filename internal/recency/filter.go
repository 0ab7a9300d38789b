// Package recency drops stale items from merged snapshots.
package recency

import (
	"sort"
	"time"

	"github.com/abelbrown/newsdesk/internal/news"
)

// DefaultWindow is how far back an item may be dated and still shown.
const DefaultWindow = 14 * 24 * time.Hour

// FallbackCount is how many items Fallback keeps when the window
// filter empties the list.
const FallbackCount = 20

// FilterAt keeps items published strictly after now minus window.
// Items with a zero timestamp are always dropped.
func FilterAt(items []news.Item, window time.Duration, now time.Time) []news.Item {
	if window <= 0 {
		window = DefaultWindow
	}
	cutoff := now.Add(-window)

	kept := make([]news.Item, 0, len(items))
	for _, item := range items {
		if item.Published.After(cutoff) {
			kept = append(kept, item)
		}
	}
	return kept
}

// Filter applies FilterAt against the current time.
func Filter(items []news.Item, window time.Duration) []news.Item {
	return FilterAt(items, window, time.Now())
}

// Fallback returns the n most recent items regardless of the window.
// Used when filtering leaves nothing to show. The input is not
// modified.
func Fallback(items []news.Item, n int) []news.Item {
	if n <= 0 {
		n = FallbackCount
	}

	sorted := make([]news.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Published.After(sorted[j].Published)
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
