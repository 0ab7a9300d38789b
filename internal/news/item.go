// Package news defines the normalized item model shared by the fetch
// pipeline, the aggregation scheduler, and all consumers.
package news

import "time"

// ArxivSentinel is the reserved Source.URL value that routes a source
// through the arXiv search API instead of the generic relay/RSS path.
const ArxivSentinel = "arxiv"

// Source is one configured feed provider.
// Sources are loaded once at startup and never mutated.
type Source struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
}

// Item is a single normalized news record.
//
// Published is the raw timestamp and the only field sorting ever looks
// at; PublishedDisplay is derived formatting for rendering. Keeping the
// two separate means locale-aware display can never break sort order.
type Item struct {
	Title            string
	Summary          string
	URL              string
	Published        time.Time
	PublishedDisplay string
	SourceName       string
	Category         string

	// Raw feed values before scrubbing, kept for detail views.
	OriginalTitle   string
	OriginalSummary string
}

// Key returns the deduplication key for merge-time dedup.
// URL is the primary key; title is the fallback for sources that
// reuse or omit links.
func (it Item) Key() string {
	if it.URL != "" {
		return it.URL
	}
	return "title:" + it.Title
}

// Snapshot is the complete result of one aggregation cycle across all
// sources, sorted newest-first. It is published atomically: subscribers
// never observe a partially built snapshot.
type Snapshot struct {
	Items     []Item
	Fetched   time.Time
	Succeeded int
	Failed    int
}

// Freshest returns the newest Published time in the snapshot,
// or the zero time if the snapshot is empty.
func (s Snapshot) Freshest() time.Time {
	var freshest time.Time
	for _, it := range s.Items {
		if it.Published.After(freshest) {
			freshest = it.Published
		}
	}
	return freshest
}

// DisplayTime formats a publish time for rendering. Returns "" for the
// zero time so items without a parseable date render blank rather than
// a bogus epoch.
func DisplayTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("Jan 2, 2006 15:04")
}
