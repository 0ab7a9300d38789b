// Package agg fans fetches out across all configured sources and
// merges the results into one deduplicated, recency-sorted snapshot.
package agg

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/newsdesk/internal/journal"
	"github.com/abelbrown/newsdesk/internal/logging"
	"github.com/abelbrown/newsdesk/internal/news"
)

// maxConcurrentFetches bounds parallel source fetches so the relay
// endpoints see a polite request rate.
const maxConcurrentFetches = 5

// sourceFetcher is the per-source fetch dependency.
type sourceFetcher interface {
	Fetch(ctx context.Context, src news.Source) []news.Item
}

// Scheduler runs one aggregation cycle over a fixed source list.
type Scheduler struct {
	fetcher sourceFetcher
	journal *journal.Journal
	sources []news.Source
}

// NewScheduler creates a Scheduler. The source list is copied and
// never mutated afterward.
func NewScheduler(fetcher sourceFetcher, sources []news.Source, jrnl *journal.Journal) *Scheduler {
	if jrnl == nil {
		jrnl = journal.NewNull()
	}
	copied := make([]news.Source, len(sources))
	copy(copied, sources)
	return &Scheduler{
		fetcher: fetcher,
		journal: jrnl,
		sources: copied,
	}
}

// Sources returns the configured source list.
func (s *Scheduler) Sources() []news.Source {
	out := make([]news.Source, len(s.sources))
	copy(out, s.sources)
	return out
}

// FetchAll fetches every source concurrently and merges the results.
// A source returning zero items counts as failed; the snapshot is
// still produced from whatever succeeded. Items are deduplicated by
// key, first occurrence wins, then sorted newest first.
func (s *Scheduler) FetchAll(ctx context.Context) news.Snapshot {
	start := time.Now()

	results := make([][]news.Item, len(s.sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for i, src := range s.sources {
		i, src := i, src
		g.Go(func() error {
			results[i] = s.fetcher.Fetch(gctx, src)
			return nil
		})
	}
	g.Wait()

	snap := news.Snapshot{Fetched: time.Now()}
	seen := make(map[string]bool)
	for _, items := range results {
		if len(items) == 0 {
			snap.Failed++
			continue
		}
		snap.Succeeded++
		for _, item := range items {
			key := item.Key()
			if key == "title:" || seen[key] {
				continue
			}
			seen[key] = true
			snap.Items = append(snap.Items, item)
		}
	}

	sort.SliceStable(snap.Items, func(i, j int) bool {
		return snap.Items[i].Published.After(snap.Items[j].Published)
	})

	logging.Info("aggregation cycle done",
		"sources", len(s.sources),
		"succeeded", snap.Succeeded,
		"failed", snap.Failed,
		"items", len(snap.Items),
		"elapsed", time.Since(start))
	s.journal.Emit(journal.Event{
		Level: journal.LevelInfo,
		Kind:  journal.KindCycle,
		Comp:  "agg",
		Count: len(snap.Items),
		Dur:   time.Since(start),
	})

	return snap
}
