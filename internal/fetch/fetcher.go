// Package fetch retrieves and normalizes feed content from configured
// sources, going through public CORS relays for regular feeds and the
// arXiv API directly.
package fetch

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/newsdesk/internal/journal"
	"github.com/abelbrown/newsdesk/internal/logging"
	"github.com/abelbrown/newsdesk/internal/news"
	"github.com/abelbrown/newsdesk/internal/relay"
)

// maxFetchBody caps response bodies read from direct feed endpoints.
const maxFetchBody = 4 << 20

// Options configures a Fetcher. Zero values pick sane defaults.
type Options struct {
	Relays   []relay.Relay
	CacheTTL time.Duration
	Timeout  time.Duration
	Limiter  *rate.Limiter
	Journal  *journal.Journal
}

// Fetcher retrieves items for a single source, walking the relay
// chain in order until one yields a non-empty result. Successful
// results are cached per source URL.
type Fetcher struct {
	relays  []relay.Relay
	client  *relay.Client
	arxiv   *ArxivClient
	cache   *ttlCache
	journal *journal.Journal

	now func() time.Time
}

// New creates a Fetcher from opts.
func New(opts Options) *Fetcher {
	relays := opts.Relays
	if len(relays) == 0 {
		relays = relay.DefaultRelays()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = relay.DefaultTimeout
	}
	jrnl := opts.Journal
	if jrnl == nil {
		jrnl = journal.NewNull()
	}

	return &Fetcher{
		relays:  relays,
		client:  relay.NewClient(timeout, opts.Limiter),
		arxiv:   NewArxivClient(timeout),
		cache:   newTTLCache(opts.CacheTTL),
		journal: jrnl,
		now:     time.Now,
	}
}

// Fetch returns normalized items for src. It never returns an error:
// a source that fails on every relay simply contributes no items, and
// the failure is journaled. Cache hits skip the network entirely.
func (f *Fetcher) Fetch(ctx context.Context, src news.Source) []news.Item {
	start := f.now()

	if cached := f.cache.get(src.URL, start); cached != nil {
		f.journal.Emit(journal.Event{
			Level:  journal.LevelDebug,
			Kind:   journal.KindSourceCacheHit,
			Comp:   "fetch",
			Source: src.Name,
			Count:  len(cached),
		})
		return cached
	}

	var items []news.Item
	if src.URL == news.ArxivSentinel {
		items = f.fetchArxiv(ctx, src)
	} else {
		items = f.fetchViaRelays(ctx, src)
	}

	if len(items) == 0 {
		f.journal.Emit(journal.Event{
			Level:  journal.LevelWarn,
			Kind:   journal.KindSourceEmpty,
			Comp:   "fetch",
			Source: src.Name,
		})
		return nil
	}

	f.cache.put(src.URL, items, f.now())
	f.journal.Emit(journal.Event{
		Level:  journal.LevelInfo,
		Kind:   journal.KindSourceFetch,
		Comp:   "fetch",
		Source: src.Name,
		Count:  len(items),
		Dur:    f.now().Sub(start),
	})
	return items
}

// fetchViaRelays tries each relay in order. Rate-limited relays are
// skipped rather than retried; the first relay producing at least one
// item wins.
func (f *Fetcher) fetchViaRelays(ctx context.Context, src news.Source) []news.Item {
	for _, r := range f.relays {
		if ctx.Err() != nil {
			return nil
		}

		body, err := f.client.Fetch(ctx, r, src.URL)
		if err != nil {
			kind := journal.KindRelayAttempt
			level := journal.LevelDebug
			if errors.Is(err, relay.ErrRateLimited) {
				kind = journal.KindRelayRateLimited
				level = journal.LevelWarn
			}
			f.journal.Emit(journal.Event{
				Level:  level,
				Kind:   kind,
				Comp:   "fetch",
				Source: src.Name,
				Relay:  r.Name,
				Err:    err.Error(),
			})
			continue
		}

		items, err := parseFeed(body, src)
		if err != nil {
			logging.Debug("feed parse failed", "source", src.Name, "relay", r.Name, "error", err)
			f.journal.Emit(journal.Event{
				Level:  journal.LevelDebug,
				Kind:   journal.KindRelayAttempt,
				Comp:   "fetch",
				Source: src.Name,
				Relay:  r.Name,
				Err:    err.Error(),
			})
			continue
		}
		if len(items) == 0 {
			continue
		}
		return items
	}
	return nil
}

func (f *Fetcher) fetchArxiv(ctx context.Context, src news.Source) []news.Item {
	items, err := f.arxiv.Fetch(ctx, src)
	if err != nil {
		logging.Warn("arxiv fetch failed", "error", err)
		f.journal.Emit(journal.Event{
			Level:  journal.LevelWarn,
			Kind:   journal.KindSourceFetch,
			Comp:   "fetch",
			Source: src.Name,
			Err:    err.Error(),
		})
		return nil
	}
	return items
}
