// fetchonce runs a single aggregation cycle and prints the merged
// snapshot to stdout. Useful for checking sources and relays without
// the TUI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/newsdesk/internal/agg"
	"github.com/abelbrown/newsdesk/internal/config"
	"github.com/abelbrown/newsdesk/internal/fetch"
	"github.com/abelbrown/newsdesk/internal/journal"
	"github.com/abelbrown/newsdesk/internal/logging"
	"github.com/abelbrown/newsdesk/internal/recency"
)

func main() {
	limit := flag.Int("n", 25, "max items to print")
	timeout := flag.Duration("timeout", 60*time.Second, "overall cycle timeout")
	verbose := flag.Bool("v", false, "emit the event journal to stderr")
	flag.Parse()

	logging.InitDiscard()

	jrnl := journal.NewNull()
	if *verbose {
		jrnl = journal.New(os.Stderr)
	}
	ring := journal.NewRingBuffer(journal.DefaultRingSize)
	jrnl.SetRingBuffer(ring)
	defer jrnl.Close()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetchonce: %v\n", err)
		os.Exit(1)
	}

	fetcher := fetch.New(fetch.Options{
		CacheTTL: cfg.CacheTTL(),
		Limiter:  rate.NewLimiter(rate.Limit(4), 4),
		Journal:  jrnl,
	})
	scheduler := agg.NewScheduler(fetcher, cfg.Sources, jrnl)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	snap := scheduler.FetchAll(ctx)
	items := recency.Filter(snap.Items, cfg.Window())
	if len(items) == 0 {
		items = recency.Fallback(snap.Items, recency.FallbackCount)
	}

	fmt.Printf("sources: %d ok, %d failed · %d items after filter\n\n",
		snap.Succeeded, snap.Failed, len(items))

	for i, item := range items {
		if i >= *limit {
			break
		}
		fmt.Printf("%-10s %-18s %s\n", item.Category, item.SourceName, item.Title)
		if item.PublishedDisplay != "" {
			fmt.Printf("           %s · %s\n", item.PublishedDisplay, item.URL)
		} else {
			fmt.Printf("           %s\n", item.URL)
		}
	}

	if snap.Succeeded == 0 && snap.Failed > 0 {
		// Flush so the ring holds everything the cycle emitted.
		jrnl.Close()
		fmt.Fprintln(os.Stderr, "\nevery source failed; recent pipeline events:")
		for _, e := range ring.Last(10) {
			fmt.Fprintf(os.Stderr, "  [%s] %s src=%s relay=%s err=%s\n",
				e.Level, e.Kind, e.Source, e.Relay, e.Err)
		}
		os.Exit(1)
	}
}
