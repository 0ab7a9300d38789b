package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/abelbrown/newsdesk/internal/agg"
	"github.com/abelbrown/newsdesk/internal/config"
	"github.com/abelbrown/newsdesk/internal/fetch"
	"github.com/abelbrown/newsdesk/internal/journal"
	"github.com/abelbrown/newsdesk/internal/live"
	"github.com/abelbrown/newsdesk/internal/logging"
	"github.com/abelbrown/newsdesk/internal/store"
	"github.com/abelbrown/newsdesk/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "newsdesk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := logging.Init(""); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Close()

	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(config.Dir(), 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	journalFile, err := os.OpenFile(
		filepath.Join(config.Dir(), "journal.jsonl"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journalFile.Close()
	jrnl := journal.New(journalFile)
	defer jrnl.Close()

	db, err := store.Open(cfg.Database())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	fetcher := fetch.New(fetch.Options{
		CacheTTL: cfg.CacheTTL(),
		Limiter:  rate.NewLimiter(rate.Limit(4), 4),
		Journal:  jrnl,
	})
	scheduler := agg.NewScheduler(fetcher, cfg.Sources, jrnl)

	loop := live.NewFromScheduler(scheduler, live.Options{
		Frequency: frequencyFor(cfg.Frequency),
		Journal:   jrnl,
	})
	defer loop.Stop()

	model := ui.NewModel(loop, db, cfg.Window())
	loop.Start()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithReportFocus())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

func frequencyFor(name string) time.Duration {
	switch name {
	case "high":
		return live.FreqHigh
	case "low":
		return live.FreqLow
	default:
		return live.FreqNormal
	}
}
