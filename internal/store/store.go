// Package store provides SQLite persistence for bookmarks and search
// history.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abelbrown/newsdesk/internal/news"
)

// Store is the persistence layer. Safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Bookmark is a saved item.
type Bookmark struct {
	URL        string
	Title      string
	SourceName string
	Category   string
	Published  time.Time
	Saved      time.Time
}

// Open creates a Store at dbPath, creating tables as needed. WAL mode
// is enabled for file-based databases.
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees one database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bookmarks (
		url         TEXT PRIMARY KEY,
		title       TEXT NOT NULL,
		source_name TEXT NOT NULL DEFAULT '',
		category    TEXT NOT NULL DEFAULT '',
		published_at TIMESTAMP,
		saved_at    TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS searches (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		query       TEXT NOT NULL,
		searched_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bookmarks_saved ON bookmarks(saved_at DESC);
	CREATE INDEX IF NOT EXISTS idx_searches_at ON searches(searched_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SaveBookmark stores item as a bookmark. Saving an already-saved URL
// refreshes the stored fields.
func (s *Store) SaveBookmark(item news.Item) error {
	if item.URL == "" {
		return fmt.Errorf("cannot bookmark an item without a URL")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO bookmarks (url, title, source_name, category, published_at, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			title = excluded.title,
			source_name = excluded.source_name,
			category = excluded.category,
			published_at = excluded.published_at`,
		item.URL, item.Title, item.SourceName, item.Category, item.Published, time.Now())
	if err != nil {
		return fmt.Errorf("save bookmark: %w", err)
	}
	return nil
}

// RemoveBookmark deletes the bookmark for url, if present.
func (s *Store) RemoveBookmark(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM bookmarks WHERE url = ?`, url); err != nil {
		return fmt.Errorf("remove bookmark: %w", err)
	}
	return nil
}

// IsBookmarked reports whether url has a bookmark.
func (s *Store) IsBookmarked(url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM bookmarks WHERE url = ?`, url).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check bookmark: %w", err)
	}
	return n > 0, nil
}

// Bookmarks returns all bookmarks, most recently saved first.
func (s *Store) Bookmarks() ([]Bookmark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT url, title, source_name, category, published_at, saved_at
		FROM bookmarks ORDER BY saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	var out []Bookmark
	for rows.Next() {
		var b Bookmark
		var published sql.NullTime
		if err := rows.Scan(&b.URL, &b.Title, &b.SourceName, &b.Category, &published, &b.Saved); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		if published.Valid {
			b.Published = published.Time
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// RecordSearch appends query to the search history. Blank queries are
// ignored.
func (s *Store) RecordSearch(query string) error {
	if query == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`INSERT INTO searches (query, searched_at) VALUES (?, ?)`,
		query, time.Now()); err != nil {
		return fmt.Errorf("record search: %w", err)
	}
	return nil
}

// History returns up to limit recent search queries, newest first.
func (s *Store) History(limit int) ([]string, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT query FROM searches ORDER BY searched_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ClearHistory deletes all recorded searches.
func (s *Store) ClearHistory() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM searches`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}
