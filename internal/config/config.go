// Package config loads the persistent application configuration from
// ~/.newsdesk/config.json, with environment overrides layered on top.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/abelbrown/newsdesk/internal/news"
)

// Config is the persistent application configuration.
type Config struct {
	Sources []news.Source `json:"sources"`

	// WindowDays is the recency window in days.
	WindowDays int `json:"window_days"`

	// CacheTTLMin is the per-source fetch cache TTL in minutes.
	CacheTTLMin int `json:"cache_ttl_min"`

	// Frequency selects the refresh cadence: "high", "normal", "low".
	Frequency string `json:"frequency"`

	// DatabasePath overrides the bookmark database location.
	DatabasePath string `json:"database_path,omitempty"`
}

// DefaultSources returns the built-in source list.
func DefaultSources() []news.Source {
	return []news.Source{
		{Name: "AP News", URL: "https://feedx.net/rss/ap.xml", Category: "wire"},
		{Name: "BBC World", URL: "https://feeds.bbci.co.uk/news/world/rss.xml", Category: "wire"},
		{Name: "Hacker News", URL: "https://news.ycombinator.com/rss", Category: "tech"},
		{Name: "Ars Technica", URL: "https://feeds.arstechnica.com/arstechnica/index", Category: "tech"},
		{Name: "The Verge", URL: "https://www.theverge.com/rss/index.xml", Category: "tech"},
		{Name: "Nature", URL: "https://www.nature.com/nature.rss", Category: "science"},
		{Name: "Quanta Magazine", URL: "https://api.quantamagazine.org/feed/", Category: "science"},
		{Name: "Bloomberg Markets", URL: "https://feeds.bloomberg.com/markets/news.rss", Category: "finance"},
		{Name: "Krebs on Security", URL: "https://krebsonsecurity.com/feed/", Category: "security"},
		{Name: "arXiv AI", URL: news.ArxivSentinel, Category: "ai"},
	}
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Sources:     DefaultSources(),
		WindowDays:  14,
		CacheTTLMin: 5,
		Frequency:   "normal",
	}
}

// Dir returns the application state directory.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".newsdesk")
}

// Path returns the config file location.
func Path() string {
	return filepath.Join(Dir(), "config.json")
}

// Load reads the config file at path, falling back to defaults when
// the file does not exist. An empty path uses the standard location.
// A .env file in the working directory and NEWSDESK_* variables
// override individual fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run: defaults.
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Missing .env is the normal case.
	_ = godotenv.Load()
	applyEnv(cfg)

	if len(cfg.Sources) == 0 {
		cfg.Sources = DefaultSources()
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 14
	}
	if cfg.CacheTTLMin <= 0 {
		cfg.CacheTTLMin = 5
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("NEWSDESK_WINDOW_DAYS"); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			cfg.WindowDays = days
		}
	}
	if v := os.Getenv("NEWSDESK_CACHE_TTL_MIN"); v != "" {
		if min, err := strconv.Atoi(v); err == nil && min > 0 {
			cfg.CacheTTLMin = min
		}
	}
	if v := os.Getenv("NEWSDESK_FREQUENCY"); v != "" {
		cfg.Frequency = v
	}
	if v := os.Getenv("NEWSDESK_DB"); v != "" {
		cfg.DatabasePath = v
	}
}

// Save writes the config to path, creating the directory as needed.
// An empty path uses the standard location.
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Window returns the recency window as a duration.
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowDays) * 24 * time.Hour
}

// CacheTTL returns the fetch cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMin) * time.Minute
}

// Database returns the bookmark database path.
func (c *Config) Database() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return filepath.Join(Dir(), "newsdesk.db")
}
