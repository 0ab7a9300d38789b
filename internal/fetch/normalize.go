package fetch

import (
	"bytes"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/abelbrown/newsdesk/internal/news"
)

const maxSummaryChars = 300

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

var whitespaceRe = regexp.MustCompile(`\s+`)

// scrub strips HTML tags, decodes entities, and collapses whitespace.
func scrub(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// truncate caps s at max runes, appending an ellipsis when cut.
// Rune-aware slicing so multibyte titles are never split mid-rune.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := string(runes[:max])
	if idx := strings.LastIndex(cut, " "); idx > max/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}

// parseFeed decodes an RSS or Atom body and normalizes each entry.
// Entries missing both a title and a link are skipped. Entries with no
// parseable timestamp keep a zero Published time; the recency filter
// drops those downstream.
func parseFeed(body []byte, src news.Source) ([]news.Item, error) {
	parser := gofeed.NewParser()
	feed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	items := make([]news.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry.Title == "" && entry.Link == "" {
			continue
		}
		items = append(items, convertEntry(entry, src))
	}
	return items, nil
}

// convertEntry maps a gofeed entry onto the normalized item shape.
func convertEntry(entry *gofeed.Item, src news.Source) news.Item {
	var published time.Time
	if entry.PublishedParsed != nil {
		published = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		published = *entry.UpdatedParsed
	}

	summary := entry.Description
	if summary == "" && entry.Content != "" {
		summary = entry.Content
	}

	return news.Item{
		Title:            truncate(scrub(entry.Title), 200),
		Summary:          truncate(scrub(summary), maxSummaryChars),
		URL:              strings.TrimSpace(entry.Link),
		Published:        published,
		PublishedDisplay: news.DisplayTime(published),
		SourceName:       src.Name,
		Category:         src.Category,
		OriginalTitle:    entry.Title,
		OriginalSummary:  summary,
	}
}
