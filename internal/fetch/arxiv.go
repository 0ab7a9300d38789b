package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/abelbrown/newsdesk/internal/news"
)

const arxivEndpoint = "http://export.arxiv.org/api/query"

const arxivMaxResults = 30

// arxivQueryCats are the default categories folded into one API query.
var arxivQueryCats = []string{"cs.AI", "cs.LG", "cs.CL", "cs.CV", "stat.ML"}

// ArxivClient fetches recent papers from the arXiv Atom API.
// The API is CORS-open so no relay hop is needed.
type ArxivClient struct {
	http     *http.Client
	endpoint string
}

// NewArxivClient creates a client with the given request timeout.
func NewArxivClient(timeout time.Duration) *ArxivClient {
	return &ArxivClient{
		http:     &http.Client{Timeout: timeout},
		endpoint: arxivEndpoint,
	}
}

// Fetch retrieves the most recent submissions across the default
// category set, newest first.
func (a *ArxivClient) Fetch(ctx context.Context, src news.Source) ([]news.Item, error) {
	terms := make([]string, len(arxivQueryCats))
	for i, cat := range arxivQueryCats {
		terms[i] = "cat:" + cat
	}

	params := url.Values{}
	params.Set("search_query", strings.Join(terms, " OR "))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")
	params.Set("max_results", fmt.Sprintf("%d", arxivMaxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build arxiv request: %w", err)
	}
	req.Header.Set("User-Agent", "newsdesk/0.1 (+https://github.com/abelbrown/newsdesk)")

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch arxiv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBody))
	if err != nil {
		return nil, fmt.Errorf("read arxiv body: %w", err)
	}

	return parseArxiv(body, src)
}

// parseArxiv decodes the Atom response, mapping arXiv primary
// categories onto display categories and folding authors into the
// summary line.
func parseArxiv(body []byte, src news.Source) ([]news.Item, error) {
	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse arxiv feed: %w", err)
	}

	items := make([]news.Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry.Title == "" && entry.Link == "" {
			continue
		}

		var published time.Time
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			published = *entry.UpdatedParsed
		}

		category := news.DefaultArxivCategory
		if len(entry.Categories) > 0 {
			category = news.ArxivCategory(entry.Categories[0])
		}

		summary := scrub(entry.Description)
		if authors := entryAuthors(entry); authors != "" {
			summary = authors + " · " + summary
		}

		items = append(items, news.Item{
			Title:            truncate(scrub(entry.Title), 200),
			Summary:          truncate(summary, maxSummaryChars),
			URL:              strings.TrimSpace(entry.Link),
			Published:        published,
			PublishedDisplay: news.DisplayTime(published),
			SourceName:       src.Name,
			Category:         category,
			OriginalTitle:    entry.Title,
			OriginalSummary:  entry.Description,
		})
	}
	return items, nil
}

func entryAuthors(entry *gofeed.Item) string {
	names := make([]string, 0, len(entry.Authors))
	for _, author := range entry.Authors {
		if author != nil && author.Name != "" {
			names = append(names, author.Name)
		}
	}
	if len(names) > 3 {
		names = append(names[:3], "et al.")
	}
	return strings.Join(names, ", ")
}
