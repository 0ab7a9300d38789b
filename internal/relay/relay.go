// Package relay fetches third-party feeds through public CORS-relay
// endpoints.
//
// Relays are best-effort infrastructure: intermittent unavailability
// and rate limiting are normal operating conditions here, not
// exceptional ones. Callers are expected to hold an ordered fallback
// chain of relays and walk it until one answers.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// ErrRateLimited is returned when a relay answers HTTP 429. It is
// distinct from generic failure so callers can skip straight to the
// next relay in the chain without entering a retry path.
var ErrRateLimited = errors.New("relay rate limited")

// DefaultTimeout bounds a single relay attempt. A slow relay must not
// be allowed to stall the whole aggregation cycle; the fallback chain
// depends on attempts failing fast.
const DefaultTimeout = 4 * time.Second

// maxBodySize caps how much of a relay response we read. Feeds are a
// few hundred KB at most; anything larger is a misbehaving relay.
const maxBodySize = 4 << 20

// Relay describes one public relay endpoint. The response envelope
// travels with the relay definition, so adding or reordering relays in
// a chain can never change how a given relay's response is decoded.
type Relay struct {
	Name   string
	Build  func(target string) string
	Decode func(body []byte) ([]byte, error)
}

// RawBody passes the relay response through unchanged.
func RawBody(body []byte) ([]byte, error) {
	return body, nil
}

// JSONEnvelope unwraps an allorigins-style {"contents": "..."} wrapper.
func JSONEnvelope(body []byte) ([]byte, error) {
	var env struct {
		Contents string `json:"contents"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Contents == "" {
		return nil, errors.New("empty envelope contents")
	}
	return []byte(env.Contents), nil
}

// DefaultRelays returns the fallback chain in priority order.
func DefaultRelays() []Relay {
	return []Relay{
		{
			Name: "allorigins",
			Build: func(target string) string {
				return "https://api.allorigins.win/get?url=" + url.QueryEscape(target)
			},
			Decode: JSONEnvelope,
		},
		{
			Name: "corsproxy",
			Build: func(target string) string {
				return "https://corsproxy.io/?" + url.QueryEscape(target)
			},
			Decode: RawBody,
		},
		{
			Name: "codetabs",
			Build: func(target string) string {
				return "https://api.codetabs.com/v1/proxy?quest=" + url.QueryEscape(target)
			},
			Decode: RawBody,
		},
	}
}

// Client performs single relay attempts. It owns no fallback logic and
// no shared state beyond the HTTP client and an optional limiter.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewClient creates a Client. A nil limiter disables request pacing;
// timeout <= 0 uses DefaultTimeout.
func NewClient(timeout time.Duration, limiter *rate.Limiter) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:    &http.Client{},
		limiter: limiter,
		timeout: timeout,
	}
}

// Fetch issues one GET for target through the given relay and returns
// the decoded body.
//
// HTTP 429 maps to ErrRateLimited (check with errors.Is). The attempt
// is aborted after the client timeout via context cancellation.
func (c *Client) Fetch(ctx context.Context, r Relay, target string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.Build(target), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "newsdesk/0.1 (+https://github.com/abelbrown/newsdesk)")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay %s: %w", r.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("relay %s: %w", r.Name, ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay %s: HTTP %d", r.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("relay %s: read body: %w", r.Name, err)
	}

	decoded, err := r.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("relay %s: %w", r.Name, err)
	}
	return decoded, nil
}
