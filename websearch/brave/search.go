// Package brave implements websearch.Provider against the Brave Search API.
package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/nocaplabs/claimcheck/core"
	"github.com/nocaplabs/claimcheck/websearch"
)

const (
	// https://api.search.brave.com/app/documentation/web-search
	endpoint = "https://api.search.brave.com/res/v1/web/search"

	defaultTimeout = 10 * time.Second
)

// Search implements websearch.Provider using the Brave Search API.
type Search struct {
	apiKey string
	client *http.Client
	logger *slog.Logger
}

// Option is a functional option for configuring a Search.
type Option func(*Search)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Search) {
		if client != nil {
			s.client = client
		}
	}
}

// WithLogger sets the logger used by the client.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Search) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Brave search client.
func New(apiKey string, opts ...Option) (*Search, error) {
	if apiKey == "" {
		return nil, websearch.ErrAPIKeyRequired
	}
	s := &Search{
		apiKey: apiKey,
		client: &http.Client{Timeout: defaultTimeout},
		logger: slog.Default().With("component", "brave-search"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Search returns up to max results for the query.
func (s *Search) Search(ctx context.Context, query string, max int) ([]core.WebResult, error) {
	if max < 1 {
		return nil, nil
	}

	reqURL := fmt.Sprintf("%s?q=%s&count=%d", endpoint, url.QueryEscape(query), max)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave search returned status %d", resp.StatusCode)
	}

	var raw struct {
		Web struct {
			Results []struct {
				Title   string `json:"title"`
				URL     string `json:"url"`
				Snippet string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var out []core.WebResult
	for i, r := range raw.Web.Results {
		if i >= max {
			break
		}
		out = append(out, core.WebResult{Title: r.Title, URL: r.URL, Snippet: r.Snippet})
	}
	s.logger.Debug("web search complete", "query_length", len(query), "results", len(out))
	return out, nil
}
