// Package mock provides a test double for websearch.Provider.
package mock

import (
	"context"
	"fmt"

	"github.com/nocaplabs/claimcheck/core"
)

// MockProvider is a test double for websearch.Provider.
// It allows custom behavior injection via a function field.
type MockProvider struct {
	// SearchFunc is called by Search if set.
	// If nil, returns deterministic canned results.
	SearchFunc func(ctx context.Context, query string, max int) ([]core.WebResult, error)

	callCount int
	queries   []string
}

// NewMockProvider creates a mock provider with default canned behavior.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Search returns injected or canned results.
func (m *MockProvider) Search(ctx context.Context, query string, max int) ([]core.WebResult, error) {
	m.callCount++
	m.queries = append(m.queries, query)

	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, max)
	}

	if max > 2 {
		max = 2
	}
	out := make([]core.WebResult, 0, max)
	for i := 0; i < max; i++ {
		out = append(out, core.WebResult{
			Title:   fmt.Sprintf("result %d", i+1),
			URL:     fmt.Sprintf("https://reuters.com/articles/%d", i+1),
			Snippet: "coverage relevant to: " + query,
		})
	}
	return out, nil
}

// CallCount returns the number of times Search was called.
func (m *MockProvider) CallCount() int {
	return m.callCount
}

// Queries returns the queries passed to Search, in call order.
func (m *MockProvider) Queries() []string {
	return m.queries
}

// Reset clears the call count, recorded queries and injected behavior.
func (m *MockProvider) Reset() {
	m.callCount = 0
	m.queries = nil
	m.SearchFunc = nil
}
