// Package websearch defines the live web evidence provider used by the
// verification cascade. Implementations live in subpackages: brave for
// the Brave Search API, mock for deterministic test doubles.
package websearch

import (
	"context"
	"errors"

	"github.com/nocaplabs/claimcheck/core"
)

// ErrAPIKeyRequired is returned when a provider is created without credentials.
var ErrAPIKeyRequired = errors.New("api key is required")

// Provider searches the live web for evidence about a claim.
// Implementations must be thread-safe for concurrent use.
type Provider interface {
	// Search returns up to max results for the query.
	// An empty result set is a valid outcome, not an error.
	Search(ctx context.Context, query string, max int) ([]core.WebResult, error)
}
