package websearch

import "context"

// Candidate is a web result located for a query, before its page text
// has been fetched.
type Candidate struct {
	Title string
	URL   string
}

// Provider locates and extracts web evidence for a query. The retrieval
// engine consumes this contract; fetching, rate limiting, and HTML
// parsing are the provider's concern.
// Implementations must be thread-safe for concurrent use.
type Provider interface {
	// DeriveQueries rewrites a user query into one or more focused
	// sub-queries. Returning the input unchanged is a valid strategy.
	DeriveQueries(ctx context.Context, query string) ([]string, error)

	// FindCandidates returns result candidates for a single sub-query,
	// ordered by the provider's own relevance ranking.
	FindCandidates(ctx context.Context, query string) ([]Candidate, error)

	// ExtractText fetches the page at url and returns its readable text.
	ExtractText(ctx context.Context, url string) (string, error)
}
