package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/corpus/websearch"
)

// Provider is a scripted test double for websearch.Provider.
// It allows custom behavior injection via function fields and records
// per-method call counts for collaboration assertions.
// Safe for concurrent use, matching the production contract.
type Provider struct {
	// DeriveQueriesFunc is called by DeriveQueries if set.
	// If nil, the input query is returned unchanged.
	DeriveQueriesFunc func(ctx context.Context, query string) ([]string, error)

	// FindCandidatesFunc is called by FindCandidates if set.
	// If nil, a single synthetic candidate is returned.
	FindCandidatesFunc func(ctx context.Context, query string) ([]websearch.Candidate, error)

	// ExtractTextFunc is called by ExtractText if set.
	// If nil, a synthetic page body is returned.
	ExtractTextFunc func(ctx context.Context, url string) (string, error)

	mu             sync.Mutex
	deriveCalls    int
	findCalls      int
	extractCalls   int
	derivedQueries []string
	findQueries    []string
	extractedURLs  []string
}

// NewProvider creates a mock provider with default scripted behavior.
// Returns the concrete type so tests can inject behavior and read call counts.
func NewProvider() *Provider {
	return &Provider{}
}

// DeriveQueries returns the input query as the single sub-query.
func (p *Provider) DeriveQueries(ctx context.Context, query string) ([]string, error) {
	p.mu.Lock()
	p.deriveCalls++
	p.derivedQueries = append(p.derivedQueries, query)
	p.mu.Unlock()

	if p.DeriveQueriesFunc != nil {
		return p.DeriveQueriesFunc(ctx, query)
	}

	return []string{query}, nil
}

// FindCandidates returns one synthetic candidate derived from the query.
func (p *Provider) FindCandidates(ctx context.Context, query string) ([]websearch.Candidate, error) {
	p.mu.Lock()
	p.findCalls++
	p.findQueries = append(p.findQueries, query)
	calls := p.findCalls
	p.mu.Unlock()

	if p.FindCandidatesFunc != nil {
		return p.FindCandidatesFunc(ctx, query)
	}

	return []websearch.Candidate{
		{
			Title: fmt.Sprintf("Result for %q", query),
			URL:   fmt.Sprintf("https://example.com/%d", calls),
		},
	}, nil
}

// ExtractText returns a synthetic page body for the URL.
func (p *Provider) ExtractText(ctx context.Context, url string) (string, error) {
	p.mu.Lock()
	p.extractCalls++
	p.extractedURLs = append(p.extractedURLs, url)
	p.mu.Unlock()

	if p.ExtractTextFunc != nil {
		return p.ExtractTextFunc(ctx, url)
	}

	return fmt.Sprintf("Page content fetched from %s.", url), nil
}

// DeriveCallCount returns the number of DeriveQueries calls.
func (p *Provider) DeriveCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deriveCalls
}

// FindCallCount returns the number of FindCandidates calls.
func (p *Provider) FindCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.findCalls
}

// ExtractCallCount returns the number of ExtractText calls.
func (p *Provider) ExtractCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.extractCalls
}

// TotalCallCount returns the number of calls across all methods.
func (p *Provider) TotalCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.deriveCalls + p.findCalls + p.extractCalls
}

// DerivedQueries returns every query passed to DeriveQueries, in order.
func (p *Provider) DerivedQueries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.derivedQueries...)
}

// FindQueries returns every query passed to FindCandidates, in order.
func (p *Provider) FindQueries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.findQueries...)
}

// ExtractedURLs returns every URL passed to ExtractText, in order.
func (p *Provider) ExtractedURLs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.extractedURLs...)
}

// Reset clears call counts and recorded arguments.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deriveCalls = 0
	p.findCalls = 0
	p.extractCalls = 0
	p.derivedQueries = nil
	p.findQueries = nil
	p.extractedURLs = nil
}

var _ websearch.Provider = (*Provider)(nil)
