package search

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/poiesic/corpus/websearch"
)

// searchWeb derives sub-queries, fetches candidates for each
// concurrently, deduplicates by URL, caps the result count, and extracts
// page text with a bounded preview.
//
// Sub-query fetches run in parallel but candidates are flattened in
// sub-query order, so the result set is deterministic for a given
// provider.
func (s *Searcher) searchWeb(ctx context.Context, query string) ([]*WebResult, error) {
	queries, err := s.web.DeriveQueries(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("derive sub-queries: %w", err)
	}
	if len(queries) > s.config.MaxSubQueries {
		queries = queries[:s.config.MaxSubQueries]
	}

	perQuery := make([][]websearch.Candidate, len(queries))

	var wg sync.WaitGroup
	for i, subQuery := range queries {
		i, subQuery := i, subQuery
		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			candidates, err := s.web.FindCandidates(ctx, subQuery)
			if err != nil {
				s.logger.Warn("error finding web candidates",
					"sub_query", subQuery, "err", err)
				return
			}
			perQuery[i] = candidates
		})
		if submitErr != nil {
			wg.Done()
			s.logger.Warn("error submitting web sub-query",
				"sub_query", subQuery, "err", submitErr)
		}
	}
	wg.Wait()

	seen := make(map[string]bool)
	var unique []websearch.Candidate
	for _, candidates := range perQuery {
		for _, candidate := range candidates {
			if seen[candidate.URL] || len(unique) >= s.config.MaxWebResults {
				continue
			}
			seen[candidate.URL] = true
			unique = append(unique, candidate)
		}
	}

	results := make([]*WebResult, 0, len(unique))
	for _, candidate := range unique {
		content, err := s.web.ExtractText(ctx, candidate.URL)
		if err != nil {
			s.logger.Warn("error extracting web content",
				"url", candidate.URL, "err", err)
			continue
		}

		preview := content
		if len(preview) > s.config.PreviewLength {
			preview = truncateAtRune(preview, s.config.PreviewLength) + "..."
		}

		results = append(results, &WebResult{
			Title:    candidate.Title,
			URL:      candidate.URL,
			Preview:  preview,
			FullText: content,
		})
	}

	s.logger.Info("web search complete", "query", query,
		"sub_queries", len(queries), "results", len(results))

	return results, nil
}

// truncateAtRune cuts s to at most limit bytes without splitting a
// multi-byte rune at the boundary.
func truncateAtRune(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
