package search

import (
	"context"
	"slices"
	"strings"
)

// Suggestions proposes query completions mined from corpus content near
// the partial query's terms: the top chunks for the partial query are
// scanned for two-word phrases surrounding each query word. Failures
// degrade to an empty list.
func (s *Searcher) Suggestions(ctx context.Context, partialQuery string) []string {
	partial := strings.TrimSpace(partialQuery)
	if partial == "" {
		return nil
	}

	vector, err := s.embedder.EmbedText(ctx, partial)
	if err != nil {
		s.logger.Warn("error embedding suggestion query", "query", partial, "err", err)
		return nil
	}

	hits, err := s.vectors.Query(ctx, vector, s.config.SuggestionTopK, nil)
	if err != nil {
		s.logger.Warn("error querying index for suggestions", "query", partial, "err", err)
		return nil
	}

	queryWords := strings.Fields(strings.ToLower(partial))

	var suggestions []string
	seen := make(map[string]struct{})
	for _, hit := range hits {
		words := strings.Fields(strings.ToLower(hit.Content))
		for _, queryWord := range queryWords {
			idx := slices.Index(words, queryWord)
			if idx < 0 {
				continue
			}

			start := max(idx-2, 0)
			end := min(idx+3, len(words))
			nearby := words[start:end]

			for i := 0; i+1 < len(nearby); i++ {
				suggestion := nearby[i] + " " + nearby[i+1]
				if len(suggestion) <= len(partial) {
					continue
				}
				if _, ok := seen[suggestion]; ok {
					continue
				}
				seen[suggestion] = struct{}{}
				suggestions = append(suggestions, suggestion)
				if len(suggestions) == s.config.MaxSuggestions {
					return suggestions
				}
			}
		}
	}

	return suggestions
}
