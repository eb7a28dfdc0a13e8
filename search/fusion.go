// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package search

import (
	"fmt"
	"strings"
)

const unknownDocumentTitle = "Unknown Document"

// relevantDocuments filters hits to those above the context similarity
// cutoff, preserving order.
func relevantDocuments(results []*DocumentResult, cfg Config) []*DocumentResult {
	var relevant []*DocumentResult
	for _, result := range results {
		if float64(result.Similarity) > cfg.ContextSimilarity {
			relevant = append(relevant, result)
		}
	}
	return relevant
}

// buildContext fuses document and web evidence into a labeled context
// string. A section with no qualifying entries is omitted entirely.
func buildContext(docResults []*DocumentResult, webResults []*WebResult, cfg Config) string {
	var parts []string

	relevant := relevantDocuments(docResults, cfg)
	if len(relevant) > 0 {
		parts = append(parts, "=== DOCUMENT SOURCES ===")
		for i, result := range relevant {
			title := result.DocumentTitle
			if title == "" {
				title = unknownDocumentTitle
			}
			parts = append(parts,
				fmt.Sprintf("\n--- Document %d: %s ---", i+1, title),
				fmt.Sprintf("Content: %s", result.Content),
				fmt.Sprintf("Relevance Score: %.3f", result.Similarity),
			)
		}
	}

	if len(webResults) > 0 {
		parts = append(parts, "\n\n=== WEB SOURCES ===")
		for i, result := range webResults {
			parts = append(parts,
				fmt.Sprintf("\n--- Web Source %d: %s ---", i+1, result.Title),
				fmt.Sprintf("URL: %s", result.URL),
				fmt.Sprintf("Content: %s", result.Preview),
			)
		}
	}

	return strings.Join(parts, "\n")
}

// buildSources builds the citation list in the same filtered order as
// the context, tagging each entry with its evidence type.
func buildSources(docResults []*DocumentResult, webResults []*WebResult, cfg Config) []*Source {
	var sources []*Source

	for _, result := range relevantDocuments(docResults, cfg) {
		title := result.DocumentTitle
		if title == "" {
			title = unknownDocumentTitle
		}
		sources = append(sources, &Source{
			Type:       SourceTypeDocument,
			Title:      fmt.Sprintf("%s (Chunk %d)", title, result.ChunkIndex),
			URL:        fmt.Sprintf("document://%s", result.Filename),
			Similarity: result.Similarity,
			Filename:   result.Filename,
			FileType:   result.FileType.String(),
		})
	}

	for _, result := range webResults {
		sources = append(sources, &Source{
			Type:  SourceTypeWeb,
			Title: result.Title,
			URL:   result.URL,
		})
	}

	return sources
}
