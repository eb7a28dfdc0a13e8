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

package ingestion

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/corpus/core"
)

const (
	maxKeywords      = 10
	summaryMaxLength = 200
	authorSearchSpan = 1000
	languageSpan     = 1000
)

var wordPattern = regexp.MustCompile(`\b[a-zA-Z]{4,}\b`)

var keywordStopWords = map[string]struct{}{
	"the": {}, "and": {}, "is": {}, "in": {}, "to": {}, "of": {}, "a": {},
	"that": {}, "it": {}, "with": {}, "for": {}, "as": {}, "was": {},
	"on": {}, "are": {}, "you": {},
}

var authorLabels = []string{"author:", "by ", "written by", "created by", "authored by"}

var englishIndicators = []string{"the", "and", "is", "in", "to", "of", "a", "that"}
var germanIndicators = []string{"der", "die", "das", "und", "ist", "in", "zu", "von"}

// synthesizeMetadata derives lightweight descriptive metadata from the
// extracted text. The heuristics are intentionally crude; they exist to
// make listings and citations readable, not to classify documents.
func synthesizeMetadata(originalName, text string, chunks []*core.Chunk) core.DocumentMeta {
	meta := core.DocumentMeta{
		Title:      extractTitle(originalName, text),
		Author:     extractAuthor(text),
		Language:   detectLanguage(text),
		Keywords:   extractKeywords(text),
		Summary:    generateSummary(text),
		TotalChars: len(text),
		TotalWords: len(strings.Fields(text)),
		ChunkCount: len(chunks),
	}

	if len(chunks) > 0 {
		total := 0
		for _, chunk := range chunks {
			total += chunk.CharCount
		}
		meta.AvgChunkSize = float64(total) / float64(len(chunks))
	}

	return meta
}

// extractTitle defaults to the filename stem and prefers a short
// punctuation-bearing or all-caps line from the first ten lines.
func extractTitle(originalName, text string) string {
	title := strings.TrimSuffix(originalName, filepath.Ext(originalName))

	lines := strings.Split(text, "\n")
	if len(lines) > 10 {
		lines = lines[:10]
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || len(line) >= 100 {
			continue
		}
		if strings.HasPrefix(line, "http") || strings.HasPrefix(line, "www") {
			continue
		}
		if strings.ContainsAny(line, ":-|") || isAllUpper(line) {
			title = line
			break
		}
	}

	return title
}

func isAllUpper(s string) bool {
	hasLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

// extractAuthor scans the first 1000 characters for label patterns and
// returns the text up to the following newline when it looks like a name.
func extractAuthor(text string) string {
	span := text
	if len(span) > authorSearchSpan {
		span = span[:authorSearchSpan]
	}
	lowered := strings.ToLower(span)

	for _, label := range authorLabels {
		idx := strings.Index(lowered, label)
		if idx < 0 {
			continue
		}

		start := idx + len(label)
		end := strings.IndexByte(text[start:], '\n')
		if end < 0 {
			end = 100
		}
		if start+end > len(text) {
			end = len(text) - start
		}

		author := strings.TrimSpace(text[start : start+end])
		if author != "" && len(author) < 50 {
			return author
		}
	}

	return ""
}

// detectLanguage scores English and German function-word presence in the
// first 1000 characters and picks the higher score, defaulting to English.
func detectLanguage(text string) string {
	sample := text
	if len(sample) > languageSpan {
		sample = sample[:languageSpan]
	}
	sample = strings.ToLower(sample)

	english := 0
	for _, word := range englishIndicators {
		if strings.Contains(sample, word) {
			english++
		}
	}

	german := 0
	for _, word := range germanIndicators {
		if strings.Contains(sample, word) {
			german++
		}
	}

	if german > english {
		return "de"
	}
	return "en"
}

// extractKeywords counts alphabetic words of at least four characters,
// excluding stop words, and returns the top ten by frequency.
func extractKeywords(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)

	counts := make(map[string]int)
	for _, word := range words {
		if _, stop := keywordStopWords[word]; stop {
			continue
		}
		counts[word]++
	}

	keywords := make([]string, 0, len(counts))
	for word := range counts {
		keywords = append(keywords, word)
	}

	// Highest count first; ties break alphabetically for determinism.
	sort.Slice(keywords, func(i, j int) bool {
		if counts[keywords[i]] != counts[keywords[j]] {
			return counts[keywords[i]] > counts[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})

	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}

	return keywords
}

// generateSummary returns the first paragraph between 50 and 500
// characters, truncated to 200, else a truncated character prefix.
func generateSummary(text string) string {
	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if len(paragraph) > 50 && len(paragraph) < 500 {
			if len(paragraph) > summaryMaxLength {
				return truncateAtRune(paragraph, summaryMaxLength) + "..."
			}
			return paragraph
		}
	}

	summary := text
	if len(summary) > summaryMaxLength {
		summary = truncateAtRune(summary, summaryMaxLength)
	}
	summary = strings.TrimSpace(summary)
	if len(text) > summaryMaxLength {
		summary += "..."
	}

	return summary
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
