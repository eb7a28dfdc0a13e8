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

// Config holds the retrieval and scoring parameters. The defaults are
// deliberate heuristics; retuning them changes which queries fall back
// to web search and which hits reach the fused context.
type Config struct {
	// TopK is the number of vector hits requested per document search.
	TopK int

	// ConfidenceThreshold triggers web search in auto mode when the
	// document confidence falls below it.
	ConfidenceThreshold float64

	// StrongSimilarity is the cutoff above which a hit counts toward
	// the quality factor, and above which auto mode considers a single
	// hit relevant.
	StrongSimilarity float64

	// ContextSimilarity is the cutoff for including a hit in the fused
	// context and source list. Lower than StrongSimilarity so that
	// borderline-but-usable evidence still reaches the context.
	ContextSimilarity float64

	// AvgWeight and MaxWeight blend mean and maximum similarity into
	// the confidence base.
	AvgWeight float64
	MaxWeight float64

	// LowMaxCutoff/LowMaxPenalty and MidMaxCutoff/MidMaxPenalty damp
	// confidence when even the best hit is weak.
	LowMaxCutoff  float64
	LowMaxPenalty float64
	MidMaxCutoff  float64
	MidMaxPenalty float64

	// WebConfidence is the assumed confidence attached to web results.
	WebConfidence float64

	// MaxSubQueries caps the derived sub-queries sent to the provider.
	MaxSubQueries int

	// MaxWebResults caps the web results after URL deduplication.
	MaxWebResults int

	// SuggestionTopK is the number of vector hits mined for query
	// suggestions.
	SuggestionTopK int

	// MaxSuggestions caps the suggestion list.
	MaxSuggestions int

	// PreviewLength bounds the web content preview in characters; the
	// full text is retained alongside it.
	PreviewLength int
}

// ConfigOption modifies a Config.
type ConfigOption func(*Config)

// DefaultConfig returns the default search configuration.
func DefaultConfig(opts ...ConfigOption) Config {
	cfg := Config{
		TopK:                5,
		ConfidenceThreshold: 0.5,
		StrongSimilarity:    0.5,
		ContextSimilarity:   0.4,
		AvgWeight:           0.6,
		MaxWeight:           0.4,
		LowMaxCutoff:        0.3,
		LowMaxPenalty:       0.3,
		MidMaxCutoff:        0.5,
		MidMaxPenalty:       0.6,
		WebConfidence:       0.8,
		MaxSubQueries:       2,
		MaxWebResults:       3,
		PreviewLength:       1000,
		SuggestionTopK:      3,
		MaxSuggestions:      5,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

// WithTopK sets the number of vector hits per document search.
func WithTopK(k int) ConfigOption {
	return func(c *Config) {
		if k > 0 {
			c.TopK = k
		}
	}
}

// WithConfidenceThreshold sets the auto-mode web trigger threshold.
func WithConfidenceThreshold(threshold float64) ConfigOption {
	return func(c *Config) {
		c.ConfidenceThreshold = threshold
	}
}

// WithMaxWebResults sets the web result cap.
func WithMaxWebResults(max int) ConfigOption {
	return func(c *Config) {
		if max > 0 {
			c.MaxWebResults = max
		}
	}
}
