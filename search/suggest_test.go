package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aimock "github.com/poiesic/corpus/ai/mock"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage/badger"
)

func suggestionHits(contents ...string) []*core.ChunkHit {
	hits := make([]*core.ChunkHit, len(contents))
	for i, content := range contents {
		hits[i] = &core.ChunkHit{
			ChunkID:    core.ChunkID("doc-1", i),
			DocumentID: "doc-1",
			ChunkIndex: i,
			Content:    content,
			Similarity: 0.9,
		}
	}
	return hits
}

func TestSuggestionsMinesSurroundingPhrases(t *testing.T) {
	index := &fakeIndex{hits: suggestionHits(
		"distributed vector search systems scale horizontally",
	)}
	searcher, _, _ := newTestSearcher(t, index)

	suggestions := searcher.Suggestions(context.Background(), "search")

	// Window around "search": [distributed vector search systems scale].
	assert.Equal(t, []string{
		"distributed vector",
		"vector search",
		"search systems",
		"systems scale",
	}, suggestions)
	assert.Equal(t, 3, index.lastTopK)
}

func TestSuggestionsSkipsShortPhrases(t *testing.T) {
	index := &fakeIndex{hits: suggestionHits("a b index c d")}
	searcher, _, _ := newTestSearcher(t, index)

	// "a b" and "c d" are no longer than the partial query itself.
	suggestions := searcher.Suggestions(context.Background(), "index")
	assert.Equal(t, []string{"b index", "index c"}, suggestions)
}

func TestSuggestionsDeduplicateAcrossHits(t *testing.T) {
	index := &fakeIndex{hits: suggestionHits(
		"the search index performs fast",
		"the search index performs fast",
	)}
	searcher, _, _ := newTestSearcher(t, index)

	suggestions := searcher.Suggestions(context.Background(), "index")
	assert.Equal(t, []string{
		"the search",
		"search index",
		"index performs",
		"performs fast",
	}, suggestions)
}

func TestSuggestionsCapped(t *testing.T) {
	index := &fakeIndex{hits: suggestionHits(
		"alpha beta query gamma delta",
		"epsilon zeta query theta iota",
		"kappa lambda query omicron sigma",
	)}
	searcher, _, _ := newTestSearcher(t, index)

	suggestions := searcher.Suggestions(context.Background(), "query")
	assert.Len(t, suggestions, 5)
}

func TestSuggestionsAbsentTermYieldsNothing(t *testing.T) {
	index := &fakeIndex{hits: suggestionHits(
		"completely unrelated chunk content",
	)}
	searcher, _, _ := newTestSearcher(t, index)

	assert.Empty(t, searcher.Suggestions(context.Background(), "missing"))
}

func TestSuggestionsDegradeOnFailure(t *testing.T) {
	t.Run("blank query", func(t *testing.T) {
		index := &fakeIndex{}
		searcher, _, _ := newTestSearcher(t, index)

		assert.Nil(t, searcher.Suggestions(context.Background(), "   "))
		assert.Zero(t, index.queryCalls)
	})

	t.Run("index failure", func(t *testing.T) {
		index := &fakeIndex{queryErr: errors.New("index offline")}
		searcher, _, _ := newTestSearcher(t, index)

		assert.Empty(t, searcher.Suggestions(context.Background(), "query"))
	})

	t.Run("embedder failure", func(t *testing.T) {
		documents, _, backend, err := badger.NewMemoryStores()
		require.NoError(t, err)
		t.Cleanup(func() { backend.Close() })

		embedder := aimock.NewEmbedder()
		embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("embedding service down")
		}

		index := &fakeIndex{}
		searcher, err := NewSearcher(documents, index, embedder)
		require.NoError(t, err)
		t.Cleanup(searcher.Release)

		assert.Empty(t, searcher.Suggestions(context.Background(), "query"))
		assert.Zero(t, index.queryCalls)
	})
}
