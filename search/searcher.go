package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/storage"
	"github.com/poiesic/corpus/websearch"
)

// Mode selects the retrieval strategy for a single search call.
type Mode string

const (
	// ModeHybrid searches both the document corpus and the web,
	// regardless of document confidence.
	ModeHybrid Mode = "hybrid"

	// ModeDocuments searches only the document corpus; the web
	// provider is never invoked.
	ModeDocuments Mode = "documents"

	// ModeWeb skips the document corpus entirely.
	ModeWeb Mode = "web"

	// ModeAuto searches documents first and falls back to the web when
	// confidence is low or no hit is strong enough.
	ModeAuto Mode = "auto"
)

// ParseMode converts a mode string to a Mode.
// Returns ErrInvalidMode for anything outside the four known modes.
func ParseMode(s string) (Mode, error) {
	mode := Mode(strings.ToLower(s))
	switch mode {
	case ModeHybrid, ModeDocuments, ModeWeb, ModeAuto:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Filter restricts a search to a subset of the corpus.
type Filter struct {
	// DocumentID scopes the search to a single document when non-empty.
	DocumentID string
}

// DocumentResult is a vector hit enriched with its parent document's
// descriptive fields.
type DocumentResult struct {
	ChunkID    string
	DocumentID string
	ChunkIndex int
	Content    string
	Similarity float32

	DocumentTitle string
	Filename      string
	FileType      core.FileType
	UploadedAt    time.Time
}

// WebResult is an extracted web page with a bounded preview.
type WebResult struct {
	Title    string
	URL      string
	Preview  string // truncated for prompt budgets
	FullText string
}

// SourceTypeDocument and SourceTypeWeb tag citation entries.
const (
	SourceTypeDocument = "document"
	SourceTypeWeb      = "web"
)

// Source is a citation entry for one piece of evidence in the context.
type Source struct {
	Type       string
	Title      string
	URL        string
	Similarity float32 // zero for web sources
	Filename   string
	FileType   string
}

// Response carries everything a search produced. Stage failures degrade
// to empty results for that stage; the first such failure is recorded in
// Err while partial results are still returned.
type Response struct {
	Query     string
	Mode      Mode
	Timestamp time.Time

	DocumentResults []*DocumentResult
	WebResults      []*WebResult

	CombinedContext string
	Sources         []*Source

	DocumentConfidence float64
	WebConfidence      float64
	WebSearched        bool

	Err error
}

// Searcher fuses document-corpus and web evidence for a query, scoring
// document hits with a confidence heuristic to decide when the corpus
// alone is enough.
type Searcher struct {
	documents storage.DocumentRepository
	vectors   storage.VectorIndex
	embedder  ai.Embedder
	web       websearch.Provider
	pool      *ants.Pool
	config    Config
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithConfig replaces the search configuration.
func WithConfig(cfg Config) Option {
	return func(s *Searcher) error {
		s.config = cfg
		return nil
	}
}

// WithWebProvider sets the web-search collaborator. Without one, modes
// that want web evidence degrade to document-only results.
func WithWebProvider(provider websearch.Provider) Option {
	return func(s *Searcher) error {
		s.web = provider
		return nil
	}
}

// NewSearcher creates a new hybrid searcher.
func NewSearcher(
	documents storage.DocumentRepository,
	vectors storage.VectorIndex,
	embedder ai.Embedder,
	opts ...Option,
) (*Searcher, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if vectors == nil {
		return nil, ErrVectorIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		documents: documents,
		vectors:   vectors,
		embedder:  embedder,
		config:    DefaultConfig(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	pool, err := ants.NewPool(s.config.MaxSubQueries)
	if err != nil {
		return nil, err
	}
	s.pool = pool

	return s, nil
}

// Release releases the sub-query worker pool.
// The searcher should not be used after calling Release.
func (s *Searcher) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// Search runs one retrieval call. It never returns a non-nil error;
// stage failures are logged, degrade to empty results for that stage,
// and the first one is recorded in Response.Err.
func (s *Searcher) Search(ctx context.Context, query string, mode Mode, filter *Filter) *Response {
	return s.SearchWithMonitor(ctx, query, mode, filter, nil)
}

// SearchWithMonitor runs one retrieval call with stage callbacks.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, mode Mode, filter *Filter, monitor SearchMonitor) *Response {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	resp := &Response{
		Query:     query,
		Mode:      mode,
		Timestamp: time.Now().UTC(),
	}

	monitor.Start(query, mode)

	needWeb := true
	if mode == ModeHybrid || mode == ModeDocuments || mode == ModeAuto {
		docResults, err := s.searchDocuments(ctx, query, filter)
		if err != nil {
			s.logger.Error("error searching documents", "query", query, "err", err)
			resp.Err = err
			docResults = nil
		}
		resp.DocumentResults = docResults
		monitor.AfterDocumentSearch(docResults)

		resp.DocumentConfidence = documentConfidence(docResults, s.config)
		needWeb = s.shouldSearchWeb(mode, resp.DocumentConfidence, docResults)
		monitor.AfterConfidence(resp.DocumentConfidence, needWeb)
	}

	if needWeb && mode != ModeDocuments {
		if s.web != nil {
			webResults, err := s.searchWeb(ctx, query)
			if err != nil {
				s.logger.Error("error searching web", "query", query, "err", err)
				if resp.Err == nil {
					resp.Err = err
				}
			}
			resp.WebResults = webResults
			resp.WebSearched = true
			resp.WebConfidence = s.config.WebConfidence
			monitor.AfterWebSearch(webResults)
		} else {
			s.logger.Warn("web search wanted but no provider configured", "mode", mode)
			if resp.Err == nil && (mode == ModeWeb || mode == ModeHybrid) {
				resp.Err = ErrNoWebProvider
			}
		}
	}

	resp.CombinedContext = buildContext(resp.DocumentResults, resp.WebResults, s.config)
	resp.Sources = buildSources(resp.DocumentResults, resp.WebResults, s.config)

	monitor.Finish(resp)
	return resp
}

// shouldSearchWeb decides whether web evidence is wanted after document
// search. Hybrid always wants it; auto wants it when confidence is below
// the threshold or no single hit clears StrongSimilarity.
func (s *Searcher) shouldSearchWeb(mode Mode, confidence float64, results []*DocumentResult) bool {
	switch mode {
	case ModeDocuments:
		return false
	case ModeHybrid, ModeWeb:
		return true
	}

	for _, result := range results {
		if float64(result.Similarity) > s.config.StrongSimilarity {
			return confidence < s.config.ConfidenceThreshold
		}
	}
	return true
}

// searchDocuments embeds the query, queries the vector index, and
// enriches each hit with its parent document's descriptive fields.
func (s *Searcher) searchDocuments(ctx context.Context, query string, filter *Filter) ([]*DocumentResult, error) {
	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var queryFilter *storage.QueryFilter
	if filter != nil && filter.DocumentID != "" {
		queryFilter = &storage.QueryFilter{DocumentID: filter.DocumentID}
	}

	hits, err := s.vectors.Query(ctx, vector, s.config.TopK, queryFilter)
	if err != nil {
		return nil, fmt.Errorf("query vector index: %w", err)
	}

	docs := make(map[string]*core.Document)
	results := make([]*DocumentResult, 0, len(hits))
	for _, hit := range hits {
		result := &DocumentResult{
			ChunkID:    hit.ChunkID,
			DocumentID: hit.DocumentID,
			ChunkIndex: hit.ChunkIndex,
			Content:    hit.Content,
			Similarity: hit.Similarity,
		}

		doc, ok := docs[hit.DocumentID]
		if !ok {
			doc, err = s.documents.GetDocument(ctx, hit.DocumentID)
			if err != nil {
				s.logger.Warn("error loading document for hit",
					"document_id", hit.DocumentID, "err", err)
				doc = nil
			}
			docs[hit.DocumentID] = doc
		}
		if doc != nil {
			result.DocumentTitle = doc.Meta.Title
			result.Filename = doc.OriginalName
			result.FileType = doc.FileType
			result.UploadedAt = doc.UploadedAt
		}

		results = append(results, result)
	}

	s.logger.Info("document search complete", "query", query, "hits", len(results))
	return results, nil
}

// SearchDocument searches within a single document, bypassing the
// confidence and fusion machinery.
func (s *Searcher) SearchDocument(ctx context.Context, documentID, query string, topK int) ([]*DocumentResult, error) {
	if topK <= 0 {
		topK = s.config.TopK
	}

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.vectors.Query(ctx, vector, topK, &storage.QueryFilter{DocumentID: documentID})
	if err != nil {
		return nil, fmt.Errorf("query vector index: %w", err)
	}

	doc, err := s.documents.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	results := make([]*DocumentResult, len(hits))
	for i, hit := range hits {
		results[i] = &DocumentResult{
			ChunkID:       hit.ChunkID,
			DocumentID:    hit.DocumentID,
			ChunkIndex:    hit.ChunkIndex,
			Content:       hit.Content,
			Similarity:    hit.Similarity,
			DocumentTitle: doc.Meta.Title,
			Filename:      doc.OriginalName,
			FileType:      doc.FileType,
			UploadedAt:    doc.UploadedAt,
		}
	}

	return results, nil
}

// DocumentContext returns up to maxChunks of a document's text in index
// order, formatted for inclusion in a prompt.
func (s *Searcher) DocumentContext(ctx context.Context, documentID string, maxChunks int) (string, error) {
	if maxChunks <= 0 {
		maxChunks = 10
	}

	chunks, err := s.documents.ChunksOf(ctx, documentID)
	if err != nil {
		return "", err
	}
	if len(chunks) > maxChunks {
		chunks = chunks[:maxChunks]
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = fmt.Sprintf("Chunk %d: %s", chunk.Index, chunk.Content)
	}

	return strings.Join(parts, "\n\n"), nil
}
