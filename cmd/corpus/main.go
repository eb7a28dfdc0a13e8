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


package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/corpus"
	"github.com/poiesic/corpus/ai"
	"github.com/poiesic/corpus/core"
	"github.com/poiesic/corpus/reindex"
	"github.com/poiesic/corpus/search"
	"github.com/poiesic/corpus/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "corpus",
		Usage: "Document retrieval system with hybrid document and web search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Ingest a document file into the corpus",
				ArgsUsage: "<file>",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "uploads-dir",
						Usage: "Directory where raw uploaded files are retained",
						Value: "uploads",
					},
					&cli.StringFlag{
						Name:  "mime",
						Usage: "Mime type of the file (detected from extension if omitted)",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search the corpus",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "mode",
						Usage: "Search mode (hybrid, documents, web, auto)",
						Value: "hybrid",
					},
					&cli.StringFlag{
						Name:  "document",
						Usage: "Restrict search to a single document ID",
					},
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Number of document chunks to retrieve",
						Value: 5,
					},
				},
			},
			{
				Name:   "list",
				Usage:  "List documents in the corpus",
				Action: listCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of documents to list",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Number of documents to skip",
					},
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status (processing, completed, failed)",
					},
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a document and its index entries",
				ArgsUsage: "<document-id>",
				Action:    deleteCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show corpus statistics",
				Action: statsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
				},
			},
			{
				Name:   "reset",
				Usage:  "Delete all documents, chunks, and vectors",
				Action: resetCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the vector index with new embeddings",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of concurrent embedding workers",
						Value: 2,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openEngine opens the engine at the --db path with the command's
// embedding configuration applied when present.
func openEngine(c *cli.Context, extra ...corpus.EngineOption) (*corpus.Engine, error) {
	dbPath := c.String("db")
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	opts := extra
	if c.IsSet("embedding-model") || c.IsSet("embedding-host") {
		aiConfig := ai.NewConfig(
			ai.WithEmbeddingHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(c.String("embedding-model")),
		)
		if err := aiConfig.Validate(); err != nil {
			return nil, fmt.Errorf("invalid AI configuration: %w", err)
		}
		opts = append(opts, corpus.WithAIConfig(aiConfig))
	}

	engine, err := corpus.Open(dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return engine, nil
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	mimeType := c.String("mime")
	if mimeType == "" {
		mimeType = mimeForPath(path)
	}
	if mimeType == "" {
		return fmt.Errorf("cannot determine mime type for %q: use --mime", path)
	}

	engine, err := openEngine(c, corpus.WithUploadsDir(c.String("uploads-dir")))
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	result, err := engine.Ingest(ctx, data, mimeType, filepath.Base(path))
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if result.Duplicate {
		fmt.Printf("Duplicate of existing document %s\n", result.DocumentID)
		return nil
	}

	fmt.Printf("Document ID: %s\n", result.DocumentID)
	fmt.Printf("Title: %s\n", result.Meta.Title)
	fmt.Printf("Language: %s\n", result.Meta.Language)
	fmt.Printf("Chunks: %d\n", len(result.Chunks))
	if len(result.Meta.Keywords) > 0 {
		fmt.Printf("Keywords: %s\n", strings.Join(result.Meta.Keywords, ", "))
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	query := c.Args().First()
	if query == "" {
		return fmt.Errorf("query is required")
	}

	mode, err := search.ParseMode(c.String("mode"))
	if err != nil {
		return err
	}

	searchConfig := search.DefaultConfig(search.WithTopK(c.Int("top-k")))
	engine, err := openEngine(c, corpus.WithSearchConfig(searchConfig))
	if err != nil {
		return err
	}
	defer engine.Close()

	var filter *search.Filter
	if docID := c.String("document"); docID != "" {
		filter = &search.Filter{DocumentID: docID}
	}

	resp := engine.Search(ctx, query, mode, filter)
	if resp.Err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", resp.Err)
	}

	fmt.Printf("Mode: %s\n", resp.Mode)
	fmt.Printf("Document confidence: %.3f\n", resp.DocumentConfidence)
	fmt.Printf("Web searched: %t\n", resp.WebSearched)
	fmt.Println()

	if len(resp.Sources) == 0 {
		fmt.Println("No relevant sources found.")
		return nil
	}

	for i, src := range resp.Sources {
		fmt.Printf("%d. [%s] %s", i+1, src.Type, src.Title)
		if src.Type == search.SourceTypeDocument {
			fmt.Printf(" (%.3f)", src.Similarity)
		}
		fmt.Println()
		fmt.Printf("   %s\n", src.URL)
	}
	fmt.Println()
	fmt.Println(resp.CombinedContext)
	return nil
}

func listCommand(c *cli.Context) error {
	ctx := context.Background()

	opts := storage.ListOptions{
		Limit:  c.Int("limit"),
		Offset: c.Int("offset"),
	}
	if statusStr := c.String("status"); statusStr != "" {
		status, err := parseStatus(statusStr)
		if err != nil {
			return err
		}
		opts.Status = status
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	docs, err := engine.Documents(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	for _, doc := range docs {
		fmt.Printf("%s  %-10s  %-4s  %s\n",
			doc.ID, doc.Status, doc.FileType, doc.OriginalName)
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	ctx := context.Background()

	docID := c.Args().First()
	if docID == "" {
		return fmt.Errorf("document ID is required")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Delete(ctx, docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	fmt.Printf("Deleted %s\n", docID)
	return nil
}

func statsCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	stats, err := engine.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect stats: %w", err)
	}

	fmt.Printf("Documents: %d\n", stats.Documents)
	fmt.Printf("Chunks: %d\n", stats.Chunks)
	fmt.Printf("Vectors: %d\n", stats.Vectors)
	for _, status := range []core.DocumentStatus{core.StatusProcessing, core.StatusCompleted, core.StatusFailed} {
		fmt.Printf("  %s: %d\n", status, stats.StatusCounts[status.String()])
	}
	fmt.Printf("Embedding model: %s\n", stats.EmbeddingModel)
	return nil
}

func resetCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset stores: %w", err)
	}

	fmt.Println("All documents, chunks, and vectors deleted.")
	return nil
}

func reindexCommand(c *cli.Context) error {
	ctx := context.Background()

	config := &reindex.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		Workers:        c.Int("workers"),
	}

	// Validate config
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}
	if config.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0")
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", c.String("embedding-host"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	if err := engine.Reindex(ctx, config, os.Stderr); err != nil {
		return fmt.Errorf("reindexing failed: %w", err)
	}

	return nil
}

// mimeForPath maps a file extension to one of the supported mime types.
func mimeForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return core.MimePDF
	case ".txt":
		return core.MimePlainText
	case ".md", ".markdown":
		return core.MimeMarkdown
	case ".docx":
		return core.MimeWordProcessor
	default:
		return ""
	}
}

func parseStatus(s string) (core.DocumentStatus, error) {
	switch strings.ToLower(s) {
	case "processing":
		return core.StatusProcessing, nil
	case "completed":
		return core.StatusCompleted, nil
	case "failed":
		return core.StatusFailed, nil
	default:
		return 0, fmt.Errorf("invalid status %q: must be one of processing, completed, failed", s)
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
