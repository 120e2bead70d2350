package rag

import (
	"context"

	"trip-agent/config"
	"trip-agent/search"

	"go.uber.org/zap"
)

// SearchClient is the slice of the search provider the pipeline consumes:
// a search call plus a direct-extraction fallback for results that arrive
// without inline content.
type SearchClient interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
	Extract(ctx context.Context, url string) (string, error)
}

// Embedder converts a batch of texts into fixed-dimensionality vectors.
// task is an embedding task hint (llmclient.TaskDocument / TaskQuery).
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string, task string, dim int) ([][]float32, error)
}

// Generator performs a single text generation call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SearchResultItem is one collected content candidate. Immutable once
// produced; a batch lives in session state until the next collection.
type SearchResultItem struct {
	Title        string `json:"title"`
	URL          string `json:"url"`
	Site         string `json:"site"`
	Content      string `json:"content"`
	ContentChars int    `json:"content_chars"`
}

// SourceRef identifies where a chunk's content originated.
type SourceRef struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Site  string `json:"site"`
}

// RAG wires the retrieval pipeline: aggregation, chunking, embedding,
// similarity search and per-chunk compression. One retrieval call is
// strictly sequential; nothing built during a call outlives it.
type RAG struct {
	cfg       *config.Config
	searcher  SearchClient
	embedder  Embedder
	generator Generator
	logger    *zap.Logger
}

func New(cfg *config.Config, searcher SearchClient, embedder Embedder, generator Generator, logger *zap.Logger) *RAG {
	return &RAG{
		cfg:       cfg,
		searcher:  searcher,
		embedder:  embedder,
		generator: generator,
		logger:    logger,
	}
}
