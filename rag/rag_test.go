package rag

import (
	"context"
	"testing"

	"trip-agent/config"
	"trip-agent/search"

	"go.uber.org/zap"
)

// testConfig mirrors the production defaults minus the pacing delays so
// tests never sleep.
func testConfig() *config.Config {
	return &config.Config{
		SearchDomains:       []string{"iyokannet.jp"},
		RestrictedSiteLabel: "いよ観ネット",
		SearchDepth:         "advanced",
		ChunksPerSource:     3,
		MaxContentChars:     10000,
		TitleMaxChars:       180,
		ChunkSize:           800,
		ChunkOverlap:        120,
		EmbedBatchSize:      100,
		EmbeddingDim:        768,
		CompressInputChars:  4000,
		TopK:                8,
		IndexStrategy:       "brute",
	}
}

type fakeSearcher struct {
	searchFn  func(req search.Request) (*search.Response, error)
	extractFn func(url string) (string, error)

	searches []search.Request
	extracts []string
}

func (f *fakeSearcher) Search(_ context.Context, req search.Request) (*search.Response, error) {
	f.searches = append(f.searches, req)
	return f.searchFn(req)
}

func (f *fakeSearcher) Extract(_ context.Context, url string) (string, error) {
	f.extracts = append(f.extracts, url)
	if f.extractFn == nil {
		return "", context.Canceled
	}
	return f.extractFn(url)
}

type embedCall struct {
	texts []string
	task  string
	dim   int
}

type fakeEmbedder struct {
	batchFn func(texts []string, task string) ([][]float32, error)
	calls   []embedCall
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string, task string, dim int) ([][]float32, error) {
	f.calls = append(f.calls, embedCall{texts: texts, task: task, dim: dim})
	return f.batchFn(texts, task)
}

type fakeGenerator struct {
	generateFn func(prompt string) (string, error)
	prompts    []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.generateFn == nil {
		return "summary", nil
	}
	return f.generateFn(prompt)
}

func newTestRAG(t *testing.T, cfg *config.Config, searcher SearchClient, embedder Embedder, generator Generator) *RAG {
	t.Helper()
	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return New(cfg, searcher, embedder, generator, logger)
}
