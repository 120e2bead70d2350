package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"

	apperrors "trip-agent/errors"
	"trip-agent/llmclient"
)

func TestEmbedDocumentsBatches(t *testing.T) {
	embedder := &fakeEmbedder{
		batchFn: func(texts []string, task string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i := range texts {
				out[i] = []float32{1, 0}
			}
			return out, nil
		},
	}
	cfg := testConfig()
	cfg.EmbedBatchSize = 2
	r := newTestRAG(t, cfg, nil, embedder, nil)

	texts := []string{"t0", "t1", "t2", "t3", "t4"}
	vectors, kept := r.EmbedDocuments(context.Background(), texts)

	if len(embedder.calls) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(embedder.calls))
	}
	wantSizes := []int{2, 2, 1}
	for i, call := range embedder.calls {
		if len(call.texts) != wantSizes[i] {
			t.Errorf("batch %d size = %d, want %d", i, len(call.texts), wantSizes[i])
		}
		if call.task != llmclient.TaskDocument {
			t.Errorf("batch %d task = %q", i, call.task)
		}
		if call.dim != cfg.EmbeddingDim {
			t.Errorf("batch %d dim = %d, want %d", i, call.dim, cfg.EmbeddingDim)
		}
	}
	if len(vectors) != 5 || len(kept) != 5 {
		t.Fatalf("got %d vectors, %d kept indices, want 5 each", len(vectors), len(kept))
	}
}

func TestEmbedDocumentsOmitsFailedBatch(t *testing.T) {
	var batch int
	embedder := &fakeEmbedder{
		batchFn: func(texts []string, task string) ([][]float32, error) {
			batch++
			if batch == 2 {
				return nil, fmt.Errorf("rate limited")
			}
			out := make([][]float32, len(texts))
			for i := range texts {
				out[i] = []float32{1, 0}
			}
			return out, nil
		},
	}
	cfg := testConfig()
	cfg.EmbedBatchSize = 2
	r := newTestRAG(t, cfg, nil, embedder, nil)

	vectors, kept := r.EmbedDocuments(context.Background(), []string{"t0", "t1", "t2", "t3", "t4"})

	if len(vectors) != 3 {
		t.Fatalf("expected 3 surviving vectors, got %d", len(vectors))
	}
	wantKept := []int{0, 1, 4}
	if len(kept) != len(wantKept) {
		t.Fatalf("kept = %v, want %v", kept, wantKept)
	}
	for i, want := range wantKept {
		if kept[i] != want {
			t.Errorf("kept[%d] = %d, want %d", i, kept[i], want)
		}
	}
}

func TestEmbedDocumentsEmptyInput(t *testing.T) {
	embedder := &fakeEmbedder{
		batchFn: func(texts []string, task string) ([][]float32, error) {
			t.Fatal("embedder must not be called for an empty corpus")
			return nil, nil
		},
	}
	r := newTestRAG(t, testConfig(), nil, embedder, nil)
	vectors, kept := r.EmbedDocuments(context.Background(), nil)
	if vectors != nil || kept != nil {
		t.Errorf("expected nil results, got %v %v", vectors, kept)
	}
}

func TestEmbedQuery(t *testing.T) {
	embedder := &fakeEmbedder{
		batchFn: func(texts []string, task string) ([][]float32, error) {
			if task != llmclient.TaskQuery {
				t.Errorf("task = %q, want %q", task, llmclient.TaskQuery)
			}
			return [][]float32{{0.5, 0.5}}, nil
		},
	}
	r := newTestRAG(t, testConfig(), nil, embedder, nil)

	vec, err := r.EmbedQuery(context.Background(), "道後温泉 アクセス")
	if err != nil {
		t.Fatalf("EmbedQuery() error: %v", err)
	}
	if len(vec) != 2 {
		t.Errorf("vector length = %d, want 2", len(vec))
	}
}

func TestEmbedQueryFailureIsHard(t *testing.T) {
	embedder := &fakeEmbedder{
		batchFn: func(texts []string, task string) ([][]float32, error) {
			return nil, fmt.Errorf("provider down")
		},
	}
	r := newTestRAG(t, testConfig(), nil, embedder, nil)

	_, err := r.EmbedQuery(context.Background(), "query")
	if !errors.Is(err, apperrors.ErrQueryEmbedding) {
		t.Errorf("expected ErrQueryEmbedding, got %v", err)
	}
}
