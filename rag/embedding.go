package rag

import (
	"context"
	"fmt"

	apperrors "trip-agent/errors"
	"trip-agent/llmclient"

	"go.uber.org/zap"
)

// EmbedDocuments embeds corpus texts in provider-sized batches, pausing
// between batches to respect the provider's requests-per-minute ceiling.
// A failed batch is logged and its vectors omitted rather than aborting the
// call; the second return value lists the original indices of the texts
// whose vectors survived, in order, so callers can correlate rows to texts
// explicitly. Zero rows back is a valid degrade signal, not an error.
func (r *RAG) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, []int) {
	if len(texts) == 0 {
		return nil, nil
	}

	var vectors [][]float32
	var kept []int
	executor := pacedExecutor{batchSize: r.cfg.EmbedBatchSize, interval: r.cfg.EmbedBatchDelay}
	executor.run(ctx, len(texts), func(start, end int) {
		batch, err := r.embedder.EmbedBatch(ctx, texts[start:end], llmclient.TaskDocument, r.cfg.EmbeddingDim)
		if err != nil {
			r.logger.Warn("Embedding batch failed, omitting its vectors",
				zap.Int("start", start),
				zap.Int("end", end),
				zap.Error(err))
			return
		}
		vectors = append(vectors, batch...)
		for i := start; i < start+len(batch); i++ {
			kept = append(kept, i)
		}
	})

	if len(kept) < len(texts) {
		r.logger.Warn("Corpus embedding degraded",
			zap.Int("requested", len(texts)),
			zap.Int("embedded", len(kept)))
	}
	return vectors, kept
}

// EmbedQuery embeds the user's search/intent string. Unlike per-batch
// document failures this is a hard failure of the retrieval call.
func (r *RAG) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := r.embedder.EmbedBatch(ctx, []string{query}, llmclient.TaskQuery, r.cfg.EmbeddingDim)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrQueryEmbedding, err)
	}
	if len(vectors) == 0 {
		return nil, apperrors.ErrQueryEmbedding
	}
	return vectors[0], nil
}
