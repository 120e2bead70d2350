package rag

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Select retrieves the k chunks most relevant to query from the collected
// items and returns their compressed, attributed context blocks in ranked
// order plus the deduplicated sources they came from. An empty corpus, or a
// corpus whose embedding fully degraded, short-circuits to an empty result;
// only a failed query embedding is an error.
func (r *RAG) Select(ctx context.Context, items []SearchResultItem, query string, k int) ([]string, []SourceRef, error) {
	if k <= 0 {
		k = r.cfg.TopK
	}

	var chunkTexts []string
	var chunkSources []SourceRef
	for _, item := range items {
		for _, chunk := range Chunk(item.Content, r.cfg.ChunkSize, r.cfg.ChunkOverlap) {
			chunkTexts = append(chunkTexts, chunk)
			chunkSources = append(chunkSources, SourceRef{Title: item.Title, URL: item.URL, Site: item.Site})
		}
	}
	if len(chunkTexts) == 0 {
		return nil, nil, nil
	}

	vectors, kept := r.EmbedDocuments(ctx, chunkTexts)
	if len(vectors) == 0 {
		r.logger.Warn("No chunk embeddings produced, returning empty retrieval result",
			zap.Int("chunks", len(chunkTexts)))
		return nil, nil, nil
	}

	queryVector, err := r.EmbedQuery(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	index := r.buildIndex(ctx, vectors)
	ids, scores, err := index.Search(ctx, queryVector, k)
	if err != nil {
		return nil, nil, fmt.Errorf("similarity search: %w", err)
	}

	blocks := make([]string, 0, len(ids))
	sources := make([]SourceRef, 0, len(ids))
	seenURL := make(map[string]bool)

	// One compression call per ranked id, paced for the generation API.
	executor := pacedExecutor{batchSize: 1, interval: r.cfg.CompressDelay}
	executor.run(ctx, len(ids), func(rank, _ int) {
		chunkID := kept[ids[rank]]
		source := chunkSources[chunkID]

		// Dedup by URL; the highest-ranked chunk fixes a source's position.
		if !seenURL[source.URL] {
			seenURL[source.URL] = true
			sources = append(sources, source)
		}

		summary, err := r.compressChunk(ctx, chunkTexts[chunkID])
		if err != nil {
			r.logger.Warn("Chunk compression failed, skipping context block",
				zap.String("url", source.URL),
				zap.Float32("score", scores[rank]),
				zap.Error(err))
			return
		}
		blocks = append(blocks, fmt.Sprintf("source: %s | %s\npoints:\n%s", source.Title, source.URL, summary))
	})

	r.logger.Info("Selected retrieval context",
		zap.Int("chunks", len(chunkTexts)),
		zap.Int("embedded", len(kept)),
		zap.Int("blocks", len(blocks)),
		zap.Int("sources", len(sources)))
	return blocks, sources, nil
}
