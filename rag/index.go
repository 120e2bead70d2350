package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// vectorIndex is the similarity-search strategy built once per retrieval
// call. Both implementations honor the same contract: Search returns the k
// highest-cosine-similarity corpus vectors, descending by score, with k
// clamped to the corpus size; searching an empty index returns empty results.
type vectorIndex interface {
	Build(ctx context.Context, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]int, []float32, error)
	Size() int
}

// newVectorIndex picks the strategy configured at process start.
func newVectorIndex(strategy string) vectorIndex {
	if strings.EqualFold(strategy, "brute") {
		return &bruteIndex{}
	}
	return &chromemIndex{}
}

// buildIndex constructs the configured index over the corpus vectors,
// degrading to brute-force similarity if the primary strategy cannot build.
func (r *RAG) buildIndex(ctx context.Context, vectors [][]float32) vectorIndex {
	idx := newVectorIndex(r.cfg.IndexStrategy)
	if err := idx.Build(ctx, vectors); err != nil {
		r.logger.Warn("Primary index construction failed, falling back to brute-force similarity",
			zap.Error(err))
		fallback := &bruteIndex{}
		fallback.Build(ctx, vectors)
		return fallback
	}
	return idx
}

// chromemIndex backs top-k lookup with an in-memory chromem collection.
// Documents carry precomputed embeddings; chromem normalizes them and ranks
// by cosine similarity.
type chromemIndex struct {
	collection *chromem.Collection
	size       int
}

func (x *chromemIndex) Build(ctx context.Context, vectors [][]float32) error {
	x.size = len(vectors)
	if x.size == 0 {
		return nil
	}

	// The collection never embeds on its own; every vector is precomputed.
	rejectEmbed := func(_ context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("index accepts precomputed embeddings only")
	}
	collection, err := chromem.NewDB().CreateCollection("retrieval", nil, rejectEmbed)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	docs := make([]chromem.Document, 0, len(vectors))
	for i, vec := range vectors {
		id := strconv.Itoa(i)
		docs = append(docs, chromem.Document{
			ID:        id,
			Content:   id,
			Embedding: vec,
		})
	}
	if err := collection.AddDocuments(ctx, docs, 4); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	x.collection = collection
	return nil
}

func (x *chromemIndex) Size() int { return x.size }

func (x *chromemIndex) Search(ctx context.Context, query []float32, k int) ([]int, []float32, error) {
	if x.size == 0 || k <= 0 {
		return nil, nil, nil
	}
	k = min(k, x.size)

	results, err := x.collection.QueryEmbedding(ctx, query, k, nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("query collection: %w", err)
	}

	ids := make([]int, 0, len(results))
	scores := make([]float32, 0, len(results))
	for _, res := range results {
		id, err := strconv.Atoi(res.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
		scores = append(scores, res.Similarity)
	}
	return ids, scores, nil
}

// bruteIndex is the degraded path: normalize both sides, compute the full
// similarity row and take the top k, ties broken by first-seen order.
type bruteIndex struct {
	vectors [][]float32
}

func (x *bruteIndex) Build(_ context.Context, vectors [][]float32) error {
	x.vectors = make([][]float32, len(vectors))
	for i, v := range vectors {
		x.vectors[i] = normalizeVector(v)
	}
	return nil
}

func (x *bruteIndex) Size() int { return len(x.vectors) }

func (x *bruteIndex) Search(_ context.Context, query []float32, k int) ([]int, []float32, error) {
	if len(x.vectors) == 0 || k <= 0 {
		return nil, nil, nil
	}
	k = min(k, len(x.vectors))

	q := normalizeVector(query)
	scores := make([]float32, len(x.vectors))
	for i, v := range x.vectors {
		scores[i] = dot(v, q)
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return scores[order[i]] > scores[order[j]]
	})

	ids := make([]int, k)
	topScores := make([]float32, k)
	for i := 0; i < k; i++ {
		ids[i] = order[i]
		topScores[i] = scores[order[i]]
	}
	return ids, topScores, nil
}

func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum) + 1e-9
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float32 {
	n := min(len(a), len(b))
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
