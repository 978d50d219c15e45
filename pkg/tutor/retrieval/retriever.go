package retrieval

import (
	"context"
	"fmt"
	"log"

	"ai-tutoring-be/pkg/embedding"
	"ai-tutoring-be/pkg/store"

	"github.com/google/uuid"
)

// Index is the corpus search surface the retriever runs against. Results
// are scoped to the owning user and ordered best-first; either list may
// be empty.
type Index interface {
	SearchSemantic(ctx context.Context, userID uuid.UUID, vector []float32, k int, minSimilarity float64) ([]store.ContextChunk, error)
	SearchLexical(ctx context.Context, userID uuid.UUID, query string, k int) ([]store.ContextChunk, error)
}

// Config encapsulates retrieval parameters.
type Config struct {
	// FetchK is the per-ranking candidate depth fed into fusion.
	FetchK int
	// TopK caps the fused result.
	TopK int
	// MinSimilarity drops weak semantic candidates before fusion.
	MinSimilarity float64
	// RRFK is the reciprocal-rank-fusion constant.
	RRFK int
}

// DefaultConfig returns default retrieval configuration.
func DefaultConfig() Config {
	return Config{
		FetchK:        20,
		TopK:          5,
		MinSimilarity: 0.35,
		RRFK:          DefaultRRFK,
	}
}

// Retriever runs the hybrid search: one semantic ranking from the query
// embedding, one lexical ranking from the raw query text, fused with RRF.
type Retriever struct {
	embeddingProvider embedding.EmbeddingProvider
	logger            *log.Logger
}

func NewRetriever(embeddingProvider embedding.EmbeddingProvider, logger *log.Logger) *Retriever {
	return &Retriever{
		embeddingProvider: embeddingProvider,
		logger:            logger,
	}
}

// Execute runs both searches and returns the fused, capped context.
// An empty corpus or a query matching nothing yields an empty slice, not
// an error; the caller decides what an empty retrieval means.
func (r *Retriever) Execute(ctx context.Context, index Index, userID uuid.UUID, query string, config Config) ([]store.ContextChunk, error) {
	embeddingRes, err := r.embeddingProvider.Generate(query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	semantic, err := index.SearchSemantic(ctx, userID, embeddingRes.Embedding.Values, config.FetchK, config.MinSimilarity)
	if err != nil {
		return nil, fmt.Errorf("semantic search failed: %w", err)
	}

	lexical, err := index.SearchLexical(ctx, userID, query, config.FetchK)
	if err != nil {
		return nil, fmt.Errorf("lexical search failed: %w", err)
	}

	r.logger.Printf("[DEBUG] Retrieval candidates: semantic=%d lexical=%d", len(semantic), len(lexical))

	fused := NewFuser(config.RRFK).Fuse(semantic, lexical)
	if len(fused) > config.TopK {
		fused = fused[:config.TopK]
	}

	for i, c := range fused {
		r.logger.Printf("[DEBUG] Context %d: %s p.%d score=%.4f", i+1, c.Source, c.Page, c.Score)
	}

	return fused, nil
}
