package contract

import (
	"context"

	"ai-tutoring-be/internal/entity"
	"ai-tutoring-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredDocumentChunk wraps a DocumentChunk with its ranking score. For
// semantic search the score is cosine similarity in [0, 1]; for lexical
// search it is the matched-term count.
type ScoredDocumentChunk struct {
	Chunk *entity.DocumentChunk
	Score float64
}

type DocumentChunkRepository interface {
	Create(ctx context.Context, chunk *entity.DocumentChunk) error
	CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	DeleteAllByUserIdUnscoped(ctx context.Context, userId uuid.UUID) error // Hard delete chunks
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentChunk, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// Advanced
	// SearchSemantic ranks the user's chunks by pgvector cosine similarity,
	// dropping candidates below threshold.
	SearchSemantic(ctx context.Context, embedding []float32, limit int, userId uuid.UUID, threshold float64) ([]*ScoredDocumentChunk, error)
	// SearchLexical ranks the user's chunks by how many query terms their
	// content matches (case-insensitive).
	SearchLexical(ctx context.Context, query string, limit int, userId uuid.UUID) ([]*ScoredDocumentChunk, error)
}
