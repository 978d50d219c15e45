package corpus

import (
	"context"

	"ai-tutoring-be/internal/repository/contract"
	"ai-tutoring-be/internal/repository/specification"
	"ai-tutoring-be/pkg/store"
	"ai-tutoring-be/pkg/tutor/retrieval"

	"github.com/google/uuid"
)

// Index adapts the chunk repository to the dialogue engine's corpus
// search contract. Both rankings come back as ContextChunks carrying the
// owning document's source name for citations.
type Index struct {
	chunks    contract.DocumentChunkRepository
	documents contract.DocumentRepository
}

var _ retrieval.Index = (*Index)(nil)

func NewIndex(chunks contract.DocumentChunkRepository, documents contract.DocumentRepository) *Index {
	return &Index{
		chunks:    chunks,
		documents: documents,
	}
}

func (idx *Index) SearchSemantic(ctx context.Context, userID uuid.UUID, vector []float32, k int, minSimilarity float64) ([]store.ContextChunk, error) {
	scored, err := idx.chunks.SearchSemantic(ctx, vector, k, userID, minSimilarity)
	if err != nil {
		return nil, err
	}
	return idx.toContextChunks(ctx, scored)
}

func (idx *Index) SearchLexical(ctx context.Context, userID uuid.UUID, query string, k int) ([]store.ContextChunk, error) {
	scored, err := idx.chunks.SearchLexical(ctx, query, k, userID)
	if err != nil {
		return nil, err
	}
	return idx.toContextChunks(ctx, scored)
}

func (idx *Index) toContextChunks(ctx context.Context, scored []*contract.ScoredDocumentChunk) ([]store.ContextChunk, error) {
	if len(scored) == 0 {
		return nil, nil
	}

	seen := make(map[uuid.UUID]bool)
	docIds := make([]uuid.UUID, 0, len(scored))
	for _, s := range scored {
		if !seen[s.Chunk.DocumentId] {
			seen[s.Chunk.DocumentId] = true
			docIds = append(docIds, s.Chunk.DocumentId)
		}
	}

	documents, err := idx.documents.FindAll(ctx, specification.ByIDs{IDs: docIds})
	if err != nil {
		return nil, err
	}
	sourceByDoc := make(map[uuid.UUID]string, len(documents))
	for _, doc := range documents {
		sourceByDoc[doc.Id] = doc.SourceName
	}

	chunks := make([]store.ContextChunk, len(scored))
	for i, s := range scored {
		chunks[i] = store.ContextChunk{
			ID:         s.Chunk.Id,
			DocumentID: s.Chunk.DocumentId,
			Source:     sourceByDoc[s.Chunk.DocumentId],
			Page:       s.Chunk.Page,
			Content:    s.Chunk.Content,
			Score:      s.Score,
		}
	}
	return chunks, nil
}
