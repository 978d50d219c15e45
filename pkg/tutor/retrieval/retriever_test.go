package retrieval

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"ai-tutoring-be/pkg/embedding"
	"ai-tutoring-be/pkg/store"

	"github.com/google/uuid"
)

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.1, 0.2, 0.3}},
	}, nil
}

type stubIndex struct {
	semantic    []store.ContextChunk
	lexical     []store.ContextChunk
	semanticErr error
	lexicalErr  error

	gotK             int
	gotMinSimilarity float64
}

func (s *stubIndex) SearchSemantic(ctx context.Context, userID uuid.UUID, vector []float32, k int, minSimilarity float64) ([]store.ContextChunk, error) {
	s.gotK = k
	s.gotMinSimilarity = minSimilarity
	return s.semantic, s.semanticErr
}

func (s *stubIndex) SearchLexical(ctx context.Context, userID uuid.UUID, query string, k int) ([]store.ContextChunk, error) {
	return s.lexical, s.lexicalErr
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestExecuteFusesAndCaps(t *testing.T) {
	semantic := make([]store.ContextChunk, 0, 8)
	lexical := make([]store.ContextChunk, 0, 8)
	for i := 0; i < 8; i++ {
		id := uuid.New()
		semantic = append(semantic, store.ContextChunk{ID: id, Score: 0.9 - float64(i)*0.05})
		lexical = append(lexical, store.ContextChunk{ID: id, Score: 10.0 - float64(i)})
	}

	index := &stubIndex{semantic: semantic, lexical: lexical}
	r := NewRetriever(&stubEmbedder{}, quietLogger())

	config := DefaultConfig()
	got, err := r.Execute(context.Background(), index, uuid.New(), "what is osmosis", config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != config.TopK {
		t.Fatalf("expected result capped at %d, got %d", config.TopK, len(got))
	}
	if index.gotK != config.FetchK {
		t.Errorf("expected fetch depth %d passed to index, got %d", config.FetchK, index.gotK)
	}
	if index.gotMinSimilarity != config.MinSimilarity {
		t.Errorf("expected similarity floor %.2f passed to index, got %.2f", config.MinSimilarity, index.gotMinSimilarity)
	}

	seen := make(map[uuid.UUID]bool)
	for i, c := range got {
		if seen[c.ID] {
			t.Errorf("duplicate chunk id %s in result", c.ID)
		}
		seen[c.ID] = true
		if i > 0 && got[i].Score > got[i-1].Score {
			t.Errorf("fused scores must be non-increasing, position %d violates", i)
		}
	}
}

func TestExecuteEmptyCorpusIsNotAnError(t *testing.T) {
	r := NewRetriever(&stubEmbedder{}, quietLogger())

	got, err := r.Execute(context.Background(), &stubIndex{}, uuid.New(), "anything", DefaultConfig())
	if err != nil {
		t.Fatalf("empty corpus must not error, got %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty context, got %d chunks", len(got))
	}
}

func TestExecuteSurfacesSearchErrors(t *testing.T) {
	r := NewRetriever(&stubEmbedder{}, quietLogger())

	wantErr := errors.New("connection refused")
	if _, err := r.Execute(context.Background(), &stubIndex{semanticErr: wantErr}, uuid.New(), "q", DefaultConfig()); !errors.Is(err, wantErr) {
		t.Fatalf("expected semantic error surfaced, got %v", err)
	}
	if _, err := r.Execute(context.Background(), &stubIndex{lexicalErr: wantErr}, uuid.New(), "q", DefaultConfig()); !errors.Is(err, wantErr) {
		t.Fatalf("expected lexical error surfaced, got %v", err)
	}
}

func TestExecuteSurfacesEmbeddingError(t *testing.T) {
	wantErr := errors.New("model offline")
	r := NewRetriever(&stubEmbedder{err: wantErr}, quietLogger())

	if _, err := r.Execute(context.Background(), &stubIndex{}, uuid.New(), "q", DefaultConfig()); !errors.Is(err, wantErr) {
		t.Fatalf("expected embedding error surfaced, got %v", err)
	}
}
