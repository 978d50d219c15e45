package reason

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"ai-tutoring-be/pkg/llm"
	"ai-tutoring-be/pkg/store"

	"github.com/google/uuid"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func testChunks() []store.ContextChunk {
	return []store.ContextChunk{
		{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), Source: "cells.pdf", Page: 3, Content: "Osmosis moves water across membranes."},
		{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), Source: "cells.pdf", Page: 4, Content: "Distilled water has no solutes."},
	}
}

func TestBuildResolvesChunkRefs(t *testing.T) {
	b := NewBuilder(llm.NewMockProvider(`{
		"steps": [
			{"text": "Distilled water is hypotonic to cytoplasm.", "chunk_refs": [2]},
			{"text": "Water therefore moves into the cell.", "chunk_refs": [1, 2]}
		],
		"final_answer": "Water enters by osmosis because the cytoplasm holds more solutes."
	}`), quietLogger())

	artifact, err := b.Build(context.Background(), "Why do plant cells swell in distilled water?", testChunks())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if artifact.Question != "Why do plant cells swell in distilled water?" {
		t.Errorf("question not carried into artifact: %q", artifact.Question)
	}
	if len(artifact.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(artifact.Steps))
	}
	if len(artifact.Steps[0].ChunkIDs) != 1 || artifact.Steps[0].ChunkIDs[0] != testChunks()[1].ID {
		t.Errorf("step 1 chunk refs wrong: %v", artifact.Steps[0].ChunkIDs)
	}
	if len(artifact.Steps[1].ChunkIDs) != 2 {
		t.Errorf("step 2 should cite both chunks, got %v", artifact.Steps[1].ChunkIDs)
	}
	if artifact.FinalAnswer == "" {
		t.Error("final answer missing")
	}
}

func TestBuildDropsOutOfRangeRefs(t *testing.T) {
	b := NewBuilder(llm.NewMockProvider(`{
		"steps": [{"text": "Step citing nothing real.", "chunk_refs": [0, 7]}],
		"final_answer": "Answer."
	}`), quietLogger())

	artifact, err := b.Build(context.Background(), "q", testChunks())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(artifact.Steps[0].ChunkIDs) != 0 {
		t.Errorf("out-of-range refs must be dropped, got %v", artifact.Steps[0].ChunkIDs)
	}
}

func TestBuildRejectsEmptyArtifact(t *testing.T) {
	cases := []string{
		`{"steps": [], "final_answer": "answer"}`,
		`{"steps": [{"text": "a step", "chunk_refs": [1]}], "final_answer": ""}`,
		`{"steps": [{"text": "   ", "chunk_refs": [1]}], "final_answer": "answer"}`,
	}

	for _, response := range cases {
		b := NewBuilder(llm.NewMockProvider(response), quietLogger())
		if _, err := b.Build(context.Background(), "q", testChunks()); err == nil {
			t.Errorf("response %q: expected incomplete-artifact error", response)
		}
	}
}

func TestBuildSurfacesProviderError(t *testing.T) {
	provider := llm.NewMockProvider()
	wantErr := errors.New("model offline")
	provider.QueueError(wantErr)
	b := NewBuilder(provider, quietLogger())

	if _, err := b.Build(context.Background(), "q", testChunks()); !errors.Is(err, wantErr) {
		t.Fatalf("expected provider error surfaced, got %v", err)
	}
}

func TestBuildRejectsNonJSONResponse(t *testing.T) {
	b := NewBuilder(llm.NewMockProvider("here is my reasoning in prose"), quietLogger())

	if _, err := b.Build(context.Background(), "q", testChunks()); err == nil {
		t.Fatal("expected error for response without JSON")
	}
}
