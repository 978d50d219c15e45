package retrieval

import (
	"math"
	"testing"

	"ai-tutoring-be/pkg/store"

	"github.com/google/uuid"
)

func chunk(id string, score float64) store.ContextChunk {
	return store.ContextChunk{ID: uuid.MustParse(id), Score: score}
}

const (
	idA = "00000000-0000-0000-0000-00000000000a"
	idB = "00000000-0000-0000-0000-00000000000b"
	idC = "00000000-0000-0000-0000-00000000000c"
	idD = "00000000-0000-0000-0000-00000000000d"
)

func TestFuseSumsContributionsAcrossRankings(t *testing.T) {
	f := NewFuser(60)

	semantic := []store.ContextChunk{chunk(idA, 0.9), chunk(idB, 0.8)}
	lexical := []store.ContextChunk{chunk(idB, 12.0), chunk(idC, 4.0)}

	fused := f.Fuse(semantic, lexical)

	if len(fused) != 3 {
		t.Fatalf("expected 3 unique chunks, got %d", len(fused))
	}

	// B appears in both rankings: rank 2 semantic, rank 1 lexical.
	wantB := 1.0/62.0 + 1.0/61.0
	if fused[0].ID != uuid.MustParse(idB) {
		t.Fatalf("expected chunk B first, got %s", fused[0].ID)
	}
	if math.Abs(fused[0].Score-wantB) > 1e-12 {
		t.Errorf("chunk B score: expected %.12f, got %.12f", wantB, fused[0].Score)
	}

	// A only in semantic at rank 1, C only in lexical at rank 2.
	wantA := 1.0 / 61.0
	wantC := 1.0 / 62.0
	if fused[1].ID != uuid.MustParse(idA) || math.Abs(fused[1].Score-wantA) > 1e-12 {
		t.Errorf("chunk A: expected score %.12f at position 2, got %s %.12f", wantA, fused[1].ID, fused[1].Score)
	}
	if fused[2].ID != uuid.MustParse(idC) || math.Abs(fused[2].Score-wantC) > 1e-12 {
		t.Errorf("chunk C: expected score %.12f at position 3, got %s %.12f", wantC, fused[2].ID, fused[2].Score)
	}
}

func TestFuseScoresNonIncreasing(t *testing.T) {
	f := NewFuser(60)

	semantic := []store.ContextChunk{chunk(idA, 0.95), chunk(idB, 0.9), chunk(idC, 0.7)}
	lexical := []store.ContextChunk{chunk(idD, 9.0), chunk(idA, 7.5)}

	fused := f.Fuse(semantic, lexical)

	for i := 1; i < len(fused); i++ {
		if fused[i].Score > fused[i-1].Score {
			t.Fatalf("scores increase at position %d: %.12f > %.12f", i, fused[i].Score, fused[i-1].Score)
		}
	}
}

func TestFuseBreaksTiesByChunkID(t *testing.T) {
	f := NewFuser(60)

	// Same rank in disjoint rankings produces identical contributions.
	first := []store.ContextChunk{chunk(idD, 0.9)}
	second := []store.ContextChunk{chunk(idA, 5.0)}

	fused := f.Fuse(first, second)

	if len(fused) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(fused))
	}
	if fused[0].Score != fused[1].Score {
		t.Fatalf("expected tied scores, got %.12f and %.12f", fused[0].Score, fused[1].Score)
	}
	if fused[0].ID != uuid.MustParse(idA) {
		t.Errorf("tie should order by ascending id, got %s first", fused[0].ID)
	}
}

func TestFuseIgnoresRepeatedIDWithinRanking(t *testing.T) {
	f := NewFuser(60)

	ranking := []store.ContextChunk{chunk(idA, 0.9), chunk(idA, 0.5), chunk(idB, 0.4)}

	fused := f.Fuse(ranking)

	if len(fused) != 2 {
		t.Fatalf("expected duplicate collapsed, got %d chunks", len(fused))
	}
	wantA := 1.0 / 61.0
	if math.Abs(fused[0].Score-wantA) > 1e-12 {
		t.Errorf("duplicate must keep best rank only: expected %.12f, got %.12f", wantA, fused[0].Score)
	}
}

func TestFuseEmptyRankings(t *testing.T) {
	f := NewFuser(60)

	if fused := f.Fuse(nil, nil); len(fused) != 0 {
		t.Fatalf("expected empty fusion, got %d chunks", len(fused))
	}

	only := []store.ContextChunk{chunk(idA, 0.9)}
	fused := f.Fuse(only, nil)
	if len(fused) != 1 || fused[0].ID != uuid.MustParse(idA) {
		t.Fatalf("expected single chunk to survive, got %+v", fused)
	}
}

func TestNewFuserDefaultsK(t *testing.T) {
	if f := NewFuser(0); f.K != DefaultRRFK {
		t.Fatalf("expected default K %d, got %d", DefaultRRFK, f.K)
	}
}
