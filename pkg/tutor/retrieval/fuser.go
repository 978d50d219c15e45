package retrieval

import (
	"sort"
	"strings"

	"ai-tutoring-be/pkg/store"

	"github.com/google/uuid"
)

// DefaultRRFK is the standard reciprocal-rank-fusion constant. Larger
// values flatten the difference between top and tail ranks.
const DefaultRRFK = 60

// Fuser merges ranked result lists with reciprocal rank fusion. Scores
// from the individual rankings are incomparable (cosine similarity vs.
// ts_rank), so fusion works on rank positions only.
type Fuser struct {
	K int
}

func NewFuser(k int) Fuser {
	if k <= 0 {
		k = DefaultRRFK
	}
	return Fuser{K: k}
}

type fusedEntry struct {
	chunk store.ContextChunk
	score float64
}

// Fuse combines the given rankings into a single list ordered by fused
// score, descending. Each chunk id appears at most once; a chunk present
// in several rankings accumulates one reciprocal-rank contribution per
// ranking. Ties are broken by ascending chunk id so results are stable
// across runs.
func (f Fuser) Fuse(rankings ...[]store.ContextChunk) []store.ContextChunk {
	entries := make(map[uuid.UUID]*fusedEntry)

	for _, ranking := range rankings {
		seen := make(map[uuid.UUID]bool, len(ranking))
		for rank, chunk := range ranking {
			// A malformed ranking can repeat an id; only the best
			// (earliest) position counts.
			if seen[chunk.ID] {
				continue
			}
			seen[chunk.ID] = true

			contribution := 1.0 / float64(f.K+rank+1)
			if entry, ok := entries[chunk.ID]; ok {
				entry.score += contribution
			} else {
				entries[chunk.ID] = &fusedEntry{chunk: chunk, score: contribution}
			}
		}
	}

	fused := make([]store.ContextChunk, 0, len(entries))
	for _, entry := range entries {
		chunk := entry.chunk
		chunk.Score = entry.score
		fused = append(fused, chunk)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		return strings.Compare(fused[i].ID.String(), fused[j].ID.String()) < 0
	})

	return fused
}
