package retrieval

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"policy-rag/internal/domain"

	"github.com/google/uuid"
)

// Rank orders the resolution winners by query similarity and selects the
// final context (Stage 5). Conflict resolution decides which document
// answers; similarity decides which of its chunks matter most. Overlapping
// chunks of the same version are deduplicated keeping the higher score, and
// the result is cut to TopK. With IncludeSuperseded set, superseded chunks
// are appended after the winners, marked as such.
func Rank(sc *StageContext, logger *slog.Logger) []ContextItem {
	contexts := selectByScore(sc.Winners, sc.TopK, false)

	if sc.IncludeSuperseded {
		contexts = append(contexts, selectByScore(sc.Superseded, sc.TopK, true)...)
	}

	logger.Info("similarity_ranking_completed",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("winners", len(sc.Winners)),
		slog.Int("selected", len(contexts)),
		slog.Int("top_k", sc.TopK))

	return contexts
}

// selectByScore sorts score-descending, drops duplicate and overlapping
// chunks, and truncates to quota.
func selectByScore(results []domain.SearchResult, quota int, superseded bool) []ContextItem {
	ordered := make([]domain.SearchResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	seen := make(map[uuid.UUID]bool, len(ordered))
	kept := make(map[uuid.UUID][]domain.PolicyChunk)

	contexts := make([]ContextItem, 0, quota)
	for _, res := range ordered {
		if len(contexts) >= quota {
			break
		}
		if seen[res.Chunk.ID] {
			continue
		}
		seen[res.Chunk.ID] = true

		if overlapsKept(kept[res.Chunk.VersionID], res.Chunk) {
			continue
		}
		kept[res.Chunk.VersionID] = append(kept[res.Chunk.VersionID], res.Chunk)

		contexts = append(contexts, newContextItem(res, superseded))
	}
	return contexts
}

// overlapsKept reports whether the chunk's span intersects one already kept
// for the same version. A higher-scoring chunk is always kept first, so the
// overlapping late arrival is the one to drop.
func overlapsKept(kept []domain.PolicyChunk, chunk domain.PolicyChunk) bool {
	if chunk.StartOffset == 0 && chunk.EndOffset == 0 {
		return false // offsets unavailable for versions chunked before v2
	}
	for _, k := range kept {
		if chunk.StartOffset < k.EndOffset && k.StartOffset < chunk.EndOffset {
			return true
		}
	}
	return false
}

func newContextItem(res domain.SearchResult, superseded bool) ContextItem {
	return ContextItem{
		ChunkID:       res.Chunk.ID,
		ChunkText:     res.Chunk.Content,
		SourceFile:    res.SourcePath,
		EffectiveDate: res.EffectiveDate.String(),
		DateSource:    string(res.EffectiveDate.Source),
		Score:         res.Score,
		Noise:         res.Noise.Noise,
		NoiseReason:   string(res.Noise.Reason),
		Superseded:    superseded,
		Citation:      citation(res),
	}
}

// citation renders the label cited next to a context chunk, for example
// "leave-policy-2024.txt (effective 2024-06-15)".
func citation(res domain.SearchResult) string {
	name := filepath.Base(res.SourcePath)
	if !res.EffectiveDate.Known() {
		return fmt.Sprintf("%s (effective date unknown)", name)
	}
	return fmt.Sprintf("%s (effective %s)", name, res.EffectiveDate.String())
}
