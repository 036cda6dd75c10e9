package retrieval

import (
	"log/slog"
	"sort"

	"policy-rag/internal/domain"

	"github.com/google/uuid"
)

// Resolve settles conflicts within each topic group (Stage 4). The chunks of
// the most authoritative document in a group win; chunks from every other
// document in the group, and noise documents shadowed by a clean one, are
// set aside as superseded so callers can still surface them on request.
func Resolve(sc *StageContext, logger *slog.Logger) {
	keys := make([]domain.TopicKey, 0, len(sc.Groups))
	for key := range sc.Groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var winners, superseded []domain.SearchResult
	conflicts := 0

	for _, key := range keys {
		group := sc.Groups[key]
		ordered := domain.ResolveConflicts(group)
		if len(ordered) == 0 {
			continue
		}

		winnerPath := ordered[0].SourcePath
		won := make(map[uuid.UUID]bool, len(ordered))
		for _, res := range ordered {
			if res.SourcePath == winnerPath {
				winners = append(winners, res)
				won[res.Chunk.ID] = true
			}
		}
		for _, res := range group {
			if !won[res.Chunk.ID] {
				superseded = append(superseded, res)
			}
		}
		if len(won) < len(group) {
			conflicts++
		}
	}

	sc.Winners = winners
	sc.Superseded = superseded

	logger.Info("conflict_resolution_completed",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("topics", len(sc.Groups)),
		slog.Int("conflicted_topics", conflicts),
		slog.Int("winners", len(winners)),
		slog.Int("superseded", len(superseded)))
}
