package retrieval

import (
	"log/slog"

	"policy-rag/internal/domain"
)

// Group buckets the search candidates by policy topic (Stage 3). Chunks
// from differently named revisions of the same policy land in one bucket so
// the resolution stage can compare them.
func Group(sc *StageContext, keyer domain.TopicKeyer, logger *slog.Logger) {
	sc.Groups = domain.GroupByTopic(keyer, sc.Candidates)

	logger.Info("topic_grouping_completed",
		slog.String("retrieval_id", sc.RetrievalID),
		slog.Int("candidates", len(sc.Candidates)),
		slog.Int("topics", len(sc.Groups)))
}
