package retrieval

import (
	"testing"
	"time"

	"policy-rag/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spanResult(versionID uuid.UUID, start, end int, score float32) domain.SearchResult {
	return domain.SearchResult{
		Chunk: domain.PolicyChunk{
			ID:          uuid.New(),
			VersionID:   versionID,
			StartOffset: start,
			EndOffset:   end,
			Content:     "chunk",
		},
		Score:         score,
		SourcePath:    "policies/handbook.txt",
		EffectiveDate: contentDate(2024, time.June, 15),
	}
}

func TestRank_OrdersByScoreAndTruncates(t *testing.T) {
	version := uuid.New()
	low := spanResult(version, 0, 100, 0.3)
	high := spanResult(version, 200, 300, 0.9)
	mid := spanResult(version, 400, 500, 0.6)

	sc := &StageContext{
		Winners: []domain.SearchResult{low, high, mid},
		TopK:    2,
	}
	contexts := Rank(sc, discardLogger())

	require.Len(t, contexts, 2)
	assert.Equal(t, high.Chunk.ID, contexts[0].ChunkID)
	assert.Equal(t, mid.Chunk.ID, contexts[1].ChunkID)
}

func TestRank_DropsOverlappingChunkOfSameVersion(t *testing.T) {
	version := uuid.New()
	wide := spanResult(version, 0, 500, 0.9)
	inside := spanResult(version, 100, 200, 0.8)
	disjoint := spanResult(version, 500, 700, 0.7)

	sc := &StageContext{
		Winners: []domain.SearchResult{inside, wide, disjoint},
		TopK:    4,
	}
	contexts := Rank(sc, discardLogger())

	require.Len(t, contexts, 2)
	assert.Equal(t, wide.Chunk.ID, contexts[0].ChunkID)
	assert.Equal(t, disjoint.Chunk.ID, contexts[1].ChunkID)
}

func TestRank_OverlapAcrossVersionsIsKept(t *testing.T) {
	a := spanResult(uuid.New(), 0, 500, 0.9)
	b := spanResult(uuid.New(), 0, 500, 0.8)

	sc := &StageContext{
		Winners: []domain.SearchResult{a, b},
		TopK:    4,
	}
	contexts := Rank(sc, discardLogger())

	assert.Len(t, contexts, 2, "offset spans only collide within one version")
}

func TestRank_CitationCarriesFileAndEffectiveDate(t *testing.T) {
	res := spanResult(uuid.New(), 0, 100, 0.9)

	sc := &StageContext{Winners: []domain.SearchResult{res}, TopK: 4}
	contexts := Rank(sc, discardLogger())

	require.Len(t, contexts, 1)
	assert.Equal(t, "handbook.txt (effective 2024-06-15)", contexts[0].Citation)
	assert.Equal(t, "2024-06-15", contexts[0].EffectiveDate)
	assert.Equal(t, string(domain.DateSourceContent), contexts[0].DateSource)
}

func TestRank_UnknownDateCitation(t *testing.T) {
	res := spanResult(uuid.New(), 0, 100, 0.9)
	res.EffectiveDate = domain.UnknownDate()

	sc := &StageContext{Winners: []domain.SearchResult{res}, TopK: 4}
	contexts := Rank(sc, discardLogger())

	require.Len(t, contexts, 1)
	assert.Equal(t, "handbook.txt (effective date unknown)", contexts[0].Citation)
	assert.Empty(t, contexts[0].EffectiveDate)
}

func TestRank_SupersededAppendedWhenRequested(t *testing.T) {
	winner := spanResult(uuid.New(), 0, 100, 0.9)
	shadowed := spanResult(uuid.New(), 0, 100, 0.95)

	sc := &StageContext{
		Winners:           []domain.SearchResult{winner},
		Superseded:        []domain.SearchResult{shadowed},
		TopK:              4,
		IncludeSuperseded: true,
	}
	contexts := Rank(sc, discardLogger())

	require.Len(t, contexts, 2)
	assert.Equal(t, winner.Chunk.ID, contexts[0].ChunkID)
	assert.False(t, contexts[0].Superseded)
	assert.Equal(t, shadowed.Chunk.ID, contexts[1].ChunkID)
	assert.True(t, contexts[1].Superseded)
}

func TestRank_SupersededExcludedByDefault(t *testing.T) {
	sc := &StageContext{
		Winners:    []domain.SearchResult{spanResult(uuid.New(), 0, 100, 0.9)},
		Superseded: []domain.SearchResult{spanResult(uuid.New(), 0, 100, 0.95)},
		TopK:       4,
	}
	contexts := Rank(sc, discardLogger())

	assert.Len(t, contexts, 1)
}

func TestGroup_RevisionsShareBucket(t *testing.T) {
	r2022 := spanResult(uuid.New(), 0, 100, 0.9)
	r2022.SourcePath = "policies/leave-policy-2022.txt"
	r2024 := spanResult(uuid.New(), 0, 100, 0.8)
	r2024.SourcePath = "policies/leave-policy-2024.txt"
	other := spanResult(uuid.New(), 0, 100, 0.7)
	other.SourcePath = "policies/expense-policy.txt"

	sc := &StageContext{Candidates: []domain.SearchResult{r2022, r2024, other}}
	Group(sc, domain.NewFilenameTopicKeyer(), discardLogger())

	require.Len(t, sc.Groups, 2)
	assert.Len(t, sc.Groups["leave-policy"], 2)
	assert.Len(t, sc.Groups["expense-policy"], 1)
}
