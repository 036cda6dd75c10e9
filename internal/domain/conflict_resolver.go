package domain

import "sort"

// ResolveConflicts orders one topic group authoritative-first.
//
// Non-noise chunks are preferred whenever at least one exists; within a
// partition the ordering is date confidence descending, then date
// descending, then source path and ordinal ascending so that ties resolve
// identically across runs. When every chunk in the group is noise, the full
// group is returned in the same order: some answer beats no answer, and the
// noise labels stay attached so callers can surface the tradeoff.
//
// The input is never mutated; the result is non-empty whenever the group is.
func ResolveConflicts(group []SearchResult) []SearchResult {
	if len(group) == 0 {
		return nil
	}

	var preferred, noise []SearchResult
	for _, res := range group {
		if res.Noise.Noise {
			noise = append(noise, res)
		} else {
			preferred = append(preferred, res)
		}
	}

	if len(preferred) == 0 {
		preferred = noise
	}

	ordered := make([]SearchResult, len(preferred))
	copy(ordered, preferred)
	sort.SliceStable(ordered, func(i, j int) bool {
		return lessAuthoritative(ordered[j], ordered[i])
	})
	return ordered
}

// lessAuthoritative reports whether a ranks strictly below b. The date
// comparison is ExtractedDate's; path and ordinal only break full ties.
func lessAuthoritative(a, b SearchResult) bool {
	if b.EffectiveDate.MoreAuthoritativeThan(a.EffectiveDate) {
		return true
	}
	if a.EffectiveDate.MoreAuthoritativeThan(b.EffectiveDate) {
		return false
	}
	if a.SourcePath != b.SourcePath {
		return a.SourcePath > b.SourcePath
	}
	return a.Chunk.Ordinal > b.Chunk.Ordinal
}
