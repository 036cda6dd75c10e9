package domain

import (
	"path/filepath"
	"regexp"
	"strings"
)

// TopicKey groups candidate chunks that address the same policy subject.
// It is derived, never persisted: each resolution pass recomputes it.
type TopicKey string

// TopicKeyer derives the topic key for a document path. The strategy is
// swappable (content-similarity clustering is a plausible alternative)
// without changing the conflict resolver contract.
type TopicKeyer interface {
	Key(path string) TopicKey
}

var (
	stemSeparators = regexp.MustCompile(`[\s._]+`)
	multiDash      = regexp.MustCompile(`-{2,}`)
)

// stopTokens are filename fragments that distinguish revisions of the same
// policy, not distinct policies. They are stripped so that
// vacation-policy-2023 and vacation-policy-2024-v2 share a key.
var stopTokens = map[string]bool{
	"draft": true, "final": true, "copy": true, "old": true, "new": true,
	"latest": true, "updated": true, "update": true, "rev": true,
	"revision": true, "version": true, "superseded": true, "deprecated": true,
	"archived": true, "archive": true, "template": true, "wip": true,
}

var (
	yearToken    = regexp.MustCompile(`^(19|20)\d{2}$`)
	versionToken = regexp.MustCompile(`^v\d+$|^rev\d+$`)
	numberToken  = regexp.MustCompile(`^\d+$`)
)

// FilenameTopicKeyer derives keys from the filename stem. It assumes the
// filing convention names successive revisions similarly; corpora without
// that convention should plug in a different TopicKeyer.
type FilenameTopicKeyer struct{}

// NewFilenameTopicKeyer creates the default stem-based keyer.
func NewFilenameTopicKeyer() *FilenameTopicKeyer {
	return &FilenameTopicKeyer{}
}

// Key case-folds the stem, normalizes punctuation to dashes, and strips
// version suffixes, years, and revision-status words.
func (k *FilenameTopicKeyer) Key(path string) TopicKey {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = strings.ToLower(stem)
	stem = stemSeparators.ReplaceAllString(stem, "-")
	stem = multiDash.ReplaceAllString(stem, "-")

	var kept []string
	for _, tok := range strings.Split(stem, "-") {
		if tok == "" || stopTokens[tok] ||
			yearToken.MatchString(tok) ||
			versionToken.MatchString(tok) ||
			numberToken.MatchString(tok) {
			continue
		}
		kept = append(kept, tok)
	}

	if len(kept) == 0 {
		// Nothing topical survives stripping; fall back to the raw stem so
		// unrelated files never collapse into one shared group.
		return TopicKey(stem)
	}
	return TopicKey(strings.Join(kept, "-"))
}

// GroupByTopic clusters search results whose documents normalize to the
// same topic key, preserving the input order inside each group. Chunks
// with unrelated keys never merge.
func GroupByTopic(keyer TopicKeyer, results []SearchResult) map[TopicKey][]SearchResult {
	groups := make(map[TopicKey][]SearchResult)
	for _, res := range results {
		key := keyer.Key(res.SourcePath)
		groups[key] = append(groups[key], res)
	}
	return groups
}
