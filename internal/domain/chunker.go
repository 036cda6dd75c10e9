package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// ChunkerVersion defines the version of the chunking algorithm, tracked per
// document version so re-chunking upgrades are detectable.
type ChunkerVersion string

const (
	// ChunkerVersionV1 is the paragraph chunker with min/max length handling.
	ChunkerVersionV1 ChunkerVersion = "v1"
	// ChunkerVersionV2 is v1 plus offset tracking into the normalized text.
	ChunkerVersionV2 ChunkerVersion = "v2"
)

const (
	// DefaultMinChunkLength is the minimum chunk length in runes. Shorter
	// chunks are merged with a neighbor.
	DefaultMinChunkLength = 80
	// DefaultMaxChunkLength is the maximum chunk length in runes. Longer
	// chunks are split at sentence boundaries.
	DefaultMaxChunkLength = 1000
)

// Chunk is a contiguous text span of a document. Start and End are byte
// offsets into the newline-normalized document text; they bracket the span
// the content was drawn from and are used for overlap deduplication.
type Chunk struct {
	Ordinal int
	Content string
	Hash    string // SHA-256 of the content
	Start   int
	End     int
}

// Chunker splits document text into chunks.
type Chunker interface {
	Chunk(body string) ([]Chunk, error)
	Version() ChunkerVersion
}

type paragraphChunker struct {
	minLen int
	maxLen int
}

// NewChunker creates the default paragraph chunker.
func NewChunker() Chunker {
	return NewChunkerWithLimits(DefaultMinChunkLength, DefaultMaxChunkLength)
}

// NewChunkerWithLimits creates a paragraph chunker with explicit length
// bounds; non-positive values fall back to the defaults.
func NewChunkerWithLimits(minLen, maxLen int) Chunker {
	if minLen <= 0 {
		minLen = DefaultMinChunkLength
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxChunkLength
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	return &paragraphChunker{minLen: minLen, maxLen: maxLen}
}

func (c *paragraphChunker) Version() ChunkerVersion {
	return ChunkerVersionV2
}

// Chunk splits the body at blank lines, merges short paragraphs with a
// neighbor, and splits over-long paragraphs at sentence boundaries.
// Invariant: after merging, no chunk is shorter than minLen unless it is
// the only content available.
func (c *paragraphChunker) Chunk(body string) ([]Chunk, error) {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	spans := paragraphSpans(normalized)
	spans = mergeShortSpans(spans, c.minLen)
	spans = splitLongSpans(spans, c.maxLen)

	chunks := make([]Chunk, 0, len(spans))
	for i, s := range spans {
		hashBytes := sha256.Sum256([]byte(s.text))
		chunks = append(chunks, Chunk{
			Ordinal: i,
			Content: s.text,
			Hash:    hex.EncodeToString(hashBytes[:]),
			Start:   s.start,
			End:     s.end,
		})
	}
	return chunks, nil
}

// span is a trimmed text segment with byte offsets into the normalized body.
type span struct {
	text  string
	start int
	end   int
}

// paragraphSpans splits at blank lines and records each paragraph's offsets.
func paragraphSpans(text string) []span {
	var spans []span
	start := 0
	for start <= len(text) {
		var end int
		if idx := strings.Index(text[start:], "\n\n"); idx == -1 {
			end = len(text)
		} else {
			end = start + idx
		}
		if s, ok := trimSpan(text, start, end); ok {
			spans = append(spans, s)
		}
		if end == len(text) {
			break
		}
		start = end + 2
	}
	return spans
}

func trimSpan(text string, start, end int) (span, bool) {
	seg := text[start:end]
	left := strings.TrimLeft(seg, " \t\n")
	start += len(seg) - len(left)
	trimmed := strings.TrimRight(left, " \t\n")
	if trimmed == "" {
		return span{}, false
	}
	return span{text: trimmed, start: start, end: start + len(trimmed)}, true
}

// mergeShortSpans merges a paragraph into its predecessor whenever either
// side is shorter than min. Leading short paragraphs absorb the following
// one, trailing short paragraphs fold back into the previous one, and runs
// of short paragraphs accumulate until they clear the threshold.
func mergeShortSpans(spans []span, min int) []span {
	var merged []span
	for _, s := range spans {
		if n := len(merged); n > 0 {
			prev := merged[n-1]
			if runeLen(prev.text) < min || runeLen(s.text) < min {
				merged[n-1] = joinSpans(prev, s)
				continue
			}
		}
		merged = append(merged, s)
	}
	return merged
}

func joinSpans(a, b span) span {
	return span{text: a.text + "\n\n" + b.text, start: a.start, end: b.end}
}

// splitLongSpans splits paragraphs longer than max at sentence boundaries,
// packing sentences greedily. A single sentence longer than max stays whole.
func splitLongSpans(spans []span, max int) []span {
	var out []span
	for _, s := range spans {
		if runeLen(s.text) <= max {
			out = append(out, s)
			continue
		}

		var cur span
		curSet := false
		for _, sent := range sentenceSpans(s) {
			if !curSet {
				cur = sent
				curSet = true
				continue
			}
			if runeLen(cur.text)+1+runeLen(sent.text) > max {
				out = append(out, cur)
				cur = sent
				continue
			}
			cur = span{text: cur.text + " " + sent.text, start: cur.start, end: sent.end}
		}
		if curSet {
			out = append(out, cur)
		}
	}
	return out
}

// sentenceSpans splits a paragraph at sentence-ending punctuation followed
// by whitespace or end of text. Handles the Japanese full stop as well.
func sentenceSpans(s span) []span {
	var out []span
	text := s.text
	segStart := 0
	for i, r := range text {
		switch r {
		case '.', '!', '?', '。':
			next := i + utf8.RuneLen(r)
			if next >= len(text) || text[next] == ' ' || text[next] == '\n' {
				if sent, ok := trimSpan(text, segStart, next); ok {
					sent.start += s.start
					sent.end += s.start
					out = append(out, sent)
				}
				segStart = next
			}
		}
	}
	if sent, ok := trimSpan(text, segStart, len(text)); ok {
		sent.start += s.start
		sent.end += s.start
		out = append(out, sent)
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
