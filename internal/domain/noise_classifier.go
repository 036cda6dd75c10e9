package domain

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// NoiseReason is the machine-readable code explaining why a document was
// excluded from authoritative consideration.
type NoiseReason string

const (
	NoiseReasonDraft       NoiseReason = "draft"
	NoiseReasonTemplate    NoiseReason = "template"
	NoiseReasonSuperseded  NoiseReason = "superseded"
	NoiseReasonDeprecated  NoiseReason = "deprecated"
	NoiseReasonArchived    NoiseReason = "archived"
	NoiseReasonBadFileType NoiseReason = "unsupported-type"
	NoiseReasonUnreadable  NoiseReason = "unreadable"
)

// NoiseLabel marks a document (and, by inheritance, all of its chunks) as
// noise or as an authoritative candidate. Absence of any matching rule
// means not-noise.
type NoiseLabel struct {
	Noise  bool
	Reason NoiseReason
}

// noiseRule matches either the file name or the head of the content.
// Rules are ordered data: first match wins, new rules extend the table.
// They are deliberately conservative (word-boundary keyword matches):
// discarding a legitimate current policy costs more than letting a stray
// draft through, because the conflict resolver is the second line of
// defense.
type noiseRule struct {
	reason     NoiseReason
	filenameRe *regexp.Regexp
	contentRe  *regexp.Regexp
}

var noiseRules = []noiseRule{
	{
		reason:     NoiseReasonSuperseded,
		filenameRe: regexp.MustCompile(`(?i)\bsuperseded\b`),
		contentRe:  regexp.MustCompile(`(?i)\bsuperseded\b`),
	},
	{
		reason:     NoiseReasonDeprecated,
		filenameRe: regexp.MustCompile(`(?i)\bdeprecated\b|\bobsolete\b`),
		contentRe:  regexp.MustCompile(`(?i)\bdeprecated\b|\bobsolete\b`),
	},
	{
		reason:     NoiseReasonDraft,
		filenameRe: regexp.MustCompile(`(?i)\bdraft\b|\bwip\b`),
		contentRe:  regexp.MustCompile(`(?i)\bdraft\b|\bdo not use\b|\bnot yet approved\b`),
	},
	{
		reason:     NoiseReasonTemplate,
		filenameRe: regexp.MustCompile(`(?i)\btemplate\b|\bboilerplate\b`),
		contentRe:  regexp.MustCompile(`(?i)\btemplate\b|\bfill in\b`),
	},
	{
		reason:     NoiseReasonArchived,
		filenameRe: regexp.MustCompile(`(?i)\barchived?\b|\bbackup\b|\bcopy of\b|\bold\b`),
	},
}

// contentScanHead bounds how much of the document body the content rules
// see. Status markers live in headers, not body text.
const contentScanHead = 512

// supportedExtensions is the expected policy corpus surface. Anything else
// (binaries, spreadsheets dropped in the folder) is classified as noise
// rather than parsed.
var supportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// NoiseClassifier labels documents as authoritative candidates or noise.
// Classification is a pure function of document-level signals, so all
// chunks of one document share the label.
type NoiseClassifier struct {
	rules []noiseRule
}

// NewNoiseClassifier creates a classifier with the default rule table.
func NewNoiseClassifier() *NoiseClassifier {
	return &NoiseClassifier{rules: noiseRules}
}

// Classify evaluates the ordered rule set against the file name and the
// first portion of the content. Malformed content is treated as a noise
// signal, never as a fatal error.
func (c *NoiseClassifier) Classify(doc SourceDocument) NoiseLabel {
	ext := strings.ToLower(filepath.Ext(doc.Path))
	if !supportedExtensions[ext] {
		return NoiseLabel{Noise: true, Reason: NoiseReasonBadFileType}
	}

	if strings.TrimSpace(doc.Content) == "" || !utf8.ValidString(doc.Content) {
		return NoiseLabel{Noise: true, Reason: NoiseReasonUnreadable}
	}

	name := doc.FileName()
	head := truncateToRuneBoundary(doc.Content, contentScanHead)

	for _, rule := range c.rules {
		if rule.filenameRe != nil && rule.filenameRe.MatchString(name) {
			return NoiseLabel{Noise: true, Reason: rule.reason}
		}
		if rule.contentRe != nil && rule.contentRe.MatchString(head) {
			return NoiseLabel{Noise: true, Reason: rule.reason}
		}
	}

	return NoiseLabel{}
}
