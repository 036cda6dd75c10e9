package domain

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// contentScanWindow bounds the content scan. Dates near the top of a
	// policy are assumed to be issue/revision dates, so scanning the whole
	// body only invites false positives from quoted older material.
	contentScanWindow = 4096

	// yearScanWindow bounds the year-only fallback to the document header.
	yearScanWindow = 200
)

// datePattern pairs a regular expression with a parser for its submatches.
// The pattern set is ordered data: new formats are added to the table, not
// as new branches.
type datePattern struct {
	name  string
	re    *regexp.Regexp
	parse func(m []string) (time.Time, bool)
}

// datePatterns is the shared pattern table for content and filename scans.
// Ambiguous numeric forms like 03/04/2024 parse as month/day/year by fixed
// convention, never inferred.
var datePatterns = []datePattern{
	{
		name: "ymd-numeric",
		re:   regexp.MustCompile(`\b(\d{4})[-_/](\d{1,2})[-_/](\d{1,2})\b`),
		parse: func(m []string) (time.Time, bool) {
			return calendarDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
		},
	},
	{
		name: "mdy-numeric",
		re:   regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`),
		parse: func(m []string) (time.Time, bool) {
			return calendarDate(atoi(m[3]), atoi(m[1]), atoi(m[2]))
		},
	},
	{
		name: "month-day-year",
		re:   regexp.MustCompile(`\b([A-Za-z]{3,9})\.?\s+(\d{1,2}),?\s+(\d{4})\b`),
		parse: func(m []string) (time.Time, bool) {
			month, ok := monthByName(m[1])
			if !ok {
				return time.Time{}, false
			}
			return calendarDate(atoi(m[3]), int(month), atoi(m[2]))
		},
	},
	{
		name: "day-month-year",
		re:   regexp.MustCompile(`\b(\d{1,2})\s+([A-Za-z]{3,9})\.?,?\s+(\d{4})\b`),
		parse: func(m []string) (time.Time, bool) {
			month, ok := monthByName(m[2])
			if !ok {
				return time.Time{}, false
			}
			return calendarDate(atoi(m[3]), int(month), atoi(m[1]))
		},
	},
	{
		name: "month-year",
		re:   regexp.MustCompile(`\b([A-Za-z]{3,9})[\s_-](\d{4})\b`),
		parse: func(m []string) (time.Time, bool) {
			month, ok := monthByName(m[1])
			if !ok {
				return time.Time{}, false
			}
			return calendarDate(atoi(m[2]), int(month), 1)
		},
	},
}

// yearOnlyPattern is a last-resort signal: a plausible bare year.
var yearOnlyPattern = regexp.MustCompile(`\b(20\d{2})\b`)

// DateExtractor infers a normalized effective date for a document. Extract
// is total: the fallback chain always produces a value, ending at the
// unknown sentinel when no signal exists at all.
type DateExtractor struct {
	patterns []datePattern
}

// NewDateExtractor creates an extractor with the default pattern table.
func NewDateExtractor() *DateExtractor {
	return &DateExtractor{patterns: datePatterns}
}

// Extract applies the ordered fallback chain:
// content scan, filename scan, filesystem mtime, unknown sentinel.
func (e *DateExtractor) Extract(doc SourceDocument) ExtractedDate {
	head := truncateToRuneBoundary(doc.Content, contentScanWindow)

	if d, ok := e.scan(head); ok {
		return ExtractedDate{Date: d, Source: DateSourceContent}
	}
	// Year-only header fallback still counts as authored content.
	if d, ok := scanYear(truncateToRuneBoundary(head, yearScanWindow)); ok {
		return ExtractedDate{Date: d, Source: DateSourceContent}
	}

	if d, ok := e.scan(doc.Stem()); ok {
		return ExtractedDate{Date: d, Source: DateSourceFilename}
	}
	if d, ok := scanYear(doc.Stem()); ok {
		return ExtractedDate{Date: d, Source: DateSourceFilename}
	}

	if !doc.ModifiedAt.IsZero() {
		m := doc.ModifiedAt.UTC()
		return ExtractedDate{
			Date:   time.Date(m.Year(), m.Month(), m.Day(), 0, 0, 0, 0, time.UTC),
			Source: DateSourceFileMtime,
		}
	}

	return UnknownDate()
}

// scan finds the earliest syntactically valid date across all patterns.
// Invalid matches (month 13, February 30) are skipped and the next match
// of the same pattern is tried. Ties on position resolve in table order.
func (e *DateExtractor) scan(text string) (time.Time, bool) {
	bestPos := -1
	bestOrder := 0
	var bestDate time.Time

	for order, p := range e.patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			d, ok := p.parse(submatchStrings(text, loc))
			if !ok {
				continue
			}
			if bestPos == -1 || loc[0] < bestPos || (loc[0] == bestPos && order < bestOrder) {
				bestPos = loc[0]
				bestOrder = order
				bestDate = d
			}
			// Later matches of this pattern cannot be earlier.
			break
		}
	}

	if bestPos == -1 {
		return time.Time{}, false
	}
	return bestDate, true
}

func scanYear(text string) (time.Time, bool) {
	m := yearOnlyPattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	return calendarDate(atoi(m[1]), 1, 1)
}

// calendarDate validates components and builds a UTC midnight date.
// Impossible dates (month 13, February 30) are rejected via round-trip.
func calendarDate(year, month, day int) (time.Time, bool) {
	if year < 1900 || year > 2199 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

// monthByName resolves full month names and prefixes of three or more
// letters ("Jan", "Sept"). Returns false for anything else.
func monthByName(name string) (time.Month, bool) {
	lower := strings.ToLower(name)
	if len(lower) < 3 {
		return 0, false
	}
	for i, full := range monthNames {
		if strings.HasPrefix(full, lower) {
			return time.Month(i + 1), true
		}
	}
	return 0, false
}

func submatchStrings(text string, loc []int) []string {
	out := make([]string, 0, len(loc)/2)
	for i := 0; i < len(loc); i += 2 {
		if loc[i] < 0 {
			out = append(out, "")
			continue
		}
		out = append(out, text[loc[i]:loc[i+1]])
	}
	return out
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// truncateToRuneBoundary cuts s to at most n bytes without splitting a rune.
func truncateToRuneBoundary(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
