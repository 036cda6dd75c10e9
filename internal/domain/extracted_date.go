package domain

import "time"

// DateSource identifies which extraction strategy produced a date.
type DateSource string

const (
	DateSourceContent   DateSource = "content"
	DateSourceFilename  DateSource = "filename"
	DateSourceFileMtime DateSource = "file-mtime"
	DateSourceUnknown   DateSource = "unknown"
)

// Confidence returns the total-order rank of the source. An explicitly
// authored date in the content outranks a filename date, which outranks an
// incidental filesystem timestamp. Authors copy old files forward, which
// bumps mtime but not the authored date, so the ordering matters.
func (s DateSource) Confidence() int {
	switch s {
	case DateSourceContent:
		return 3
	case DateSourceFilename:
		return 2
	case DateSourceFileMtime:
		return 1
	default:
		return 0
	}
}

// ExtractedDate is the normalized effective date of a document together with
// the strategy that produced it. Every chunk carries exactly one
// ExtractedDate, assigned once at ingestion.
type ExtractedDate struct {
	// Date is a calendar date at UTC midnight. The zero time is the
	// unknown sentinel and sorts before every real date.
	Date   time.Time
	Source DateSource
}

// UnknownDate is the sentinel returned when no timestamp signal exists.
func UnknownDate() ExtractedDate {
	return ExtractedDate{Source: DateSourceUnknown}
}

// Known reports whether the date came from a real signal.
func (d ExtractedDate) Known() bool {
	return d.Source != DateSourceUnknown && !d.Date.IsZero()
}

// MoreAuthoritativeThan reports whether d wins over other during conflict
// resolution: higher confidence first, later date among equal confidence.
func (d ExtractedDate) MoreAuthoritativeThan(other ExtractedDate) bool {
	if d.Source.Confidence() != other.Source.Confidence() {
		return d.Source.Confidence() > other.Source.Confidence()
	}
	return d.Date.After(other.Date)
}

// String renders the date for citation labels, empty when unknown.
func (d ExtractedDate) String() string {
	if !d.Known() {
		return ""
	}
	return d.Date.Format("2006-01-02")
}
