package domain

import (
	"context"
	"path/filepath"
	"strings"
	"time"
)

// SourceDocument is a raw policy document as handed over by a corpus source:
// identity is the source path, plus the full text and the filesystem
// modification time. It is immutable once loaded; re-ingestion replaces the
// stored document wholesale.
type SourceDocument struct {
	Path       string
	Content    string
	ModifiedAt time.Time
}

// FileName returns the base name of the source path.
func (d SourceDocument) FileName() string {
	return filepath.Base(d.Path)
}

// Stem returns the file name without its extension.
func (d SourceDocument) Stem() string {
	name := d.FileName()
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// CorpusSource lists and loads the documents of a knowledge base.
// Implementations own storage access; the core treats the result as
// read-only input at ingestion time.
type CorpusSource interface {
	// List returns every document in the corpus.
	List(ctx context.Context) ([]SourceDocument, error)

	// Load reads a single document by path. Returns nil, nil if the file
	// no longer exists.
	Load(ctx context.Context, path string) (*SourceDocument, error)
}
