package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"policy-rag/internal/domain"
)

// watchedExtensions are the file types treated as corpus documents. Other
// files are listed anyway so the noise classifier can label them
// unsupported instead of silently dropping them.
var watchedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".pdf":      true,
	".docx":     true,
}

// FSSource reads policy documents from a directory tree. Paths are
// reported relative to the root with forward slashes, so the same corpus
// indexes identically on every host.
type FSSource struct {
	root   string
	logger *slog.Logger
}

// NewFSSource creates a corpus source rooted at dir.
func NewFSSource(dir string, logger *slog.Logger) (*FSSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat corpus dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path is not a directory: %s", dir)
	}
	return &FSSource{root: dir, logger: logger}, nil
}

// Root returns the corpus root directory.
func (s *FSSource) Root() string {
	return s.root
}

// List walks the corpus tree and loads every candidate document, sorted by
// path for deterministic ingestion order.
func (s *FSSource) List(ctx context.Context) ([]domain.SourceDocument, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !watchedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus dir: %w", err)
	}
	sort.Strings(paths)

	docs := make([]domain.SourceDocument, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := s.load(path)
		if err != nil {
			// One unreadable file must not take down the whole sweep.
			s.logger.Warn("corpus_document_unreadable", "path", path, "error", err)
			continue
		}
		if doc != nil {
			docs = append(docs, *doc)
		}
	}
	return docs, nil
}

// Load reads a single document by its corpus-relative path. Returns
// nil, nil if the file no longer exists.
func (s *FSSource) Load(ctx context.Context, relPath string) (*domain.SourceDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.load(filepath.Join(s.root, filepath.FromSlash(relPath)))
}

// RelPath converts an absolute path under the root into the corpus-relative
// form used as document identity.
func (s *FSSource) RelPath(absPath string) (string, error) {
	rel, err := filepath.Rel(s.root, absPath)
	if err != nil {
		return "", fmt.Errorf("path outside corpus root: %w", err)
	}
	return filepath.ToSlash(rel), nil
}

func (s *FSSource) load(absPath string) (*domain.SourceDocument, error) {
	info, err := os.Stat(absPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", absPath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", absPath, err)
	}

	rel, err := s.RelPath(absPath)
	if err != nil {
		return nil, err
	}

	return &domain.SourceDocument{
		Path:       rel,
		Content:    string(content),
		ModifiedAt: info.ModTime(),
	}, nil
}

var _ domain.CorpusSource = (*FSSource)(nil)
