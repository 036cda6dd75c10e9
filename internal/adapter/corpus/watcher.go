package corpus

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"policy-rag/internal/domain"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// Watcher turns filesystem changes under the corpus root into ingest jobs.
// Writes and creates enqueue an ingest job for the file; removes and
// renames enqueue a delete. The worker drains the queue, so a burst of
// editor saves costs at most a few redundant no-op ingests.
type Watcher struct {
	source  *FSSource
	jobRepo domain.PolicyJobRepository
	logger  *slog.Logger
}

// NewWatcher creates a corpus watcher that feeds the job queue.
func NewWatcher(source *FSSource, jobRepo domain.PolicyJobRepository, logger *slog.Logger) *Watcher {
	return &Watcher{
		source:  source,
		jobRepo: jobRepo,
		logger:  logger,
	}
}

// Run watches the corpus tree until the context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	// fsnotify is not recursive; every subdirectory is added explicitly,
	// including ones created while watching.
	if err := addRecursive(watcher, w.source.Root()); err != nil {
		return err
	}

	w.logger.Info("corpus_watcher_started", slog.String("root", w.source.Root()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, watcher, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("corpus_watcher_error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addRecursive(watcher, event.Name); err != nil {
				w.logger.Warn("corpus_watch_add_failed",
					slog.String("path", event.Name),
					slog.String("error", err.Error()))
			}
			return
		}
	}

	if !watchedExtensions[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}

	rel, err := w.source.RelPath(event.Name)
	if err != nil {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Write):
		w.enqueue(ctx, domain.JobTypeIngestDocument, rel)
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		w.enqueue(ctx, domain.JobTypeDeleteDocument, rel)
	}
}

func (w *Watcher) enqueue(ctx context.Context, jobType, relPath string) {
	now := time.Now()
	job := &domain.PolicyJob{
		ID:        uuid.New(),
		JobType:   jobType,
		Payload:   map[string]interface{}{"source_path": relPath},
		Status:    domain.JobStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.jobRepo.Enqueue(ctx, job); err != nil {
		w.logger.Error("corpus_job_enqueue_failed",
			slog.String("job_type", jobType),
			slog.String("source_path", relPath),
			slog.String("error", err.Error()))
		return
	}
	w.logger.Info("corpus_job_enqueued",
		slog.String("job_type", jobType),
		slog.String("source_path", relPath))
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}
