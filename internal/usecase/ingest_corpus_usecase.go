package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"policy-rag/internal/domain"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// IngestFailure records one document that could not be indexed.
type IngestFailure struct {
	Path  string
	Error string
}

// IngestReport summarizes a corpus ingestion run.
type IngestReport struct {
	Total     int
	Indexed   int
	Unchanged int
	Failed    int
	Failures  []IngestFailure
}

// IngestCorpusUsecase walks the corpus source and indexes every document.
// A failing document is recorded and skipped; one unreadable file must not
// sink the run.
type IngestCorpusUsecase interface {
	IngestAll(ctx context.Context) (*IngestReport, error)
}

type ingestCorpusUsecase struct {
	source      domain.CorpusSource
	ingest      IngestDocumentUsecase
	limiter     *rate.Limiter
	concurrency int
	logger      *slog.Logger
}

// NewIngestCorpusUsecase creates a corpus-wide ingester. The limiter caps
// the rate of documents entering the embedding provider; concurrency caps
// how many documents are processed at once.
func NewIngestCorpusUsecase(
	source domain.CorpusSource,
	ingest IngestDocumentUsecase,
	limiter *rate.Limiter,
	concurrency int,
	logger *slog.Logger,
) IngestCorpusUsecase {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &ingestCorpusUsecase{
		source:      source,
		ingest:      ingest,
		limiter:     limiter,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (u *ingestCorpusUsecase) IngestAll(ctx context.Context) (*IngestReport, error) {
	docs, err := u.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list corpus: %w", err)
	}

	report := &IngestReport{Total: len(docs)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			if u.limiter != nil {
				if err := u.limiter.Wait(gctx); err != nil {
					return err
				}
			}

			outcome, err := u.ingest.Upsert(gctx, doc)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				report.Failed++
				report.Failures = append(report.Failures, IngestFailure{
					Path:  doc.Path,
					Error: err.Error(),
				})
				u.logger.Warn("document_ingest_failed",
					slog.String("source_path", doc.Path),
					slog.String("error", err.Error()))
			case outcome == OutcomeIndexed:
				report.Indexed++
			default:
				report.Unchanged++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("corpus ingestion interrupted: %w", err)
	}

	u.logger.Info("corpus_ingestion_completed",
		slog.Int("total", report.Total),
		slog.Int("indexed", report.Indexed),
		slog.Int("unchanged", report.Unchanged),
		slog.Int("failed", report.Failed))
	return report, nil
}
