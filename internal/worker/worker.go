package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"policy-rag/internal/domain"
	"policy-rag/internal/usecase"
)

const (
	defaultPollInterval = 100 * time.Millisecond
	defaultJobTimeout   = 60 * time.Second
	// Corpus sweeps touch every file and need far more headroom than a
	// single document.
	defaultCorpusJobTimeout = 15 * time.Minute
	statusWriteTimeout      = 10 * time.Second
	initialBackoff          = 1 * time.Second
	maxBackoff              = 5 * time.Minute
)

// JobWorker drains the ingest job queue. Jobs arrive from the HTTP
// ingest endpoints and the corpus watcher.
type JobWorker struct {
	jobRepo       domain.PolicyJobRepository
	source        domain.CorpusSource
	ingestUsecase usecase.IngestDocumentUsecase
	corpusUsecase usecase.IngestCorpusUsecase
	logger        *slog.Logger
	stopChan      chan struct{}
	backoff       time.Duration

	pollInterval     time.Duration
	jobTimeout       time.Duration
	corpusJobTimeout time.Duration
}

// NewJobWorker creates a queue worker. pollInterval at or below zero uses
// the default.
func NewJobWorker(
	jobRepo domain.PolicyJobRepository,
	source domain.CorpusSource,
	ingestUsecase usecase.IngestDocumentUsecase,
	corpusUsecase usecase.IngestCorpusUsecase,
	pollInterval time.Duration,
	logger *slog.Logger,
) *JobWorker {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &JobWorker{
		jobRepo:          jobRepo,
		source:           source,
		ingestUsecase:    ingestUsecase,
		corpusUsecase:    corpusUsecase,
		logger:           logger,
		stopChan:         make(chan struct{}),
		pollInterval:     pollInterval,
		jobTimeout:       defaultJobTimeout,
		corpusJobTimeout: defaultCorpusJobTimeout,
	}
}

func (w *JobWorker) Start() {
	w.logger.Info("Starting JobWorker")
	go w.run()
}

func (w *JobWorker) Stop() {
	w.logger.Info("Stopping JobWorker")
	close(w.stopChan)
}

func (w *JobWorker) run() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processNextJob()
			if w.backoff > 0 {
				ticker.Reset(w.backoff)
			} else {
				ticker.Reset(w.pollInterval)
			}
		}
	}
}

func (w *JobWorker) processNextJob() {
	acquireCtx, cancelAcquire := context.WithTimeout(context.Background(), statusWriteTimeout)
	job, err := w.jobRepo.AcquireNextJob(acquireCtx)
	cancelAcquire()
	if err != nil {
		w.logger.Error("Failed to acquire next job", "error", err)
		return
	}
	if job == nil {
		return // No jobs
	}

	w.logger.Info("Processing job", "job_id", job.ID, "type", job.JobType)

	processErr := w.process(job)

	status := domain.JobStatusDone
	var errMsg *string
	if processErr != nil {
		status = domain.JobStatusFailed
		msg := processErr.Error()
		errMsg = &msg
		w.backoff = w.nextBackoff(w.backoff)
		w.logger.Warn("Worker backing off", "job_id", job.ID, "backoff", w.backoff, "error", processErr)
	} else {
		w.backoff = 0
		w.logger.Info("Job completed", "job_id", job.ID)
	}

	// The job context may be long expired by now; the bookkeeping write
	// gets its own deadline so a slow job is never left in processing.
	statusCtx, cancelStatus := context.WithTimeout(context.Background(), statusWriteTimeout)
	defer cancelStatus()
	if err := w.jobRepo.UpdateStatus(statusCtx, job.ID, status, errMsg); err != nil {
		w.logger.Error("Failed to update job status", "job_id", job.ID, "error", err)
	}
}

// process runs the job under a deadline matched to its type.
func (w *JobWorker) process(job *domain.PolicyJob) error {
	timeout := w.jobTimeout
	if job.JobType == domain.JobTypeReingestCorpus {
		timeout = w.corpusJobTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	switch job.JobType {
	case domain.JobTypeIngestDocument:
		return w.processIngestDocument(ctx, job)
	case domain.JobTypeDeleteDocument:
		return w.processDeleteDocument(ctx, job)
	case domain.JobTypeReingestCorpus:
		return w.processReingestCorpus(ctx)
	default:
		return fmt.Errorf("unknown job type: %s", job.JobType)
	}
}

func (w *JobWorker) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (w *JobWorker) processIngestDocument(ctx context.Context, job *domain.PolicyJob) error {
	path, err := payloadPath(job)
	if err != nil {
		return err
	}

	doc, err := w.source.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		// File vanished between enqueue and pickup. Treat as deletion
		// so the index does not serve stale content.
		return w.ingestUsecase.Delete(ctx, path)
	}

	_, err = w.ingestUsecase.Upsert(ctx, *doc)
	return err
}

func (w *JobWorker) processDeleteDocument(ctx context.Context, job *domain.PolicyJob) error {
	path, err := payloadPath(job)
	if err != nil {
		return err
	}
	return w.ingestUsecase.Delete(ctx, path)
}

func (w *JobWorker) processReingestCorpus(ctx context.Context) error {
	report, err := w.corpusUsecase.IngestAll(ctx)
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("corpus reingest finished with %d failed documents", report.Failed)
	}
	return nil
}

func payloadPath(job *domain.PolicyJob) (string, error) {
	path, ok := job.Payload["source_path"].(string)
	if !ok || path == "" {
		return "", fmt.Errorf("missing or invalid source_path")
	}
	return path, nil
}
