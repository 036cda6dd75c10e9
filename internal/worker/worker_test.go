package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"policy-rag/internal/domain"
	"policy-rag/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stubs ---

type stubJobRepo struct {
	mu       sync.Mutex
	jobs     []*domain.PolicyJob // consumed FIFO by AcquireNextJob
	err      error
	statuses []string
}

func (s *stubJobRepo) Enqueue(ctx context.Context, job *domain.PolicyJob) error { return nil }

func (s *stubJobRepo) AcquireNextJob(ctx context.Context) (*domain.PolicyJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if len(s.jobs) == 0 {
		return nil, nil
	}
	job := s.jobs[0]
	s.jobs = s.jobs[1:]
	return job, nil
}

func (s *stubJobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	// Like a real driver, refuse to write on a dead context.
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	return nil
}

type stubSource struct {
	docs map[string]*domain.SourceDocument
}

func (s *stubSource) List(ctx context.Context) ([]domain.SourceDocument, error) { return nil, nil }

func (s *stubSource) Load(ctx context.Context, path string) (*domain.SourceDocument, error) {
	return s.docs[path], nil
}

type stubIngestUsecase struct {
	mu           sync.Mutex
	capturedCtx  context.Context
	upsertedPath string
	deletedPath  string
	returnErr    error
}

func (s *stubIngestUsecase) Upsert(ctx context.Context, doc domain.SourceDocument) (usecase.IngestOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capturedCtx = ctx
	s.upsertedPath = doc.Path
	return usecase.OutcomeIndexed, s.returnErr
}

func (s *stubIngestUsecase) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletedPath = path
	return s.returnErr
}

type stubCorpusUsecase struct {
	report      *usecase.IngestReport
	err         error
	delay       time.Duration
	calls       int
	capturedCtx context.Context
}

func (s *stubCorpusUsecase) IngestAll(ctx context.Context) (*usecase.IngestReport, error) {
	s.calls++
	s.capturedCtx = ctx
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.report, s.err
}

func makeJob(jobType, path string) *domain.PolicyJob {
	return &domain.PolicyJob{
		ID:      uuid.New(),
		JobType: jobType,
		Payload: map[string]interface{}{
			"source_path": path,
		},
		Status: domain.JobStatusProcessing,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newWorker(repo *stubJobRepo, src *stubSource, ing *stubIngestUsecase, corpus *stubCorpusUsecase) *JobWorker {
	if src == nil {
		src = &stubSource{}
	}
	if ing == nil {
		ing = &stubIngestUsecase{}
	}
	if corpus == nil {
		corpus = &stubCorpusUsecase{report: &usecase.IngestReport{}}
	}
	return NewJobWorker(repo, src, ing, corpus, 0, testLogger())
}

// --- tests ---

func TestNewJobWorker_PollInterval(t *testing.T) {
	w := NewJobWorker(&stubJobRepo{}, &stubSource{}, &stubIngestUsecase{}, &stubCorpusUsecase{}, 2*time.Second, testLogger())
	assert.Equal(t, 2*time.Second, w.pollInterval)

	w = NewJobWorker(&stubJobRepo{}, &stubSource{}, &stubIngestUsecase{}, &stubCorpusUsecase{}, 0, testLogger())
	assert.Equal(t, defaultPollInterval, w.pollInterval)
}

func TestProcessNextJob_IngestsDocument(t *testing.T) {
	doc := &domain.SourceDocument{Path: "hr/leave-policy-2024.txt", Content: "Leave policy."}
	src := &stubSource{docs: map[string]*domain.SourceDocument{doc.Path: doc}}
	ing := &stubIngestUsecase{}
	repo := &stubJobRepo{jobs: []*domain.PolicyJob{makeJob(domain.JobTypeIngestDocument, doc.Path)}}

	w := newWorker(repo, src, ing, nil)
	w.processNextJob()

	ing.mu.Lock()
	defer ing.mu.Unlock()

	assert.Equal(t, doc.Path, ing.upsertedPath)
	assert.Equal(t, []string{domain.JobStatusDone}, repo.statuses)

	deadline, ok := ing.capturedCtx.Deadline()
	assert.True(t, ok, "context passed to Upsert must have a deadline")
	assert.WithinDuration(t, time.Now().Add(defaultJobTimeout), deadline, 5*time.Second)
}

func TestProcessNextJob_CorpusSweepGetsLongerDeadline(t *testing.T) {
	corpus := &stubCorpusUsecase{report: &usecase.IngestReport{Total: 5, Indexed: 5}}
	job := &domain.PolicyJob{ID: uuid.New(), JobType: domain.JobTypeReingestCorpus, Payload: map[string]interface{}{}}
	repo := &stubJobRepo{jobs: []*domain.PolicyJob{job}}

	w := newWorker(repo, nil, nil, corpus)
	w.processNextJob()

	require.NotNil(t, corpus.capturedCtx)
	deadline, ok := corpus.capturedCtx.Deadline()
	assert.True(t, ok, "corpus sweep context must have a deadline")
	assert.WithinDuration(t, time.Now().Add(defaultCorpusJobTimeout), deadline, 5*time.Second)
}

func TestProcessNextJob_SlowJobStillRecordsStatus(t *testing.T) {
	// A sweep that outlives the single-document timeout must still get its
	// completion written: the bookkeeping write has its own deadline.
	corpus := &stubCorpusUsecase{
		report: &usecase.IngestReport{Total: 1, Indexed: 1},
		delay:  50 * time.Millisecond,
	}
	job := &domain.PolicyJob{ID: uuid.New(), JobType: domain.JobTypeReingestCorpus, Payload: map[string]interface{}{}}
	repo := &stubJobRepo{jobs: []*domain.PolicyJob{job}}

	w := newWorker(repo, nil, nil, corpus)
	w.jobTimeout = 10 * time.Millisecond
	w.corpusJobTimeout = 5 * time.Second
	w.processNextJob()

	assert.Equal(t, []string{domain.JobStatusDone}, repo.statuses,
		"status write must not ride the expired job context")
}

func TestProcessNextJob_MissingFileFallsBackToDelete(t *testing.T) {
	src := &stubSource{} // nothing on disk
	ing := &stubIngestUsecase{}
	repo := &stubJobRepo{jobs: []*domain.PolicyJob{makeJob(domain.JobTypeIngestDocument, "gone.txt")}}

	w := newWorker(repo, src, ing, nil)
	w.processNextJob()

	ing.mu.Lock()
	defer ing.mu.Unlock()

	assert.Empty(t, ing.upsertedPath)
	assert.Equal(t, "gone.txt", ing.deletedPath)
	assert.Equal(t, []string{domain.JobStatusDone}, repo.statuses)
}

func TestProcessNextJob_DeleteDocument(t *testing.T) {
	ing := &stubIngestUsecase{}
	repo := &stubJobRepo{jobs: []*domain.PolicyJob{makeJob(domain.JobTypeDeleteDocument, "hr/old.txt")}}

	w := newWorker(repo, nil, ing, nil)
	w.processNextJob()

	ing.mu.Lock()
	defer ing.mu.Unlock()

	assert.Equal(t, "hr/old.txt", ing.deletedPath)
}

func TestProcessNextJob_ReingestCorpus(t *testing.T) {
	corpus := &stubCorpusUsecase{report: &usecase.IngestReport{Total: 5, Indexed: 5}}
	job := &domain.PolicyJob{ID: uuid.New(), JobType: domain.JobTypeReingestCorpus, Payload: map[string]interface{}{}}
	repo := &stubJobRepo{jobs: []*domain.PolicyJob{job}}

	w := newWorker(repo, nil, nil, corpus)
	w.processNextJob()

	assert.Equal(t, 1, corpus.calls)
	assert.Equal(t, []string{domain.JobStatusDone}, repo.statuses)
}

func TestProcessNextJob_ReingestWithFailuresMarksJobFailed(t *testing.T) {
	corpus := &stubCorpusUsecase{report: &usecase.IngestReport{Total: 3, Indexed: 2, Failed: 1}}
	job := &domain.PolicyJob{ID: uuid.New(), JobType: domain.JobTypeReingestCorpus, Payload: map[string]interface{}{}}
	repo := &stubJobRepo{jobs: []*domain.PolicyJob{job}}

	w := newWorker(repo, nil, nil, corpus)
	w.processNextJob()

	assert.Equal(t, []string{domain.JobStatusFailed}, repo.statuses)
}

func TestProcessNextJob_MissingSourcePathFails(t *testing.T) {
	job := &domain.PolicyJob{ID: uuid.New(), JobType: domain.JobTypeIngestDocument, Payload: map[string]interface{}{}}
	repo := &stubJobRepo{jobs: []*domain.PolicyJob{job}}

	w := newWorker(repo, nil, nil, nil)
	w.processNextJob()

	assert.Equal(t, []string{domain.JobStatusFailed}, repo.statuses)
}

func TestJobWorker_BacksOffOnConsecutiveFailures(t *testing.T) {
	doc := &domain.SourceDocument{Path: "a.txt", Content: "x"}
	src := &stubSource{docs: map[string]*domain.SourceDocument{doc.Path: doc}}
	ing := &stubIngestUsecase{returnErr: errors.New("embedder unreachable")}
	repo := &stubJobRepo{jobs: []*domain.PolicyJob{
		makeJob(domain.JobTypeIngestDocument, "a.txt"),
		makeJob(domain.JobTypeIngestDocument, "a.txt"),
		makeJob(domain.JobTypeIngestDocument, "a.txt"),
	}}

	w := newWorker(repo, src, ing, nil)

	w.processNextJob()
	assert.Equal(t, initialBackoff, w.backoff)

	w.processNextJob()
	assert.Equal(t, 2*time.Second, w.backoff)

	w.processNextJob()
	assert.Equal(t, 4*time.Second, w.backoff)
}

func TestJobWorker_BackoffResetsOnSuccess(t *testing.T) {
	doc := &domain.SourceDocument{Path: "a.txt", Content: "x"}
	src := &stubSource{docs: map[string]*domain.SourceDocument{doc.Path: doc}}
	ing := &stubIngestUsecase{returnErr: errors.New("fail")}
	repo := &stubJobRepo{jobs: []*domain.PolicyJob{
		makeJob(domain.JobTypeIngestDocument, "a.txt"),
		makeJob(domain.JobTypeIngestDocument, "a.txt"),
	}}

	w := newWorker(repo, src, ing, nil)

	w.processNextJob()
	assert.Equal(t, initialBackoff, w.backoff)

	ing.mu.Lock()
	ing.returnErr = nil
	ing.mu.Unlock()

	w.processNextJob()
	assert.Equal(t, time.Duration(0), w.backoff, "backoff should reset on success")
}

func TestJobWorker_BackoffCapsAtMax(t *testing.T) {
	w := newWorker(&stubJobRepo{}, nil, nil, nil)

	bo := time.Duration(0)
	for i := 0; i < 20; i++ {
		bo = w.nextBackoff(bo)
	}
	assert.Equal(t, maxBackoff, bo, "backoff must cap at maxBackoff")
}

func TestProcessNextJob_UnknownJobType(t *testing.T) {
	job := &domain.PolicyJob{ID: uuid.New(), JobType: "mystery", Payload: map[string]interface{}{}}
	repo := &stubJobRepo{jobs: []*domain.PolicyJob{job}}

	w := newWorker(repo, nil, nil, nil)
	w.processNextJob()

	assert.Equal(t, []string{domain.JobStatusFailed}, repo.statuses)
}
