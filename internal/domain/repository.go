package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// PolicyDocument represents one source file in the corpus.
type PolicyDocument struct {
	ID               uuid.UUID
	SourcePath       string
	CurrentVersionID *uuid.UUID // nil until the first version is indexed
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PolicyDocumentVersion is an immutable ingested snapshot of a document.
// ExtractedDate and NoiseLabel are computed once here and inherited by
// every chunk of the version, so repeated queries reuse them.
type PolicyDocumentVersion struct {
	ID              uuid.UUID
	DocumentID      uuid.UUID
	VersionNumber   int
	SourceHash      string
	EffectiveDate   time.Time // zero when the date source is unknown
	DateSource      DateSource
	Noise           bool
	NoiseReason     NoiseReason
	FileModifiedAt  time.Time
	ChunkerVersion  string
	EmbedderVersion string
	CreatedAt       time.Time
}

// Metadata reassembles the value objects stored on the version row.
func (v PolicyDocumentVersion) Metadata() (ExtractedDate, NoiseLabel) {
	date := ExtractedDate{Date: v.EffectiveDate, Source: v.DateSource}
	if v.DateSource == "" {
		date.Source = DateSourceUnknown
	}
	return date, NoiseLabel{Noise: v.Noise, Reason: v.NoiseReason}
}

// PolicyChunk is a persistable chunk: a contiguous span of one document
// version, with offsets into the normalized document text.
type PolicyChunk struct {
	ID          uuid.UUID
	VersionID   uuid.UUID
	Ordinal     int
	Content     string
	StartOffset int
	EndOffset   int
	Embedding   pgvector.Vector
	CreatedAt   time.Time
}

// Job types understood by the ingest worker.
const (
	JobTypeIngestDocument = "ingest_document"
	JobTypeDeleteDocument = "delete_document"
	JobTypeReingestCorpus = "reingest_corpus"
)

// Job statuses.
const (
	JobStatusNew        = "new"
	JobStatusProcessing = "processing"
	JobStatusDone       = "done"
	JobStatusFailed     = "failed"
)

// PolicyJob is a queued unit of ingestion work.
type PolicyJob struct {
	ID           uuid.UUID
	JobType      string
	Payload      map[string]interface{}
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SearchResult is a chunk found via vector search together with the
// document-level metadata the resolution pipeline needs.
type SearchResult struct {
	Chunk           PolicyChunk
	Score           float32
	SourcePath      string
	DocumentVersion int
	EffectiveDate   ExtractedDate
	Noise           NoiseLabel
}

// PolicyDocumentRepository manages documents and their versions.
type PolicyDocumentRepository interface {
	// GetBySourcePath retrieves a document by path. Returns nil, nil if
	// not found.
	GetBySourcePath(ctx context.Context, path string) (*PolicyDocument, error)

	// CreateDocument creates a new document.
	CreateDocument(ctx context.Context, doc *PolicyDocument) error

	// UpdateCurrentVersion points the document at a newly indexed version.
	UpdateCurrentVersion(ctx context.Context, docID uuid.UUID, versionID uuid.UUID) error

	// GetLatestVersion retrieves the most recent version of a document.
	// Returns nil, nil if no version exists.
	GetLatestVersion(ctx context.Context, docID uuid.UUID) (*PolicyDocumentVersion, error)

	// CreateVersion creates a new document version.
	CreateVersion(ctx context.Context, version *PolicyDocumentVersion) error

	// DeleteBySourcePath removes a document with all versions and chunks.
	// Deleting an unknown path is a no-op.
	DeleteBySourcePath(ctx context.Context, path string) error
}

// PolicyChunkRepository manages chunks and the vector index over them.
type PolicyChunkRepository interface {
	// BulkInsertChunks inserts the chunks of one version.
	BulkInsertChunks(ctx context.Context, chunks []PolicyChunk) error

	// GetChunksByVersionID retrieves chunks ordered by ordinal.
	GetChunksByVersionID(ctx context.Context, versionID uuid.UUID) ([]PolicyChunk, error)

	// Search performs a vector similarity search over current document
	// versions only, returning at most limit results ordered by score
	// descending.
	Search(ctx context.Context, queryVector []float32, limit int) ([]SearchResult, error)
}

// PolicyJobRepository is the persistent ingest job queue.
type PolicyJobRepository interface {
	Enqueue(ctx context.Context, job *PolicyJob) error

	// AcquireNextJob atomically claims the oldest queued job. Returns
	// nil, nil when the queue is empty.
	AcquireNextJob(ctx context.Context) (*PolicyJob, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error
}

// TransactionManager runs a function within a database transaction.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
