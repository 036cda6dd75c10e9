package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"policy-rag/internal/domain"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// IngestOutcome describes what Upsert did with a document.
type IngestOutcome string

const (
	OutcomeIndexed   IngestOutcome = "indexed"
	OutcomeUnchanged IngestOutcome = "unchanged"
)

// IngestDocumentUsecase indexes one policy document. Upsert is idempotent:
// re-ingesting an unchanged file is a no-op.
type IngestDocumentUsecase interface {
	Upsert(ctx context.Context, doc domain.SourceDocument) (IngestOutcome, error)
	// Delete removes a document with all versions and chunks. Deleting an
	// unknown path is a no-op.
	Delete(ctx context.Context, path string) error
}

type ingestDocumentUsecase struct {
	docRepo       domain.PolicyDocumentRepository
	chunkRepo     domain.PolicyChunkRepository
	txManager     domain.TransactionManager
	hasher        domain.SourceHashPolicy
	chunker       domain.Chunker
	encoder       domain.VectorEncoder
	dateExtractor *domain.DateExtractor
	classifier    *domain.NoiseClassifier
	logger        *slog.Logger
}

func NewIngestDocumentUsecase(
	docRepo domain.PolicyDocumentRepository,
	chunkRepo domain.PolicyChunkRepository,
	txManager domain.TransactionManager,
	hasher domain.SourceHashPolicy,
	chunker domain.Chunker,
	encoder domain.VectorEncoder,
	dateExtractor *domain.DateExtractor,
	classifier *domain.NoiseClassifier,
	logger *slog.Logger,
) IngestDocumentUsecase {
	return &ingestDocumentUsecase{
		docRepo:       docRepo,
		chunkRepo:     chunkRepo,
		txManager:     txManager,
		hasher:        hasher,
		chunker:       chunker,
		encoder:       encoder,
		dateExtractor: dateExtractor,
		classifier:    classifier,
		logger:        logger,
	}
}

func (u *ingestDocumentUsecase) Upsert(ctx context.Context, source domain.SourceDocument) (IngestOutcome, error) {
	sourceHash := u.hasher.Compute(source.Path, source.Content)

	// Document-level metadata is computed once per version; every chunk of
	// the version inherits it.
	date := u.dateExtractor.Extract(source)
	noise := u.classifier.Classify(source)

	outcome := OutcomeUnchanged
	err := u.txManager.RunInTx(ctx, func(ctx context.Context) error {
		doc, err := u.docRepo.GetBySourcePath(ctx, source.Path)
		if err != nil {
			return fmt.Errorf("failed to get document: %w", err)
		}

		var latestVer *domain.PolicyDocumentVersion
		if doc != nil && doc.CurrentVersionID != nil {
			latestVer, err = u.docRepo.GetLatestVersion(ctx, doc.ID)
			if err != nil {
				return fmt.Errorf("failed to get latest version: %w", err)
			}
		}

		if latestVer != nil &&
			latestVer.SourceHash == sourceHash &&
			latestVer.ChunkerVersion == string(u.chunker.Version()) &&
			latestVer.EmbedderVersion == u.encoder.Version() {
			return nil
		}

		chunks, err := u.chunker.Chunk(source.Content)
		if err != nil {
			return fmt.Errorf("failed to chunk body: %w", err)
		}

		now := time.Now()
		newVersionID := uuid.New()

		policyChunks := make([]domain.PolicyChunk, 0, len(chunks))
		contents := make([]string, 0, len(chunks))
		for _, c := range chunks {
			policyChunks = append(policyChunks, domain.PolicyChunk{
				ID:          uuid.New(),
				VersionID:   newVersionID,
				Ordinal:     c.Ordinal,
				Content:     c.Content,
				StartOffset: c.Start,
				EndOffset:   c.End,
				CreatedAt:   now,
			})
			contents = append(contents, c.Content)
		}

		if len(contents) > 0 {
			embeddings, err := u.encoder.Encode(ctx, contents)
			if err != nil {
				return fmt.Errorf("failed to encode chunks: %w", err)
			}
			if len(embeddings) != len(contents) {
				return fmt.Errorf("expected %d embeddings, got %d", len(contents), len(embeddings))
			}
			for i := range policyChunks {
				policyChunks[i].Embedding = pgvector.NewVector(embeddings[i])
			}
		}

		if doc == nil {
			doc = &domain.PolicyDocument{
				ID:         uuid.New(),
				SourcePath: source.Path,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := u.docRepo.CreateDocument(ctx, doc); err != nil {
				return fmt.Errorf("failed to create document: %w", err)
			}
		}

		newVer := &domain.PolicyDocumentVersion{
			ID:              newVersionID,
			DocumentID:      doc.ID,
			VersionNumber:   1,
			SourceHash:      sourceHash,
			EffectiveDate:   date.Date,
			DateSource:      date.Source,
			Noise:           noise.Noise,
			NoiseReason:     noise.Reason,
			FileModifiedAt:  source.ModifiedAt,
			ChunkerVersion:  string(u.chunker.Version()),
			EmbedderVersion: u.encoder.Version(),
			CreatedAt:       now,
		}
		if latestVer != nil {
			newVer.VersionNumber = latestVer.VersionNumber + 1
		}
		if err := u.docRepo.CreateVersion(ctx, newVer); err != nil {
			return fmt.Errorf("failed to create version: %w", err)
		}

		if len(policyChunks) > 0 {
			if err := u.chunkRepo.BulkInsertChunks(ctx, policyChunks); err != nil {
				return fmt.Errorf("failed to insert chunks: %w", err)
			}
		}

		if err := u.docRepo.UpdateCurrentVersion(ctx, doc.ID, newVersionID); err != nil {
			return fmt.Errorf("failed to update current version: %w", err)
		}

		outcome = OutcomeIndexed
		u.logger.Info("document_indexed",
			slog.String("source_path", source.Path),
			slog.Int("version", newVer.VersionNumber),
			slog.Int("chunks", len(policyChunks)),
			slog.String("effective_date", date.String()),
			slog.String("date_source", string(date.Source)),
			slog.Bool("noise", noise.Noise))
		return nil
	})
	if err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (u *ingestDocumentUsecase) Delete(ctx context.Context, path string) error {
	return u.txManager.RunInTx(ctx, func(ctx context.Context) error {
		if err := u.docRepo.DeleteBySourcePath(ctx, path); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		u.logger.Info("document_deleted", slog.String("source_path", path))
		return nil
	})
}
