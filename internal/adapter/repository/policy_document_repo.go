package repository

import (
	"context"
	"errors"
	"fmt"

	"policy-rag/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type policyDocumentRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyDocumentRepository creates a new PolicyDocumentRepository.
func NewPolicyDocumentRepository(pool *pgxpool.Pool) domain.PolicyDocumentRepository {
	return &policyDocumentRepository{pool: pool}
}

func (r *policyDocumentRepository) getExecutor(ctx context.Context) interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
} {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

func (r *policyDocumentRepository) GetBySourcePath(ctx context.Context, path string) (*domain.PolicyDocument, error) {
	query := `
		SELECT id, source_path, current_version_id, created_at, updated_at
		FROM policy_documents
		WHERE source_path = $1
	`
	row := r.getExecutor(ctx).QueryRow(ctx, query, path)

	var doc domain.PolicyDocument
	err := row.Scan(&doc.ID, &doc.SourcePath, &doc.CurrentVersionID, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	return &doc, nil
}

func (r *policyDocumentRepository) CreateDocument(ctx context.Context, doc *domain.PolicyDocument) error {
	query := `
		INSERT INTO policy_documents (id, source_path, current_version_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.getExecutor(ctx).Exec(ctx, query, doc.ID, doc.SourcePath, doc.CurrentVersionID, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

func (r *policyDocumentRepository) UpdateCurrentVersion(ctx context.Context, docID uuid.UUID, versionID uuid.UUID) error {
	query := `
		UPDATE policy_documents
		SET current_version_id = $1, updated_at = NOW()
		WHERE id = $2
	`
	_, err := r.getExecutor(ctx).Exec(ctx, query, versionID, docID)
	if err != nil {
		return fmt.Errorf("failed to update current version: %w", err)
	}
	return nil
}

func (r *policyDocumentRepository) GetLatestVersion(ctx context.Context, docID uuid.UUID) (*domain.PolicyDocumentVersion, error) {
	query := `
		SELECT id, document_id, version_number, source_hash,
		       effective_date, date_source, noise, noise_reason,
		       file_modified_at, chunker_version, embedder_version, created_at
		FROM policy_document_versions
		WHERE document_id = $1
		ORDER BY version_number DESC
		LIMIT 1
	`
	row := r.getExecutor(ctx).QueryRow(ctx, query, docID)

	var ver domain.PolicyDocumentVersion
	var effectiveDate pgtype.Date
	var noiseReason pgtype.Text
	err := row.Scan(&ver.ID, &ver.DocumentID, &ver.VersionNumber, &ver.SourceHash,
		&effectiveDate, &ver.DateSource, &ver.Noise, &noiseReason,
		&ver.FileModifiedAt, &ver.ChunkerVersion, &ver.EmbedderVersion, &ver.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan version: %w", err)
	}

	// NULL means the extraction chain bottomed out; the zero time is the
	// in-process sentinel for that.
	if effectiveDate.Valid {
		ver.EffectiveDate = effectiveDate.Time
	}
	ver.NoiseReason = domain.NoiseReason(noiseReason.String)

	return &ver, nil
}

func (r *policyDocumentRepository) CreateVersion(ctx context.Context, version *domain.PolicyDocumentVersion) error {
	query := `
		INSERT INTO policy_document_versions
			(id, document_id, version_number, source_hash,
			 effective_date, date_source, noise, noise_reason,
			 file_modified_at, chunker_version, embedder_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	effectiveDate := pgtype.Date{Time: version.EffectiveDate, Valid: !version.EffectiveDate.IsZero()}
	noiseReason := pgtype.Text{String: string(version.NoiseReason), Valid: version.NoiseReason != ""}

	_, err := r.getExecutor(ctx).Exec(ctx, query,
		version.ID, version.DocumentID, version.VersionNumber, version.SourceHash,
		effectiveDate, version.DateSource, version.Noise, noiseReason,
		version.FileModifiedAt, version.ChunkerVersion, version.EmbedderVersion, version.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert version: %w", err)
	}
	return nil
}

func (r *policyDocumentRepository) DeleteBySourcePath(ctx context.Context, path string) error {
	// Versions and chunks cascade from the document row.
	query := `DELETE FROM policy_documents WHERE source_path = $1`
	_, err := r.getExecutor(ctx).Exec(ctx, query, path)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
