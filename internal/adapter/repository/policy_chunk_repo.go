package repository

import (
	"context"
	"fmt"

	"policy-rag/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type policyChunkRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyChunkRepository creates a new PolicyChunkRepository.
func NewPolicyChunkRepository(pool *pgxpool.Pool) domain.PolicyChunkRepository {
	return &policyChunkRepository{pool: pool}
}

type dbExecutor interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func (r *policyChunkRepository) getExecutor(ctx context.Context) dbExecutor {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

func (r *policyChunkRepository) BulkInsertChunks(ctx context.Context, chunks []domain.PolicyChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(chunks))
	for i, chunk := range chunks {
		rows[i] = []interface{}{
			chunk.ID,
			chunk.VersionID,
			chunk.Ordinal,
			chunk.Content,
			chunk.StartOffset,
			chunk.EndOffset,
			chunk.Embedding,
			chunk.CreatedAt,
		}
	}

	_, err := r.getExecutor(ctx).CopyFrom(
		ctx,
		pgx.Identifier{"policy_chunks"},
		[]string{"id", "version_id", "ordinal", "content", "start_offset", "end_offset", "embedding", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert chunks: %w", err)
	}

	return nil
}

func (r *policyChunkRepository) GetChunksByVersionID(ctx context.Context, versionID uuid.UUID) ([]domain.PolicyChunk, error) {
	query := `
		SELECT id, version_id, ordinal, content, start_offset, end_offset, embedding, created_at
		FROM policy_chunks
		WHERE version_id = $1
		ORDER BY ordinal ASC
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.PolicyChunk
	for rows.Next() {
		var c domain.PolicyChunk
		if err := rows.Scan(&c.ID, &c.VersionID, &c.Ordinal, &c.Content, &c.StartOffset, &c.EndOffset, &c.Embedding, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return chunks, nil
}

// Search runs cosine similarity search restricted to each document's current
// version, so superseded versions of the same file never surface. Score is
// 1 - cosine distance; document metadata rides along for the resolution
// pipeline.
func (r *policyChunkRepository) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.SearchResult, error) {
	query := `
		SELECT c.id, c.version_id, c.ordinal, c.content, c.start_offset, c.end_offset, c.created_at,
		       1 - (c.embedding <=> $1) AS score,
		       d.source_path, v.version_number,
		       v.effective_date, v.date_source, v.noise, v.noise_reason
		FROM policy_chunks c
		JOIN policy_document_versions v ON v.id = c.version_id
		JOIN policy_documents d ON d.id = v.document_id AND d.current_version_id = v.id
		ORDER BY c.embedding <=> $1
		LIMIT $2
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, pgvector.NewVector(queryVector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		var res domain.SearchResult
		var effectiveDate pgtype.Date
		var dateSource string
		var noiseReason pgtype.Text
		err := rows.Scan(
			&res.Chunk.ID, &res.Chunk.VersionID, &res.Chunk.Ordinal, &res.Chunk.Content,
			&res.Chunk.StartOffset, &res.Chunk.EndOffset, &res.Chunk.CreatedAt,
			&res.Score,
			&res.SourcePath, &res.DocumentVersion,
			&effectiveDate, &dateSource, &res.Noise.Noise, &noiseReason,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}

		res.EffectiveDate = domain.ExtractedDate{Source: domain.DateSource(dateSource)}
		if effectiveDate.Valid {
			res.EffectiveDate.Date = effectiveDate.Time
		}
		res.Noise.Reason = domain.NoiseReason(noiseReason.String)

		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}
