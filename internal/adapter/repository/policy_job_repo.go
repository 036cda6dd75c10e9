package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"policy-rag/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type policyJobRepository struct {
	pool *pgxpool.Pool
}

// NewPolicyJobRepository creates the persistent ingest job queue.
func NewPolicyJobRepository(pool *pgxpool.Pool) domain.PolicyJobRepository {
	return &policyJobRepository{pool: pool}
}

func (r *policyJobRepository) Enqueue(ctx context.Context, job *domain.PolicyJob) error {
	query := `
		INSERT INTO policy_jobs (id, job_type, payload, status, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	payloadBytes, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.JobType,
		payloadBytes,
		job.Status,
		job.ErrorMessage,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// AcquireNextJob claims the oldest queued job and flips it to processing in
// one statement. SKIP LOCKED keeps concurrent workers from contending on the
// same row.
func (r *policyJobRepository) AcquireNextJob(ctx context.Context) (*domain.PolicyJob, error) {
	query := `
		WITH next_job AS (
			SELECT id
			FROM policy_jobs
			WHERE status = 'new'
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE policy_jobs
		SET status = 'processing', updated_at = $1
		FROM next_job
		WHERE policy_jobs.id = next_job.id
		RETURNING policy_jobs.id, policy_jobs.job_type, policy_jobs.payload, policy_jobs.status,
		          policy_jobs.error_message, policy_jobs.created_at, policy_jobs.updated_at
	`

	var job domain.PolicyJob
	var payloadBytes []byte

	err := r.pool.QueryRow(ctx, query, time.Now()).Scan(
		&job.ID,
		&job.JobType,
		&payloadBytes,
		&job.Status,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to acquire next job: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &job.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return &job, nil
}

func (r *policyJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error {
	query := `
		UPDATE policy_jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := r.pool.Exec(ctx, query, status, errorMessage, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	return nil
}
