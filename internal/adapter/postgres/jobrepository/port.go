// package jobrepository contains the PostgreSQL implementation of the job port
package jobrepository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"gitlab.com/resultrelay.net/internal/core/ports/primary"
	"gitlab.com/resultrelay.net/internal/core/ports/secondary"
	"gitlab.com/resultrelay.net/internal/domain"
)

var _ secondary.JobPort = (*JobRepository)(nil)

// JobRepository implements the JobPort interface with PostgreSQL
type JobRepository struct {
	db     *sqlx.DB
	logger primary.Logger
}

// NewJobRepository creates a new PostgreSQL job repository
func NewJobRepository(db *sqlx.DB, logger primary.Logger) *JobRepository {
	return &JobRepository{
		db:     db,
		logger: logger,
	}
}

// CreateIntent inserts a PENDING upload job record
func (r *JobRepository) CreateIntent(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO upload_jobs (
			id, user_id, non_member_identifier, upload_source,
			s3_key, original_filename, file_type, file_size_bytes,
			processing_status, s3_result_path, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	now := time.Now()
	_, err := r.db.ExecContext(
		ctx,
		query,
		job.ID,
		job.OwnerID,
		job.NonMemberID,
		job.UploadSource,
		job.S3Key,
		job.Filename,
		job.FileType,
		job.FileSizeBytes,
		domain.JobStatusPending,
		job.S3ResultPath,
		now,
	)

	if err != nil {
		r.logger.Error("Failed to insert upload intent", "jobId", job.ID, "error", err)
		return fmt.Errorf("failed to insert upload intent: %w", err)
	}

	return nil
}

// GetOwner returns the owner identity for a job. A missing record and a
// record without an owner both return nil; the handshake treats either as
// "job not found".
func (r *JobRepository) GetOwner(ctx context.Context, jobID string) (*string, error) {
	query := `SELECT user_id FROM upload_jobs WHERE id = $1 LIMIT 1`

	var ownerID sql.NullString
	err := r.db.QueryRowContext(ctx, query, jobID).Scan(&ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get job owner", "jobId", jobID, "error", err)
		return nil, fmt.Errorf("failed to get job owner: %w", err)
	}

	if !ownerID.Valid {
		return nil, nil
	}
	return &ownerID.String, nil
}

// GetRecord retrieves a job record by ID, or nil when unknown. The select
// first tries the richer schema including s3_result_paths and retries
// without it when the column is missing.
func (r *JobRepository) GetRecord(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		SELECT id, user_id, processing_status, s3_result_path, s3_result_paths
		FROM upload_jobs
		WHERE id = $1
		LIMIT 1
	`

	var job domain.Job
	var ownerID, resultPath, resultPaths sql.NullString

	err := r.db.QueryRowContext(ctx, query, jobID).Scan(
		&job.ID,
		&ownerID,
		&job.Status,
		&resultPath,
		&resultPaths,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		// Older deployments lack the s3_result_paths column
		return r.getRecordBasic(ctx, jobID)
	}

	if ownerID.Valid {
		job.OwnerID = &ownerID.String
	}
	if resultPath.Valid {
		job.S3ResultPath = &resultPath.String
	}
	if resultPaths.Valid && resultPaths.String != "" {
		job.S3ResultPaths = decodeResultPaths(resultPaths.String)
	}

	return &job, nil
}

func (r *JobRepository) getRecordBasic(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
		SELECT id, user_id, processing_status, s3_result_path
		FROM upload_jobs
		WHERE id = $1
		LIMIT 1
	`

	var job domain.Job
	var ownerID, resultPath sql.NullString

	err := r.db.QueryRowContext(ctx, query, jobID).Scan(
		&job.ID,
		&ownerID,
		&job.Status,
		&resultPath,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get job record", "jobId", jobID, "error", err)
		return nil, fmt.Errorf("failed to get job record: %w", err)
	}

	if ownerID.Valid {
		job.OwnerID = &ownerID.String
	}
	if resultPath.Valid {
		job.S3ResultPath = &resultPath.String
	}

	return &job, nil
}

// WriteResult updates status and result locations. The full write carries
// the JSON-encoded location list; when it is rejected (missing column, bad
// encoding) the write degrades to status + primary location, which is the
// minimum success condition for the completion path.
func (r *JobRepository) WriteResult(ctx context.Context, jobID string, status domain.JobStatus, primaryKey string, keys []string) (secondary.WriteTier, error) {
	pathsJSON, err := json.Marshal(keys)
	if err == nil && len(keys) > 0 {
		query := `
			UPDATE upload_jobs
			SET processing_status = $1, s3_result_path = $2, s3_result_paths = $3
			WHERE id = $4
		`
		_, execErr := r.db.ExecContext(ctx, query, status, primaryKey, string(pathsJSON), jobID)
		if execErr == nil {
			return secondary.WriteTierFull, nil
		}
		r.logger.Warn("Full result write rejected, falling back to primary-only",
			"jobId", jobID, "error", execErr)
	}

	query := `
		UPDATE upload_jobs
		SET processing_status = $1, s3_result_path = $2
		WHERE id = $3
	`
	if _, err := r.db.ExecContext(ctx, query, status, primaryKey, jobID); err != nil {
		r.logger.Error("Failed to write job result", "jobId", jobID, "error", err)
		return secondary.WriteTierNone, fmt.Errorf("failed to write job result: %w", err)
	}

	return secondary.WriteTierPrimary, nil
}

// decodeResultPaths tolerates both a JSON array and a bare path string in
// the s3_result_paths column.
func decodeResultPaths(raw string) []string {
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return []string{raw}
	}
	return keys
}
