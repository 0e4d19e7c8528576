package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
)

const syncJobColumns = `id, job_id, job_type, job_state, created_at, updated_at`

// syncJobRepository implements domain.SyncJobRepository using SQLite.
type syncJobRepository struct {
	q dbtx
}

var _ domain.SyncJobRepository = (*syncJobRepository)(nil)

func scanSyncJob(scanner interface{ Scan(...any) error }) (*syncJobModel, error) {
	var model syncJobModel
	err := scanner.Scan(
		&model.ID, &model.JobID, &model.JobType, &model.JobState,
		&model.CreatedAt, &model.UpdatedAt,
	)
	return &model, err
}

// FindByJobID retrieves a sync job by its natural key.
func (r *syncJobRepository) FindByJobID(jobID uuid.UUID) (*domain.SyncJob, error) {
	row := r.q.QueryRow(
		`SELECT `+syncJobColumns+` FROM sync_jobs WHERE job_id = ?`,
		jobID.String(),
	)
	model, err := scanSyncJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sync job %s: %w", jobID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sync job by id: %w", err)
	}
	return model.toDomain()
}

// Save persists a sync job. New jobs (ID == 0) are inserted; inserting a
// duplicate job id yields domain.ErrDuplicateKey, which callers treat as a
// lost creation race.
func (r *syncJobRepository) Save(job *domain.SyncJob) error {
	model := toSyncJobModel(job)

	if job.ID == 0 {
		result, err := r.q.Exec(
			`INSERT INTO sync_jobs (job_id, job_type, job_state, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			model.JobID, model.JobType, model.JobState, model.CreatedAt, model.UpdatedAt,
		)
		if err != nil {
			return wrapConstraint(err, "sync job")
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		job.ID = id
		return nil
	}

	_, err := r.q.Exec(
		`UPDATE sync_jobs SET job_state = ?, updated_at = ? WHERE id = ?`,
		model.JobState, model.UpdatedAt, model.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update sync job: %w", err)
	}
	return nil
}
