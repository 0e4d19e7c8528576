package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
)

const sedexMessageColumns = `id, message_id, job_id, state, created_at, updated_at`

// sedexMessageRepository implements domain.SedexMessageRepository using SQLite.
type sedexMessageRepository struct {
	q dbtx
}

var _ domain.SedexMessageRepository = (*sedexMessageRepository)(nil)

func scanSedexMessage(scanner interface{ Scan(...any) error }) (*sedexMessageModel, error) {
	var model sedexMessageModel
	err := scanner.Scan(
		&model.ID, &model.MessageID, &model.JobID, &model.State,
		&model.CreatedAt, &model.UpdatedAt,
	)
	return &model, err
}

// FindByMessageID retrieves a sedex message by its natural key.
func (r *sedexMessageRepository) FindByMessageID(messageID uuid.UUID) (*domain.SedexMessage, error) {
	row := r.q.QueryRow(
		`SELECT `+sedexMessageColumns+` FROM sedex_messages WHERE message_id = ?`,
		messageID.String(),
	)
	model, err := scanSedexMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sedex message %s: %w", messageID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sedex message by id: %w", err)
	}
	return model.toDomain()
}

// FindAllByJobID retrieves every sedex message belonging to a job, oldest
// first.
func (r *sedexMessageRepository) FindAllByJobID(jobID uuid.UUID) ([]*domain.SedexMessage, error) {
	rows, err := r.q.Query(
		`SELECT `+sedexMessageColumns+` FROM sedex_messages WHERE job_id = ? ORDER BY created_at ASC`,
		jobID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sedex messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []*domain.SedexMessage
	for rows.Next() {
		model, err := scanSedexMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sedex message row: %w", err)
		}
		message, err := model.toDomain()
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sedex message rows: %w", err)
	}
	return messages, nil
}

// Save persists a sedex message. New messages (ID == 0) are inserted;
// inserting a duplicate message id yields domain.ErrDuplicateKey.
func (r *sedexMessageRepository) Save(message *domain.SedexMessage) error {
	model := toSedexMessageModel(message)

	if message.ID == 0 {
		result, err := r.q.Exec(
			`INSERT INTO sedex_messages (message_id, job_id, state, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			model.MessageID, model.JobID, model.State, model.CreatedAt, model.UpdatedAt,
		)
		if err != nil {
			return wrapConstraint(err, "sedex message")
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		message.ID = id
		return nil
	}

	_, err := r.q.Exec(
		`UPDATE sedex_messages SET state = ?, updated_at = ? WHERE id = ?`,
		model.State, model.UpdatedAt, model.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update sedex message: %w", err)
	}
	return nil
}
