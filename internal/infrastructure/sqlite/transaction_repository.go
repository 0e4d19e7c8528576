package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
)

const transactionColumns = `id, transaction_id, state, job_id, created_at, updated_at`

// transactionRepository implements domain.TransactionRepository using SQLite.
type transactionRepository struct {
	q dbtx
}

var _ domain.TransactionRepository = (*transactionRepository)(nil)

func scanTransaction(scanner interface{ Scan(...any) error }) (*transactionModel, error) {
	var model transactionModel
	err := scanner.Scan(
		&model.ID, &model.TransactionID, &model.State, &model.JobID,
		&model.CreatedAt, &model.UpdatedAt,
	)
	return &model, err
}

// FindByTransactionID retrieves a transaction by its natural key.
func (r *transactionRepository) FindByTransactionID(transactionID uuid.UUID) (*domain.Transaction, error) {
	row := r.q.QueryRow(
		`SELECT `+transactionColumns+` FROM transactions WHERE transaction_id = ?`,
		transactionID.String(),
	)
	model, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", transactionID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction by id: %w", err)
	}
	return model.toDomain()
}

// Save persists a transaction. New transactions (ID == 0) are inserted;
// inserting a duplicate transaction id yields domain.ErrDuplicateKey.
func (r *transactionRepository) Save(transaction *domain.Transaction) error {
	model := toTransactionModel(transaction)

	if transaction.ID == 0 {
		result, err := r.q.Exec(
			`INSERT INTO transactions (transaction_id, state, job_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)`,
			model.TransactionID, model.State, model.JobID, model.CreatedAt, model.UpdatedAt,
		)
		if err != nil {
			return wrapConstraint(err, "transaction")
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		transaction.ID = id
		return nil
	}

	_, err := r.q.Exec(
		`UPDATE transactions SET state = ?, job_id = ?, updated_at = ? WHERE id = ?`,
		model.State, model.JobID, model.UpdatedAt, model.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return nil
}
