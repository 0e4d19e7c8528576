package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/datarocks/lwgs-searchindex-client/internal/domain"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx so repositories can run
// standalone or inside a per-message transaction.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Repos bundles one repository per entity, all bound to the same executor.
type Repos struct {
	Settings      domain.SettingRepository
	Transactions  domain.TransactionRepository
	SyncJobs      domain.SyncJobRepository
	SedexMessages domain.SedexMessageRepository
}

func newRepos(q dbtx) *Repos {
	return &Repos{
		Settings:      &settingRepository{q: q},
		Transactions:  &transactionRepository{q: q},
		SyncJobs:      &syncJobRepository{q: q},
		SedexMessages: &sedexMessageRepository{q: q},
	}
}

// Store is the entry point to the persistence layer. Direct repository
// access runs in auto-commit mode; InTransaction scopes a group of
// operations to a single database transaction.
type Store struct {
	*Repos
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{Repos: newRepos(db), db: db}
}

// DB exposes the underlying handle for lifecycle management.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InTransaction runs fn against transaction-scoped repositories. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) InTransaction(fn func(*Repos) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(newRepos(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// wrapConstraint maps SQLite unique-constraint failures onto the
// distinguishable domain error so consumers can detect insert races.
func wrapConstraint(err error, what string) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", what, domain.ErrDuplicateKey)
	}
	return fmt.Errorf("failed to insert %s: %w", what, err)
}
