package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campus-adp/timetable-api/pkg/database"
)

// TxRunner executes a unit of work inside a serializable transaction.
// Conflict checks run against the same snapshot that the subsequent writes
// commit into, so two racing submissions for an overlapping slot cannot
// both pass validation and both commit.
type TxRunner struct {
	db *sqlx.DB
}

// NewTxRunner wraps the database handle.
func NewTxRunner(db *sqlx.DB) *TxRunner {
	return &TxRunner{db: db}
}

// RunSerializable runs fn inside a SERIALIZABLE transaction, retrying a
// bounded number of times when Postgres aborts with a serialization
// failure. Any other error from fn rolls the transaction back unchanged.
func (r *TxRunner) RunSerializable(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	const maxAttempts = 3
	for attempt := 1; ; attempt++ {
		tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return fmt.Errorf("begin serializable tx: %w", err)
		}

		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			if database.IsSerializationFailure(err) && attempt < maxAttempts {
				continue
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			if database.IsSerializationFailure(err) && attempt < maxAttempts {
				continue
			}
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	}
}
