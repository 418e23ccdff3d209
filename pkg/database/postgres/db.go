package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type txStructContextKey struct{}

var (
	ErrAlreadyInTx = errors.New("already executing in existing db tx")
	ErrNotInTx     = errors.New("not executing in existing db tx")
)

// ExecuteTxWithinCtx executes a DB transaction that's scoped to a call to fn.
// The transaction is passed along with the context. Once fn is complete,
// commit/rollback is called based on whether an error is returned.
func ExecuteTxWithinCtx(ctx context.Context, db *sqlx.DB, fn func(context.Context) error) error {
	existing := ctx.Value(txStructContextKey{})
	if existing != nil {
		return ErrAlreadyInTx
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return err
	}

	ctx = context.WithValue(ctx, txStructContextKey{}, tx)

	if err := fn(ctx); err != nil {
		// We always need to execute a Rollback() so sql.DB releases the
		// connection.
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("failed to rollback transaction: %w", rollbackErr)
		}
		return err
	}
	return tx.Commit()
}

// ExecuteInTx is meant for store implementations to execute an operation
// within the scope of a DB transaction. This method is aware of
// ExecuteTxWithinCtx, and will dynamically decide when to use a new or
// existing transaction, as well as where the responsibility for
// commit/rollback calls lie.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := txFromCtx(ctx)
	if err != nil && err != ErrNotInTx {
		return err
	}

	var startedNewTx bool // To determine who is responsible for commit/rollback
	if err == ErrNotInTx {
		startedNewTx = true
		tx, err = db.BeginTxx(ctx, &sql.TxOptions{
			Isolation: sql.LevelReadCommitted,
		})
		if err != nil {
			return err
		}
	}

	if err := fn(tx); err != nil {
		if startedNewTx {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				return fmt.Errorf("failed to rollback transaction: %w", rollbackErr)
			}
		}
		return err
	}

	if startedNewTx {
		return tx.Commit()
	}
	return nil
}

func txFromCtx(ctx context.Context) (*sqlx.Tx, error) {
	fromCtx := ctx.Value(txStructContextKey{})
	if fromCtx == nil {
		return nil, ErrNotInTx
	}

	tx, ok := fromCtx.(*sqlx.Tx)
	if !ok {
		return nil, errors.New("invalid type for tx")
	}
	return tx, nil
}
