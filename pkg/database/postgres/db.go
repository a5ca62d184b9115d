package pg

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/alizeeshan1234/er-transfer/pkg/retry"
)

const maxTxAttempts = 3

// ExecuteInTx runs fn within a new transaction, committing when it returns
// nil and rolling back otherwise. Serialization failures retry the whole
// transaction.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	if isolation == sql.LevelDefault {
		isolation = sql.LevelReadCommitted // Postgres default
	}

	_, err := retry.Retry(
		func() error {
			return executeInTxOnce(ctx, db, isolation, fn)
		},
		retry.Limit(maxTxAttempts),
		retryOnSerializationFailure,
	)
	return err
}

func retryOnSerializationFailure(_ uint, err error) bool {
	return IsSerializationFailure(err)
}

func executeInTxOnce(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{
		Isolation: isolation,
	})
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		// We always need to execute a Rollback() so sql.DB releases the connection.
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Wrap(rollbackErr, "failed to rollback transaction")
		}
		return err
	}
	return tx.Commit()
}
