package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	repoerrors "timeglass/internal/infrastructure/errors"
	"timeglass/internal/infrastructure/logging"
)

// withTx returns a repository clone that routes all queries through tx
func (r *SQLiteRepository) withTx(tx *sql.Tx) *SQLiteRepository {
	return &SQLiteRepository{
		db:          r.db, // keep the original handle for nested checks
		q:           tx,
		dbService:   r.dbService,
		retryConfig: r.retryConfig,
		batchConfig: r.batchConfig,
		logger:      r.logger,
	}
}

// inTx runs fn inside a transaction. When the repository already routes
// through a transaction, fn runs against it directly; SQLite has no
// nested transactions.
func (r *SQLiteRepository) inTx(ctx context.Context, op string, fn func(txr *SQLiteRepository) error) error {
	if _, ok := r.q.(*sql.Tx); ok {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		repoErr := repoerrors.NewRepositoryError(op+".Begin", err, r.classifyError(err))
		if repoErr.IsRetryable() {
			r.logger.Debug("Retryable error beginning transaction", "operation", op, "error", err)
		} else {
			logging.LogRepositoryError(r.logger, repoErr, op+".Begin", nil)
		}
		return repoErr
	}

	var committed bool
	defer func() {
		if !committed {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				r.logger.Debug("Failed to rollback transaction",
					"operation", op,
					"rollback_error", rollbackErr)
			}
		}
	}()

	if err := fn(r.withTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		repoErr := repoerrors.NewRepositoryError(op+".Commit", err, r.classifyError(err))
		if repoErr.IsRetryable() {
			r.logger.Debug("Retryable error committing transaction", "operation", op, "error", err)
		} else {
			logging.LogRepositoryError(r.logger, repoErr, op+".Commit", nil)
		}
		return repoErr
	}
	committed = true

	return nil
}

// WithTransaction executes a function within a database transaction with retry logic
func (r *SQLiteRepository) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	start := time.Now()

	err := repoerrors.WithRetry(ctx, r.retryConfig, func() error {
		return r.inTx(ctx, "WithTransaction", func(txr *SQLiteRepository) error {
			if err := fn(txr); err != nil {
				// The function is expected to return proper repository
				// errors; don't wrap them again.
				r.logger.Debug("Transaction function failed", "error", err)
				return err
			}
			return nil
		})
	})

	if err == nil {
		logging.LogRepositoryOperation(r.logger, "WithTransaction", time.Since(start), nil)
	}

	return err
}
