package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"aiinfra/internal/logging"
)

// maxConcurrentUpserts bounds the statements in flight inside one transaction.
const maxConcurrentUpserts = 8

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error.
func (db *DB) withTx(ctx context.Context, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logging.Warningf("Rollback failed: %v", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// execConcurrently issues one statement per argument set on tx without
// ordering between them. The first failure cancels the rest.
func execConcurrently(ctx context.Context, tx *sqlx.Tx, query string, argSets [][]any) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUpserts)

	for _, args := range argSets {
		g.Go(func() error {
			_, err := tx.ExecContext(gctx, query, args...)
			return err
		})
	}

	return g.Wait()
}

func utcNow() time.Time {
	return time.Now().UTC()
}
