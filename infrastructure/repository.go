package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// TimeOperation executes an operation and logs its execution time
func TimeOperation(ctx context.Context, name string, operation func() error) error {
	start := time.Now()
	err := operation()
	elapsed := time.Since(start)
	slog.Log(ctx, slog.LevelInfo, fmt.Sprintf("Operation %s took %s", name, elapsed))
	return err
}

// WithTransaction handles a database transaction and executes the given operation
func WithTransaction(db *sql.DB, ctx context.Context, operation func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p) // re-throw panic after Rollback
		} else if err != nil {
			if err := tx.Rollback(); err != nil {
				slog.Log(ctx, slog.LevelError, "Error while rolling back transaction", "error", err)
			}
		} else {
			err = tx.Commit()
		}
	}()

	err = operation(tx)
	return err
}
