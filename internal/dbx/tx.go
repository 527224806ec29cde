package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

type (
	// DBTX is what the stores need from a connection, both *sql.DB and *sql.Tx
	// satisfy it.
	DBTX interface {
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}
)

// WithTx runs fn inside a transaction. The transaction is committed only if fn
// returns nil; errors and panics roll it back (panics are re-raised).
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(context.Context, DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("unable to start transaction, cause %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
		if err != nil {
			tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("unable to commit transaction, cause %w", cerr)
		}
	}()
	return fn(ctx, tx)
}
