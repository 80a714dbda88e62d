package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/apiclient/internal/client/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// SQLiteKV stores credentials in the metadata table of the local database.
type SQLiteKV struct {
	db *sql.DB
}

func NewSQLiteKV(db *sql.DB) *SQLiteKV {
	return &SQLiteKV{db: db}
}

// OpenSQLite opens (creating if needed) the database at dsn and applies the
// embedded migrations.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteKV, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection avoids SQLITE_BUSY between writers.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLiteKV(db), nil
}

// RunMigrations brings the schema up to date. It is idempotent.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (r *SQLiteKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteKV) Set(ctx context.Context, values map[string][]byte) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for key, value := range values {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO metadata (key, value) VALUES (?, ?)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value
			`, key, value)
			if err != nil {
				return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set metadata: %w", err)
	}
	return nil
}

func (r *SQLiteKV) Delete(ctx context.Context, keys ...string) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		for _, key := range keys {
			if _, err := tx.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key); err != nil {
				return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete metadata: %w", err)
	}
	return nil
}

// withTx runs fn in a transaction so a credential pair is written or removed
// as one unit. It commits when fn returns nil and rolls back otherwise,
// rethrowing any panic after the rollback.
func (r *SQLiteKV) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(tx)
}

func (r *SQLiteKV) Close() error {
	return r.db.Close()
}
