// Package sqlite runs the SQL store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/DjordjeVuckovic/facetq/internal/storage/sqlstore"
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

type Config struct {
	// Path of the database file, ":memory:" for a private in-memory database.
	Path string
}

// DB wraps the database handle and implements the executor and statement
// runner the SQL store needs.
type DB struct {
	db *sql.DB
}

// Open connects and creates the documents table when missing.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dsn := cfg.Path
	if dsn == "" {
		dsn = ":memory:"
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn += sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a second connection to ":memory:" would see an empty database
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqlstore.SQLite{}.DDL()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	slog.Info("SQLite storage ready", "path", cfg.Path)
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Healthy(ctx context.Context) bool {
	return d.db.PingContext(ctx) == nil
}

// NewStore builds the SQL store over d.
func NewStore(d *DB, opts ...sqlstore.Option) *sqlstore.Store {
	return sqlstore.NewStore(sqlstore.SQLite{}, d, d, opts...)
}

func (d *DB) Query(ctx context.Context, st storage.Statement, opts *storage.ExecOptions) ([]storage.Row, error) {
	queryCtx, cancel := opts.Context(ctx)
	defer cancel()

	rows, err := d.db.QueryContext(queryCtx, st.SQL, st.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []storage.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(storage.Row, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Run applies stmts in one transaction.
func (d *DB) Run(ctx context.Context, stmts []storage.Statement) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for _, st := range stmts {
		if _, err := tx.ExecContext(ctx, st.SQL, st.Args...); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

var (
	_ storage.Querier         = (*DB)(nil)
	_ storage.StatementRunner = (*DB)(nil)
)
