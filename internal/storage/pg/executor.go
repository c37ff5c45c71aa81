package pg

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Executor runs document statements on a pgx pool.
type Executor struct {
	db *pgxpool.Pool
}

func NewExecutor(pool *ConnectionPool) *Executor {
	return &Executor{db: pool.Pool()}
}

func (e *Executor) Query(ctx context.Context, st storage.Statement, opts *storage.ExecOptions) ([]storage.Row, error) {
	queryCtx, cancel := opts.Context(ctx)
	defer cancel()

	rows, err := e.db.Query(queryCtx, st.SQL, st.Args...)
	if err != nil {
		slog.Error("Query failed", "error", err)
		return nil, err
	}
	// RowToMap keys by column name and closes rows
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Run sends stmts as one batch inside a transaction.
func (e *Executor) Run(ctx context.Context, stmts []storage.Statement) error {
	if len(stmts) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, e.db, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, st := range stmts {
			batch.Queue(st.SQL, st.Args...)
		}
		br := tx.SendBatch(ctx, batch)
		for i := range stmts {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("statement %d: %w", i, err)
			}
		}
		return br.Close()
	})
}

var (
	_ storage.Querier         = (*Executor)(nil)
	_ storage.StatementRunner = (*Executor)(nil)
)
