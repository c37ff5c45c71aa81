package storage

import (
	"context"
	"time"
)

// Statement is a single parameterized SQL statement.
type Statement struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

// Row is one result row keyed by column name.
type Row = map[string]any

// ExecOptions apply to one statement. A zero Timeout means none.
type ExecOptions struct {
	Timeout time.Duration
}

// Context derives the statement context from ctx.
func (o *ExecOptions) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	if o == nil || o.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.Timeout)
}

// Querier runs read statements. Args bind to placeholders in order.
type Querier interface {
	Query(ctx context.Context, st Statement, opts *ExecOptions) ([]Row, error)
}

// StatementRunner applies statements atomically.
type StatementRunner interface {
	Run(ctx context.Context, stmts []Statement) error
}
