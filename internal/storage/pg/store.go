package pg

import (
	"github.com/DjordjeVuckovic/facetq/internal/storage/sqlstore"
)

// NewStore builds the SQL store on the pool. The documents table comes from
// db/migrations.
func NewStore(pool *ConnectionPool, opts ...sqlstore.Option) *sqlstore.Store {
	exec := NewExecutor(pool)
	return sqlstore.NewStore(sqlstore.Postgres{}, exec, exec, opts...)
}
