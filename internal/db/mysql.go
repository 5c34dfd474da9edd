package db

import (
	"context"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// NewMySQLConnection opens the supplier row store, e.g.
// srisk:srisk@tcp(127.0.0.1:3306)/srisk?parseTime=true&loc=UTC
func NewMySQLConnection(ctx context.Context, dsn string, opts PoolOpts) (*sqlx.DB, error) {
	return open(ctx, "mysql", dsn, opts, 5*time.Second)
}
