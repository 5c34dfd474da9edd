package db

import (
	"context"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"
)

// NewClickHouseConnection opens the history read model, e.g.
// clickhouse://default:@localhost:9000/srisk?dial_timeout=5s&compress=true
func NewClickHouseConnection(ctx context.Context, dsn string, opts PoolOpts) (*sqlx.DB, error) {
	return open(ctx, "clickhouse", dsn, opts, 3*time.Second)
}
