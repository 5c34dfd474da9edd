package cmd

import (
	"context"
	"fmt"

	"github.com/jmehdipour/supplier-risk/internal/config"
	"github.com/jmehdipour/supplier-risk/internal/db"
	"github.com/jmehdipour/supplier-risk/internal/rowstore"
	"github.com/jmehdipour/supplier-risk/internal/rowstore/memstore"
	"github.com/jmehdipour/supplier-risk/internal/rowstore/mysqlstore"
	"github.com/jmehdipour/supplier-risk/internal/rowstore/reststore"
)

// newStoreProvider returns the lazily built privileged handle for the
// configured driver. Nothing is dialed until the first Client call.
func newStoreProvider(cfg config.Config) (*rowstore.Provider, error) {
	switch cfg.Store.Driver {
	case "rest":
		return rowstore.NewProvider(func(context.Context) (rowstore.Client, error) {
			return reststore.New(reststore.Options{
				BaseURL:        cfg.Rest.BaseURL,
				ServiceRoleKey: cfg.Rest.ServiceRoleKey,
				Timeout:        cfg.Rest.Timeout,
				FailThreshold:  cfg.Rest.Breaker.FailThreshold,
				OpenForMs:      cfg.Rest.Breaker.OpenForMs,
			})
		}), nil

	case "mysql":
		return rowstore.NewProvider(func(ctx context.Context) (rowstore.Client, error) {
			s, err := mysqlstore.Open(ctx, cfg.MySQL.DSN, db.PoolOptsFrom(cfg.MySQL), mysqlstore.Options{
				Outbox:      cfg.Store.Outbox,
				OutboxTopic: cfg.Kafka.Topic,
			})
			if err != nil {
				return nil, err
			}
			return s, nil
		}), nil

	case "memory":
		return rowstore.Static(memstore.New()), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
