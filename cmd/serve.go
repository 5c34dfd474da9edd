package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/supplier-risk/internal/config"
	"github.com/jmehdipour/supplier-risk/internal/db"
	httpSrv "github.com/jmehdipour/supplier-risk/internal/http"
	"github.com/jmehdipour/supplier-risk/internal/logger"
	"github.com/jmehdipour/supplier-risk/internal/metrics"
	"github.com/jmehdipour/supplier-risk/internal/repository"
	"github.com/jmehdipour/supplier-risk/internal/service/suppliers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)
		defer func() { _ = logger.Log.Sync() }()

		metrics.MustRegister(prometheus.DefaultRegisterer)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		provider, err := newStoreProvider(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = provider.Close() }()

		// a store that is down at boot is reported per request, not fatal
		if err := provider.Warm(ctx); err != nil {
			logger.Log.Warn("row store not ready", zap.String("driver", cfg.Store.Driver), zap.Error(err))
		}

		var rds *redis.Client
		if cfg.Redis.Addr != "" {
			rds, err = db.NewRedisClient(ctx, cfg.Redis)
			if err != nil {
				return fmt.Errorf("redis connect: %w", err)
			}
			defer func() { _ = rds.Close() }()
		} else {
			logger.Log.Info("redis not configured, rate limiting disabled")
		}

		var history repository.HistoryRepository
		if cfg.ClickHouse.DSN != "" {
			chDB, err := db.NewClickHouseConnection(ctx, cfg.ClickHouse.DSN, db.PoolOptsFrom(cfg.ClickHouse))
			if err != nil {
				return fmt.Errorf("clickhouse connect: %w", err)
			}
			defer func() { _ = chDB.Close() }()
			history = repository.NewHistoryRepository(chDB)
		}

		svc := suppliers.New(provider, cfg.Store.Table)
		server := httpSrv.NewServer(cfg, svc, history, rds)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.Error("http server exited", zap.Error(err))
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)

		return nil
	},
}
