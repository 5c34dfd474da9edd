package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmehdipour/supplier-risk/internal/config"
	"github.com/jmehdipour/supplier-risk/internal/db"
	"github.com/jmehdipour/supplier-risk/internal/kafka"
	"github.com/jmehdipour/supplier-risk/internal/logger"
	"github.com/jmehdipour/supplier-risk/internal/metrics"
	"github.com/jmehdipour/supplier-risk/internal/repository"
	"github.com/jmehdipour/supplier-risk/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Project supplier change events from Kafka into ClickHouse",
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)
	defer func() { _ = logger.Log.Sync() }()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3) ClickHouse read model
	chDB, err := db.NewClickHouseConnection(ctx, cfg.ClickHouse.DSN, db.PoolOptsFrom(cfg.ClickHouse))
	if err != nil {
		return fmt.Errorf("clickhouse connect: %w", err)
	}
	defer chDB.Close()

	// 4) kafka consumer
	kcfg := kafka.ConfigFrom(cfg.Kafka)
	if kcfg.GroupID == "" {
		kcfg.GroupID = "srisk-history"
	}
	consumer := kafka.NewConsumer(kcfg)
	defer consumer.Close()

	w := worker.NewHistoryProjector(consumer, repository.NewHistoryRepository(chDB))

	// tune knobs
	if cfg.History.BatchSize > 0 {
		w.BatchSize = cfg.History.BatchSize
	}
	if cfg.History.BatchWait > 0 {
		w.BatchWait = cfg.History.BatchWait
	}

	logger.Log.Info("history projector started",
		zap.String("topic", kcfg.Topic),
		zap.String("group", kcfg.GroupID),
		zap.Int("batch_size", w.BatchSize),
		zap.Duration("batch_wait", w.BatchWait),
	)

	return w.Run(ctx)
}
