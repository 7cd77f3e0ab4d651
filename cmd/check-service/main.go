package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mlgrader/internal/check"
	"mlgrader/internal/check/sandbox"
	"mlgrader/internal/common/db"
	"mlgrader/internal/leaderboard"
	"mlgrader/internal/notify"
	"mlgrader/internal/store"
	"mlgrader/pkg/utils/logger"

	"go.uber.org/zap"
)

const defaultConfigPath = "configs/check_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	sqliteDB, err := db.NewSQLiteWithConfig(&appCfg.Database)
	if err != nil {
		logger.Error(context.Background(), "init database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = sqliteDB.Close()
	}()

	jobStore, err := store.NewStore(context.Background(), sqliteDB, store.RankOrder(appCfg.Ranking.Order))
	if err != nil {
		logger.Error(context.Background(), "init store failed", zap.Error(err))
		return
	}

	notifier, err := buildNotifier(appCfg.Notifier)
	if err != nil {
		logger.Error(context.Background(), "init notifier failed", zap.Error(err))
		return
	}

	publisher := leaderboard.NewWordPressPublisher(appCfg.Leaderboard.WordPress)
	builder, err := leaderboard.NewBuilder(jobStore, publisher, appCfg.Leaderboard.StylePath)
	if err != nil {
		logger.Error(context.Background(), "init leaderboard builder failed", zap.Error(err))
		return
	}

	workspace := check.NewWorkspace(
		appCfg.Workspace.SolutionsRoot,
		appCfg.Workspace.EvaluationRoot,
		appCfg.Workspace.HarnessPath,
	)

	worker := check.NewWorker(jobStore, sandbox.NewExecRunner(), workspace, notifier, builder, check.Config{
		IdlePollInterval: appCfg.Worker.IdlePollInterval,
		RunTimeout:       appCfg.Worker.RunTimeout,
		OutputMaxBytes:   appCfg.Worker.OutputMaxBytes,
		DatabasePath:     appCfg.Database.Path,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := worker.Run(ctx); err != nil {
		logger.Error(context.Background(), "evaluation worker stopped", zap.Error(err))
		return
	}
	logger.Info(context.Background(), "evaluation worker shut down")
}

func buildNotifier(cfg NotifierConfig) (notify.Notifier, error) {
	switch cfg.Mode {
	case "webhook":
		return notify.NewWebhookNotifier(cfg.Webhook)
	case "console":
		return notify.NewConsoleNotifier(), nil
	default:
		return nil, fmt.Errorf("unknown notifier mode %q", cfg.Mode)
	}
}
