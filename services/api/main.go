// Command api serves the archived StAGE site and daily-value records over
// HTTP.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/mthydro/stagedata/internal/logging"
	"github.com/mthydro/stagedata/services/api/config"
	"github.com/mthydro/stagedata/services/api/db"
	apihttp "github.com/mthydro/stagedata/services/api/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "api")
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer store.Close()

	server := apihttp.New(cfg, store, logger)
	logger.Info("api listening", zap.String("addr", cfg.ListenAddr()))
	if err := server.Run(ctx); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
