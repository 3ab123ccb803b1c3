package main

import (
	"go.uber.org/zap"

	"github.com/mthydro/stagedata/internal/logging"
	"github.com/mthydro/stagedata/stage"
)

func newLogger() (*zap.Logger, error) {
	level := "warn"
	if flagVerbose {
		level = "debug"
	}
	return logging.New(level, "console", "stagectl")
}

func newStageClient(logger *zap.Logger) *stage.Client {
	opts := []stage.ClientOption{stage.WithLogger(logger)}
	if flagBaseURL != "" {
		opts = append(opts, stage.WithBaseURL(flagBaseURL))
	}
	return stage.NewClient(opts...)
}
