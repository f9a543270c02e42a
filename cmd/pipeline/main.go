package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/threatmap/internal/util"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"
)

func main() {
	util.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Shutdown signal received, progress is saved")
		} else {
			logger.Error("Pipeline failed", "err", err)
		}
		os.Exit(1)
	}
}
