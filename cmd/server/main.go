package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/cinema-seat-booking/internal/config"
	"github.com/iliyamo/cinema-seat-booking/internal/logging"
	"github.com/iliyamo/cinema-seat-booking/internal/service"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, err := service.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("starting service")
	}
	if err := svc.Run(ctx); err != nil {
		logger.WithError(err).Fatal("service stopped")
	}
}
