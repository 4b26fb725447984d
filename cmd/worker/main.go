package main

import (
	"context"
	"hotel/config"
	"hotel/di"
	"hotel/shared/logger"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Get()

	logger.InitLogger()
	logger.Configure(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("Starting booking worker.")

	if err := di.InitializeWorker().Run(ctx); err != nil {
		log.Error().Err(err).Msg("Booking worker failed")
		stop()
		os.Exit(1)
	}

	log.Info().Msg("Booking worker stopped.")
}
