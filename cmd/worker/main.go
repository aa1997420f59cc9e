package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/iliyamo/carwash-dashboard/internal/config"
	"github.com/iliyamo/carwash-dashboard/internal/database"
	"github.com/iliyamo/carwash-dashboard/internal/jobs"
	"github.com/iliyamo/carwash-dashboard/internal/logging"
	"github.com/iliyamo/carwash-dashboard/internal/queue"
	"github.com/iliyamo/carwash-dashboard/internal/repository"
)

// The worker consumes booking events into the notification log and runs
// the maintenance jobs.  It exits when SIGINT or SIGTERM arrives.
func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("production")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.Env).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("connect mysql")
	}
	defer db.Close()

	scheduler := jobs.NewScheduler(repository.NewBookingRepo(db), repository.NewTokenRepo(db), log)
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("scheduler start failed")
	}
	defer scheduler.Stop()

	consumer := queue.NewConsumer(cfg.AMQPURL, cfg.NotificationLog, log)
	log.Info().Msg("worker started")
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("consumer stopped")
	}
	log.Info().Msg("worker exited")
}
