package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/sudo-init-do/staybook/internal/alerts"
	"github.com/sudo-init-do/staybook/internal/app"
	"github.com/sudo-init-do/staybook/internal/config"
	"github.com/sudo-init-do/staybook/internal/logger"
)

// worker consumes the emails queue and sends payment confirmations.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init("staybook-worker", cfg.Env)

	if err := app.RequireSharedStore(cfg); err != nil {
		log.Fatal().Err(err).Msg("memory mode has no email delivery")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer closeStore()

	mailer, err := alerts.NewMailer(cfg.Mail)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure mailer")
	}

	worker := alerts.NewWorker(alerts.NewConfirmationSender(st, mailer, cfg.Mail.From))
	srv := alerts.NewServer(app.AsynqRedis(cfg.Redis), cfg.Queue.Concurrency)

	log.Info().Str("redis", cfg.Redis.Addr).Str("mail_provider", cfg.Mail.Provider).Msg("worker starting")
	if err := srv.Start(worker.Mux()); err != nil {
		log.Fatal().Err(err).Msg("worker failed to start")
	}

	<-ctx.Done()
	srv.Shutdown()
	log.Info().Msg("worker stopped")
}
