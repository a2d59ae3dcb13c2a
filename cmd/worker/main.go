package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"drravalement/site/internal/cache"
	"drravalement/site/internal/config"
	"drravalement/site/internal/database"
	"drravalement/site/internal/log"
	"drravalement/site/internal/metrics"
	"drravalement/site/internal/notify"
	"drravalement/site/internal/queue"
	"drravalement/site/internal/repository"
	"drravalement/site/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Log)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	dispatcher := notify.FromConfig(cfg.Notify, client, m, logger)

	processor := tasks.NewProcessor(
		dispatcher,
		repository.NewSessionRepository(dbPool),
		tasks.Office{Email: cfg.Notify.OfficeEmail, Phone: cfg.Notify.OfficePhone},
		m,
		logger,
	)
	consumer := queue.NewConsumer(
		client,
		cfg.Redis.Stream,
		cfg.Redis.Group,
		cfg.Redis.Consumer,
		cfg.Jobs.ClaimInterval,
		logger,
		processor,
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("consumer stopped unexpectedly")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("consumer did not stop in time")
	}
	logger.Info().Msg("worker exited cleanly")
}
