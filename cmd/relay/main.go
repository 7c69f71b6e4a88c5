// Package main runs the outbox relay: it polls PENDING outbox events and
// publishes one task per event to the downstream queue.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"commandrelay/config"
	"commandrelay/db"
	"commandrelay/inbox"
	"commandrelay/logger"
	"commandrelay/outbox"
	"commandrelay/queue"
	"commandrelay/relay"
)

func main() {
	once := flag.Bool("once", false, "process a single batch and exit")
	interval := flag.Duration("interval", 0, "poll interval override (e.g. 30s)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.Setup(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("bootstrap database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Error("dial amqp", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		log.Error("open amqp channel", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(cfg.Exchange, "direct", true, false, false, false, nil); err != nil {
		log.Error("declare exchange", slog.String("error", err.Error()))
		os.Exit(1)
	}

	mapper := outbox.NewMapper()

	publisher, err := queue.NewPublisher(ch, cfg.Exchange, mapper, log)
	if err != nil {
		log.Error("invalid routing configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	processor := relay.NewProcessor(
		outbox.NewRepository(pool),
		inbox.NewRepository(pool),
		publisher,
		mapper,
		log,
	)

	log.Info("relay configured",
		slog.Int("batch_size", cfg.BatchSize),
		slog.Int("max_retries", cfg.MaxRetries),
		slog.String("exchange", cfg.Exchange))

	if *once {
		summary, err := processor.ProcessBatch(ctx, cfg.BatchSize)
		if err != nil {
			log.Error("batch failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info("batch complete",
			slog.Int("processed", summary.Processed),
			slog.Int("sent", summary.Sent),
			slog.Int("failed", summary.Failed),
			slog.Int("skipped", summary.Skipped))
		return
	}

	pollInterval := cfg.PollInterval
	if *interval > 0 {
		pollInterval = *interval
	}
	if pollInterval < time.Second {
		log.Error("poll interval must be at least one second",
			slog.Duration("poll_interval", pollInterval))
		os.Exit(1)
	}

	relay.NewRunner(processor, pollInterval, cfg.BatchSize, log).Run(ctx)
}
