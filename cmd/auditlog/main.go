// Command auditlog tails the audit topic and writes the stream to the
// structured log, with per-category levels and a consumed-events counter.
// Run it next to the server wherever a log pipeline is the audit sink.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"whaled/internal/platform/config"
	"whaled/internal/platform/kafka"
	"whaled/internal/platform/logger"
	audit "whaled/pkg/platform/audit"
	"whaled/pkg/platform/audit/consumer"
)

const consumerGroup = "whaled-auditlog"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "auditlog: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("WHALED_KAFKA_BROKERS is required")
	}
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := consumer.NewRouter(log, consumer.NewLogHandler(log, slog.LevelInfo))
	router.Register(audit.CategoryIssuance, consumer.NewLogHandler(log, slog.LevelInfo))
	router.Register(audit.CategorySecurity, consumer.NewLogHandler(log, slog.LevelWarn))
	router.Register(audit.CategoryOperations, consumer.NewLogHandler(log, slog.LevelDebug))

	c, err := kafka.NewConsumer(kafka.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
	}, consumerGroup, consumer.NewMetricsHandler(router), log)
	if err != nil {
		return err
	}
	defer c.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.Run(gctx) })

	// Expose the consumed-events counter.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: envOr("WHALED_AUDITLOG_ADDR", ":8081"), Handler: mux}
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return srv.Close()
	})

	log.Info("auditlog consuming", "topic", cfg.Kafka.Topic, "group", consumerGroup)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
