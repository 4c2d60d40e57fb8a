// Command server runs the whale token service: the HTTP API, the audit
// outbox relay, and the transfer watcher. Business logic lives in the
// internal service packages; main only wires dependencies.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"whaled/internal/minttoken"
	"whaled/internal/platform/config"
	"whaled/internal/platform/httpserver"
	"whaled/internal/platform/kafka"
	"whaled/internal/platform/logger"
	platformredis "whaled/internal/platform/redis"
	registryhandler "whaled/internal/registry/handler"
	registrymetrics "whaled/internal/registry/metrics"
	registryservice "whaled/internal/registry/service"
	registrystore "whaled/internal/registry/store"
	httptransport "whaled/internal/transport/http"
	watcherhandler "whaled/internal/watcher/handler"
	watchermetrics "whaled/internal/watcher/metrics"
	watcherservice "whaled/internal/watcher/service"
	watchersource "whaled/internal/watcher/source"
	"whaled/pkg/platform/audit"
	auditpublisher "whaled/pkg/platform/audit/publisher"
	auditmemory "whaled/pkg/platform/audit/store/memory"
	auditpostgres "whaled/pkg/platform/audit/store/postgres"
	auditworker "whaled/pkg/platform/audit/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "whaled: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Ledger and audit stores. Postgres when configured, in-memory otherwise.
	var (
		ledger     registryservice.Ledger
		auditStore audit.Store
		outbox     *auditpostgres.Store
	)
	if cfg.Postgres.DSN != "" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		pgLedger := registrystore.NewPostgres(pool)
		if err := pgLedger.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure ledger schema: %w", err)
		}
		ledger = pgLedger

		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("open audit db: %w", err)
		}
		defer db.Close()

		outbox = auditpostgres.New(db)
		if err := outbox.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure audit schema: %w", err)
		}
		auditStore = outbox
		log.Info("using postgres stores")
	} else {
		ledger = registrystore.NewMemory()
		auditStore = auditmemory.NewInMemoryStore()
		log.Warn("no postgres DSN configured, using in-memory stores")
	}

	// Redis backs the token read cache and watcher dedupe when available.
	var dedupe watcherservice.Deduper = watcherservice.NewMemoryDeduper()
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		ledger = registrystore.NewCachedLedger(ledger, redisClient.Client, cfg.Redis.TokenTTL)
		dedupe = watcherservice.NewRedisDeduper(redisClient.Client, cfg.Redis.DedupeTTL)
		log.Info("redis cache enabled")
	}

	// The buffer only applies to operations events; issuance and security
	// events write through to the outbox synchronously.
	publisher := auditpublisher.NewPublisher(auditStore,
		auditpublisher.WithLogger(log),
		auditpublisher.WithAsyncBuffer(256),
	)
	defer publisher.Close()

	registry := registryservice.New(ledger,
		registryservice.WithLogger(log),
		registryservice.WithMetrics(registrymetrics.New()),
		registryservice.WithAuditPublisher(publisher),
	)
	tokens := minttoken.NewService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer)

	g, gctx := errgroup.WithContext(ctx)

	// Audit relay: outbox -> Kafka. Needs both postgres and brokers.
	if outbox != nil && len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(kafka.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		})
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer producer.Close()

		if err := producer.EnsureTopic(ctx, 3, 1); err != nil {
			return fmt.Errorf("ensure audit topic: %w", err)
		}

		relay := auditworker.NewRelay(outbox, producer, log)
		g.Go(func() error { return relay.Run(gctx) })
		log.Info("audit relay started", "topic", cfg.Kafka.Topic)
	}

	// Transfer watcher, enabled only when an RPC endpoint is configured.
	var watchHandler *watcherhandler.Handler
	if cfg.Watcher.RPCURL != "" {
		source, err := watchersource.NewEthLogSource(cfg.Watcher.RPCURL,
			common.HexToAddress(cfg.Watcher.TokenAddress))
		if err != nil {
			return fmt.Errorf("connect eth rpc: %w", err)
		}
		defer source.Close()

		watch := watcherservice.New(source, registry, dedupe,
			watcherservice.Config{
				PollInterval: cfg.Watcher.PollInterval,
				PollLimit:    cfg.Watcher.PollLimit,
				Threshold:    cfg.Watcher.Threshold,
			},
			watcherservice.WithLogger(log),
			watcherservice.WithMetrics(watchermetrics.New()),
			watcherservice.WithAuditPublisher(publisher),
		)
		watchHandler = watcherhandler.New(watch, log, cfg.Auth.AdminToken, cfg.Auth.AdminTokenHash)
		log.Info("transfer watcher enabled",
			"token", cfg.Watcher.TokenAddress,
			"threshold", cfg.Watcher.Threshold.String(),
		)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Registry:       registryhandler.New(registry, log, tokens),
		Watcher:        watchHandler,
		Audit:          publisher,
		Logger:         log,
		AdminToken:     cfg.Auth.AdminToken,
		AdminTokenHash: cfg.Auth.AdminTokenHash,
	})

	srv := httpserver.New(cfg.Server.Addr, router)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}
