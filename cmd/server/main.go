// Command server runs the agent registry and its settlement-driven
// reputation engine.
//
// With DATABASE_URL set the server persists to PostgreSQL and, when
// KAFKA_BROKERS is also set, relays reputation events from the transactional
// outbox to Kafka. Without it the server runs entirely in memory for local
// development.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"repute/internal/agent"
	agenthandler "repute/internal/agent/handler"
	"repute/internal/events"
	httpapi "repute/internal/http"
	"repute/internal/platform/config"
	"repute/internal/platform/httpserver"
	"repute/internal/platform/logger"
	"repute/internal/platform/metrics"
	platformredis "repute/internal/platform/redis"
	"repute/internal/reputation"
	reputationhandler "repute/internal/reputation/handler"
	"repute/internal/settlement"
	"repute/internal/webhook"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	if cfg.WebhookSecret == "" {
		log.Error("WEBHOOK_SECRET is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthChecks := map[string]httpapi.HealthCheck{}

	// Storage: PostgreSQL when configured, in-memory otherwise.
	var store agent.Store
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("failed to ping database", "error", err)
			os.Exit(1)
		}

		pgOpts := []agent.PostgresOption{}
		if len(cfg.KafkaBrokers) > 0 {
			pgOpts = append(pgOpts, agent.WithOutbox())
		}
		store = agent.NewPostgres(db, pgOpts...)
		healthChecks["postgres"] = db.PingContext
		log.Info("using postgres store")
	} else {
		store = agent.NewMemoryStore()
		log.Info("using in-memory store")
	}

	// Settlement confirmation gateway, with the optional Redis cache for
	// already-finalized references.
	gatewayOpts := []settlement.Option{
		settlement.WithMetrics(m),
		settlement.WithTimeout(cfg.LedgerTimeout),
		settlement.WithMaxRetries(cfg.LedgerMaxRetries),
	}
	if cfg.RedisURL != "" {
		rdb, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		gatewayOpts = append(gatewayOpts, settlement.WithCache(settlement.NewRedisCache(rdb.Client)))
		healthChecks["redis"] = rdb.Health
		log.Info("settlement cache enabled")
	}
	ledgerClient := settlement.NewRPCClient(cfg.LedgerRPCURL, &http.Client{Timeout: cfg.LedgerTimeout})
	gateway := settlement.NewGateway(ledgerClient, log, gatewayOpts...)

	// Services.
	agentOpts := []agent.ServiceOption{
		agent.WithLogger(log),
		agent.WithMetrics(m),
	}
	if cfg.PinServiceURL != "" {
		agentOpts = append(agentOpts, agent.WithPinner(agent.NewHTTPPinner(cfg.PinServiceURL, nil)))
	}
	if cfg.AttestServiceURL != "" {
		agentOpts = append(agentOpts, agent.WithAttester(agent.NewHTTPAttester(cfg.AttestServiceURL, nil)))
	}
	agentService := agent.NewService(store, agentOpts...)

	reputationService := reputation.NewService(store, gateway,
		reputation.WithLogger(log),
		reputation.WithMetrics(m),
	)

	verifier := webhook.New(cfg.WebhookSecret)

	router := httpapi.NewRouter(
		httpapi.Options{Logger: log, Metrics: m, HealthChecks: healthChecks},
		agenthandler.New(agentService, log),
		reputationhandler.New(reputationService, verifier, log),
	)

	// Outbox relay, only meaningful with both postgres and kafka.
	if db != nil && len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Error("failed to start kafka publisher", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()

		relay := events.NewRelay(events.NewPostgresOutbox(db), publisher, events.WithLogger(log))
		go func() {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("outbox relay stopped", "error", err)
			}
		}()
		log.Info("outbox relay started", "topic", cfg.KafkaTopic)
	}

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
