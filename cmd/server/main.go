package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"chainguard/internal/custody/cipher"
	"chainguard/internal/custody/events"
	custodyhandler "chainguard/internal/custody/handler"
	custodymetrics "chainguard/internal/custody/metrics"
	"chainguard/internal/custody/models"
	"chainguard/internal/custody/service"
	"chainguard/internal/identity"
	"chainguard/internal/ledger"
	"chainguard/internal/ledger/memory"
	ledgerpg "chainguard/internal/ledger/postgres"
	ledgerredis "chainguard/internal/ledger/redis"
	"chainguard/internal/platform/config"
	"chainguard/internal/platform/httpserver"
	"chainguard/internal/platform/kafka"
	"chainguard/internal/platform/logger"
	"chainguard/internal/platform/metrics"
	"chainguard/internal/platform/postgres"
	"chainguard/internal/platform/redis"
	"chainguard/pkg/platform/circuit"
	"chainguard/pkg/platform/httputil"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/custody.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("chainguard stopped with error", "error", err)
		os.Exit(1)
	}
}

type healthCheck func(context.Context) error

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	store, health, closeStore, err := buildLedger(ctx, cfg, log)
	if err != nil {
		return err
	}
	cleanup = append(cleanup, closeStore)

	m := metrics.New()
	custodyMetrics := custodymetrics.New(m.Registry())

	emitter, closeEmitter, err := buildEmitter(ctx, cfg, log, custodyMetrics)
	if err != nil {
		return err
	}
	cleanup = append(cleanup, closeEmitter)

	var cipherOpts []cipher.Option
	if cfg.Custody.FingerprintPepper != "" {
		cipherOpts = append(cipherOpts, cipher.WithPepper([]byte(cfg.Custody.FingerprintPepper)))
	}

	custody, err := service.New(store, cipher.New(cipherOpts...),
		service.WithLogger(log),
		service.WithMetrics(custodyMetrics),
		service.WithEmitter(emitter),
		service.WithPolicy(models.Policy{AllowTransferFromCreated: cfg.Custody.AllowTransferFromCreated}),
	)
	if err != nil {
		return err
	}

	tokens := identity.NewTokenService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTAudience,
		identity.WithAllowedIssuers(cfg.Auth.AllowedIssuers...))

	router := chi.NewRouter()
	router.Handle("/metrics", m.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := health(r.Context()); err != nil {
			log.WarnContext(r.Context(), "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "ledger": cfg.Backend})
	})
	custodyhandler.New(custody, tokens, log, m).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting chainguard", "addr", cfg.Addr, "ledger", cfg.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down chainguard")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func buildLedger(ctx context.Context, cfg config.Server, log *slog.Logger) (ledger.Store, healthCheck, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, nil, err
		}
		store := ledgerpg.New(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		log.Info("ledger backend ready", "backend", cfg.Backend)
		return store, db.PingContext, func() { _ = db.Close() }, nil
	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("ledger backend ready", "backend", cfg.Backend, "namespace", cfg.Redis.Namespace)
		store := ledgerredis.New(client.Client, ledgerredis.WithNamespace(cfg.Redis.Namespace))
		return store, client.Health, func() { _ = client.Close() }, nil
	case config.BackendMemory, "":
		log.Warn("using in-memory ledger; state is lost on restart")
		return memory.New(), func(context.Context) error { return nil }, func() {}, nil
	default:
		return nil, nil, nil, errors.New("unknown ledger backend: " + cfg.Backend)
	}
}

// buildEmitter publishes to Kafka when brokers are configured, diverting to
// the log while the circuit is open. Without brokers events are only logged.
func buildEmitter(ctx context.Context, cfg config.Server, log *slog.Logger, m *custodymetrics.Metrics) (*events.Emitter, func(), error) {
	logSink := events.NewLogSink(log)
	if len(cfg.Kafka.Brokers) == 0 {
		emitter, err := events.NewEmitter(logSink, events.WithLogger(log), events.WithMetrics(m))
		return emitter, func() {}, err
	}

	client, err := kafka.NewProducer(cfg.Kafka)
	if err != nil {
		return nil, nil, err
	}
	closeClient := func() {
		if err := client.Flush(context.Background()); err != nil {
			log.Warn("flush kafka producer", "error", err)
		}
		client.Close()
	}
	if err := ensureTopics(ctx, cfg.Kafka, client); err != nil {
		log.Warn("could not ensure event topics; relying on broker auto-create", "error", err)
	}

	breaker := circuit.New("custody-events",
		circuit.WithFailureThreshold(cfg.Kafka.FailureThreshold),
		circuit.WithSuccessThreshold(cfg.Kafka.SuccessThreshold),
	)
	emitter, err := events.NewEmitter(events.NewKafkaSink(client, cfg.Kafka.TopicPrefix),
		events.WithLogger(log),
		events.WithMetrics(m),
		events.WithFallback(logSink),
		events.WithBreaker(breaker),
		events.WithProbeInterval(cfg.Kafka.ProbeInterval),
	)
	if err != nil {
		closeClient()
		return nil, nil, err
	}
	return emitter, closeClient, nil
}

func ensureTopics(ctx context.Context, cfg config.KafkaConfig, client *kgo.Client) error {
	return kafka.EnsureTopics(ctx, client, cfg.Partitions, cfg.ReplicationFactor, events.Topics(cfg.TopicPrefix)...)
}
