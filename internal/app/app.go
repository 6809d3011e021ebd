// Package app wires the console's dependency graph and owns its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/adminconsole/internal/audit"
	auditpg "github.com/utafrali/adminconsole/internal/audit/postgres"
	"github.com/utafrali/adminconsole/internal/auth"
	"github.com/utafrali/adminconsole/internal/config"
	"github.com/utafrali/adminconsole/internal/event"
	handler "github.com/utafrali/adminconsole/internal/handler/http"
	"github.com/utafrali/adminconsole/internal/listing"
	"github.com/utafrali/adminconsole/internal/session"
	"github.com/utafrali/adminconsole/internal/upstream"
	"github.com/utafrali/adminconsole/migrations"
	"github.com/utafrali/adminconsole/pkg/database"
	"github.com/utafrali/adminconsole/pkg/health"
	"github.com/utafrali/adminconsole/pkg/httpclient"
	pkgkafka "github.com/utafrali/adminconsole/pkg/kafka"
	"github.com/utafrali/adminconsole/pkg/tracing"
)

// listingModes assigns each resource collection its pagination strategy.
// Large, fast-moving collections page on the backend; orders additionally
// search as one backend query with local paging so admins can jump across
// the full order history. Categories, offers and contacts are small enough
// to pull once and page locally.
var listingModes = listing.ResourceOptions{
	upstream.ResourceOrders:     {Mode: listing.ModeHybrid},
	upstream.ResourceProducts:   {Mode: listing.ModeServer},
	upstream.ResourceVariants:   {Mode: listing.ModeServer},
	upstream.ResourceCustomers:  {Mode: listing.ModeServer},
	upstream.ResourceReviews:    {Mode: listing.ModeServer},
	upstream.ResourceCategories: {Mode: listing.ModeClient},
	upstream.ResourceOffers:     {Mode: listing.ModeClient},
	upstream.ResourceContacts:   {Mode: listing.ModeClient},
}

// App wires together all dependencies and runs the admin console service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	producer       *pkgkafka.Producer
	authCtrl       *auth.Controller
	listings       *listing.Registry
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "adminconsole",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// PostgreSQL holds the console's own state: the audit trail.
	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "adminconsole")

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Redis is the durable half of the session store.
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("connected to Redis",
		slog.String("host", cfg.RedisHost),
		slog.Int("port", cfg.RedisPort),
	)

	// Kafka producer for session and action events.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Session store: volatile in-process KV checked first, Redis behind it
	// for remembered sessions.
	sessions := session.NewStore(session.NewMemoryKV(), session.NewRedisKV(redisClient), cfg.SessionTTL)

	// Commerce backend client, no retries, circuit breaker in front unless
	// disabled.
	baseClient := httpclient.New(httpclient.NoRetryConfig(cfg.BackendTimeout))
	var doer upstream.Doer = baseClient
	if cfg.BackendBreakerEnabled {
		doer = httpclient.NewCircuitBreakerClient(baseClient,
			httpclient.DefaultCircuitBreakerConfig("commerce-backend"), logger)
	}
	backend, err := upstream.New(doer, cfg.BackendURL, sessions, logger)
	if err != nil {
		redisClient.Close()
		pool.Close()
		return nil, fmt.Errorf("create backend client: %w", err)
	}

	// Build the dependency graph.
	events := event.NewPublisher(producer, logger)
	auditRepo := auditpg.NewAuditRepository(pool)
	audits := audit.NewRecorder(auditRepo, events, logger)
	authCtrl := auth.NewController(backend, sessions, events, auth.Config{
		ResendCooldown: cfg.OTPResendCooldown,
		ChallengeTTL:   cfg.ChallengeTTL,
	}, logger)
	listings := listing.NewRegistry(backend, listingModes, cfg.SearchDebounce, logger)

	// A backend 401/403 tears the session down exactly once and releases its
	// listing controllers.
	backend.SetAuthFailureHook(func(ctx context.Context, sid string, status int) {
		authCtrl.ForcedLogout(ctx, sid, status)
		listings.DropSession(sid)
	})

	// Health checks. The commerce backend is non-critical: the console must
	// stay in rotation during a backend outage so admins see its error state
	// instead of a dead console.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
		return producer.Ping(ctx)
	})
	healthHandler.RegisterNonCritical("commerce-backend", func(ctx context.Context) error {
		return backend.Ping(ctx)
	})

	router := handler.NewRouter(cfg, authCtrl, backend, listings, audits, healthHandler, logger)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redisClient:    redisClient,
		producer:       producer,
		authCtrl:       authCtrl,
		listings:       listings,
		httpServer:     httpServer,
		tracerShutdown: tracerShutdown,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order: drain HTTP, flush
// spans, stop the auth and listing controllers, then close Kafka, Redis and
// PostgreSQL.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.authCtrl.Close()
	a.listings.Close()

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.redisClient.Close(); err != nil {
		a.logger.Error("redis close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
