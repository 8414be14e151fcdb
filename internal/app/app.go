package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/comfyhome/storefront/internal/auth"
	"github.com/comfyhome/storefront/internal/config"
	"github.com/comfyhome/storefront/internal/event"
	handler "github.com/comfyhome/storefront/internal/handler/http"
	"github.com/comfyhome/storefront/internal/payment"
	"github.com/comfyhome/storefront/internal/rating"
	"github.com/comfyhome/storefront/internal/repository/postgres"
	redisrepo "github.com/comfyhome/storefront/internal/repository/redis"
	"github.com/comfyhome/storefront/internal/service"
	"github.com/comfyhome/storefront/internal/storage"
	"github.com/comfyhome/storefront/internal/storage/gcs"
	"github.com/comfyhome/storefront/internal/storage/local"
	"github.com/comfyhome/storefront/migrations"
	"github.com/comfyhome/storefront/pkg/database"
	"github.com/comfyhome/storefront/pkg/health"
	pkgkafka "github.com/comfyhome/storefront/pkg/kafka"
	"github.com/comfyhome/storefront/pkg/middleware"
	"github.com/comfyhome/storefront/pkg/tracing"
)

const (
	serviceName    = "storefront"
	serviceVersion = "0.1.0"
	uploadsPrefix  = "/uploads"
)

// App wires together all dependencies and runs the storefront server.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *redis.Client
	producer       *pkgkafka.Producer
	closeStorage   func() error
	httpServer     *http.Server
	stop           chan struct{}
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger, stop: make(chan struct{})}
	ok := false
	defer func() {
		if !ok {
			a.closeResources()
		}
	}()

	// Initialize OpenTelemetry tracing.
	tracingCfg := cfg.Tracing
	tracingCfg.ServiceName = serviceName
	tracingCfg.ServiceVersion = serviceVersion
	tracingCfg.Environment = cfg.Environment
	tracerShutdown, err := tracing.InitTracer(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	// Initialize PostgreSQL connection pool.
	pool, err := database.NewPostgresPool(ctx, &cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.Postgres.Host),
		slog.Int("port", cfg.Postgres.Port),
		slog.String("database", cfg.Postgres.DBName),
	)

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Configure slow query logging.
	if threshold := cfg.SlowQueryThreshold(); threshold > 0 {
		database.SetSlowQueryLogging(threshold, logger)
	}

	// Initialize Redis for the token denylist.
	redisClient, err := database.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = redisClient
	logger.Info("connected to Redis", slog.String("addr", cfg.Redis.Addr()))

	// Initialize Kafka producer.
	producer := pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
	a.producer = producer
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Image storage.
	store, uploadDir, closeStorage, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closeStorage = closeStorage
	logger.Info("image storage initialized", slog.String("driver", cfg.StorageDriver))

	// Metrics.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		database.NewPoolStatsCollector(pool, serviceName),
	)

	// Build the dependency graph.
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTLifetime)
	authenticator := auth.NewAuthenticator(tokens, redisrepo.NewTokenDenylist(redisClient))

	userRepo := postgres.NewUserRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	reviewRepo := postgres.NewReviewRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)

	eventProducer := event.NewProducer(producer, logger)
	aggregator := rating.NewAggregator(reviewRepo, logger, rating.NewMetrics(registry))
	payments := payment.NewBreakerProvider(
		payment.NewMockProvider(cfg.PaymentClientSecret),
		payment.DefaultBreakerConfig(),
		registry,
		logger,
	)

	userService := service.NewUserService(userRepo, tokens, eventProducer, logger)
	productService := service.NewProductService(productRepo, reviewRepo, aggregator, store, eventProducer, logger)
	reviewService := service.NewReviewService(reviewRepo, productRepo, aggregator, eventProducer, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, payments, cfg.PaymentCurrency, eventProducer, logger)

	// Health checks.
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

	// HTTP router.
	router := handler.NewRouter(handler.RouterConfig{
		ServiceName:    serviceName,
		Users:          userService,
		Products:       productService,
		Reviews:        reviewService,
		Orders:         orderService,
		Authenticator:  authenticator,
		Cookie:         handler.CookieConfig{Name: cfg.CookieName, Secure: cfg.CookieSecure || !cfg.IsDevelopment()},
		Health:         healthHandler,
		Metrics:        middleware.NewHTTPMetrics(registry, serviceName),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		CORS: middleware.CORSConfig{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowCredentials: true,
		},
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		Stop:              a.stop,
		UploadDir:         uploadDir,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ok = true
	return a, nil
}

// newStorage builds the configured image store. For local storage it also
// returns the directory to serve under /uploads.
func newStorage(ctx context.Context, cfg *config.Config) (storage.Storage, string, func() error, error) {
	switch cfg.StorageDriver {
	case config.StorageGCS:
		client, err := gcs.NewClient(ctx, cfg.GCSCredentials)
		if err != nil {
			return nil, "", nil, fmt.Errorf("create gcs client: %w", err)
		}
		return gcs.New(client, cfg.GCSBucket), "", client.Close, nil
	default:
		store, err := local.New(cfg.UploadDir, uploadsPrefix)
		if err != nil {
			return nil, "", nil, fmt.Errorf("create upload dir: %w", err)
		}
		return store, store.Dir(), func() error { return nil }, nil
	}
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush spans of drained requests)
// 3. Kafka producer
// 4. Redis client and image storage
// 5. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeResources releases everything NewApp opened, in shutdown order. It
// skips components that were never initialized.
func (a *App) closeResources() error {
	var errs []error

	close(a.stop)

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.closeStorage != nil {
		if err := a.closeStorage(); err != nil {
			a.logger.Error("storage close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.pool != nil {
		a.pool.Close()
	}

	return errors.Join(errs...)
}
