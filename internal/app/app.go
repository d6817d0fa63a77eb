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
	goredis "github.com/redis/go-redis/v9"

	"github.com/Mahmoudramadan21/Bookify/internal/auth"
	"github.com/Mahmoudramadan21/Bookify/internal/config"
	"github.com/Mahmoudramadan21/Bookify/internal/event"
	handler "github.com/Mahmoudramadan21/Bookify/internal/handler/http"
	"github.com/Mahmoudramadan21/Bookify/internal/repository"
	"github.com/Mahmoudramadan21/Bookify/internal/repository/postgres"
	redisrepo "github.com/Mahmoudramadan21/Bookify/internal/repository/redis"
	"github.com/Mahmoudramadan21/Bookify/internal/service"
	"github.com/Mahmoudramadan21/Bookify/migrations"
	"github.com/Mahmoudramadan21/Bookify/pkg/breaker"
	"github.com/Mahmoudramadan21/Bookify/pkg/database"
	"github.com/Mahmoudramadan21/Bookify/pkg/health"
	pkgkafka "github.com/Mahmoudramadan21/Bookify/pkg/kafka"
	"github.com/Mahmoudramadan21/Bookify/pkg/middleware"
	"github.com/Mahmoudramadan21/Bookify/pkg/tracing"
)

const (
	serviceName    = "bookify"
	serviceVersion = "0.1.0"
	consumerGroup  = "bookify-ranking-invalidator"
)

// App wires together all dependencies and runs the Bookify API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	redis          *goredis.Client
	producer       *pkgkafka.Producer
	consumer       *pkgkafka.Consumer
	deadLetters    *pkgkafka.DeadLetters
	httpServer     *http.Server
	tracerShutdown tracing.Shutdown
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	otelCfg := cfg.OTEL
	otelCfg.ServiceName = serviceName
	otelCfg.Version = serviceVersion
	otelCfg.Environment = cfg.Environment
	tracerShutdown, err := tracing.Init(ctx, otelCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	a := &App{cfg: cfg, logger: logger, tracerShutdown: tracerShutdown}

	// Initialize PostgreSQL connection pool.
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.Postgres.Host),
		slog.Int("port", cfg.Postgres.Port),
		slog.String("database", cfg.Postgres.DBName),
	)
	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, serviceName); err != nil {
		logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), logger)

	// Redis backs the ranking cache and consumer deduplication. Without it
	// rankings are served straight from PostgreSQL.
	var cache repository.RankingCache
	var dedup pkgkafka.IdempotencyStore = pkgkafka.NewMemoryIdempotencyStore(cfg.EventDedupTTL)
	rdb, err := database.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, ranking cache disabled", slog.String("error", err.Error()))
	} else {
		a.redis = rdb
		cb := breaker.New(breaker.DefaultConfig("redis-ranking"), logger)
		cache = redisrepo.NewRankingCache(rdb, cfg.RankingCacheTTL, cb)
		dedup = pkgkafka.NewRedisIdempotencyStore(rdb, consumerGroup, cfg.EventDedupTTL)
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis.Addr))
	}

	// Events. With Kafka off, invalidation runs in-process on publish.
	var publisher event.Publisher
	var invalidator *event.RankingInvalidator
	if cache != nil {
		invalidator = event.NewRankingInvalidator(cache, logger)
	}
	if cfg.Kafka.Enabled {
		a.producer = pkgkafka.NewProducer(cfg.Kafka, logger)
		publisher = a.producer
		if err := a.producer.Ping(ctx); err != nil {
			logger.Warn("kafka ping failed, continuing in degraded mode", slog.String("error", err.Error()))
		} else {
			logger.Info("kafka producer initialized", slog.Any("brokers", cfg.Kafka.Brokers))
		}

		if invalidator != nil {
			if cfg.Kafka.EnableDLQ {
				a.deadLetters = pkgkafka.NewDeadLetters(cfg.Kafka.Brokers)
			}
			a.consumer = pkgkafka.NewConsumer(pkgkafka.ConsumerConfig{
				Brokers: cfg.Kafka.Brokers,
				GroupID: consumerGroup,
				Topics:  invalidator.Topics(),
			}, pkgkafka.Idempotent(dedup, invalidator.Handle, logger), a.deadLetters, logger)
		}
	} else if invalidator != nil {
		publisher = event.LocalPublisher{Handler: invalidator.Handle}
		logger.Info("kafka disabled, ranking invalidation runs in-process")
	}

	// Build the dependency graph.
	books := postgres.NewBookRepository(pool)
	reviews := postgres.NewReviewRepository(pool)
	orders := postgres.NewOrderRepository(pool)
	users := postgres.NewUserRepository(pool)

	producer := event.NewProducer(publisher, logger)
	jwt := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiry)
	userService := service.NewUserService(users, jwt, logger)

	svcs := handler.Services{
		Catalog:     service.NewCatalogService(books, cache, producer, logger),
		Reviews:     service.NewReviewService(reviews, books, users, producer, logger),
		Orders:      service.NewOrderService(orders, producer, logger),
		Fulfillment: service.NewFulfillmentService(orders, producer, logger),
		Users:       userService,
	}

	if cfg.AdminEmail != "" {
		admin, err := userService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			a.closeStores()
			return nil, fmt.Errorf("ensure admin: %w", err)
		}
		logger.Info("bootstrap admin ensured", slog.String("user_id", admin.ID))
	}

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if a.redis != nil {
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return a.redis.Ping(ctx).Err()
		})
	}
	if a.producer != nil {
		healthHandler.RegisterNonCritical("kafka", func(ctx context.Context) error {
			return a.producer.Ping(ctx)
		})
	}

	// HTTP router.
	router := handler.NewRouter(svcs, jwt.Authenticator(), healthHandler, handler.RouterConfig{
		CORS:           middleware.CORSConfig{AllowedOrigins: cfg.CORSOrigins},
		RequestTimeout: cfg.RequestTimeout,
		RankingMaxAge:  cfg.RankingCacheMaxAge,
		AuthRateLimit: middleware.RateLimitConfig{
			RPS:   cfg.AuthRateLimitRPS,
			Burst: cfg.AuthRateLimitBurst,
		},
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// Run starts the HTTP server and the event consumer, then blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Run(ctx); err != nil {
				errCh <- fmt.Errorf("ranking invalidation consumer: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("component failed, shutting down", slog.String("error", runErr.Error()))
	}

	return errors.Join(runErr, a.Shutdown())
}

// Shutdown gracefully stops all components in order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush spans from drained requests)
// 3. Kafka consumer and dead-letter writer
// 4. Kafka producer
// 5. Redis client and PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
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

	if a.consumer != nil {
		if err := a.consumer.Close(); err != nil {
			a.logger.Error("kafka consumer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.deadLetters != nil {
		if err := a.deadLetters.Close(); err != nil {
			a.logger.Error("dead-letter writer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.closeStores()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

func (a *App) closeStores() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
