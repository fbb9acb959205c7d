package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"herald/internal/adapter"
	"herald/internal/api"
	"herald/internal/config"
	"herald/internal/constants"
	"herald/internal/deduplication"
	"herald/internal/dispatch"
	"herald/internal/logger"
	"herald/internal/moduleresult"
	"herald/internal/organization"
	"herald/internal/publisher"
	"herald/internal/usermeta"
	"herald/pkg/bootstrap"
	"herald/pkg/cel"
	"herald/pkg/circuitbreaker"
	"herald/pkg/health"
	"herald/pkg/logging"
	"herald/pkg/metrics"
	"herald/pkg/middleware"
	"herald/pkg/migrations"
	"herald/pkg/ratelimit"
	"herald/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	mongoClient    *mongo.Client
	redis          *redis.Client
	db             *mongo.Database
	coordinator    *dispatch.Coordinator
	reporter       *adapter.SinkReporter
	callback       *dispatch.Callback
	apiLimiter     *ratelimit.Keyed
	deliveryLimit  *ratelimit.Keyed
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

// Initialize wires storage, broker and the dispatch pipeline. The HTTP
// server and task consumer are only built when serving.
func (a *App) Initialize(ctx context.Context, serving bool) error {
	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.InitBroker(constants.ServiceName, serving); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	if err := a.initDispatch(); err != nil {
		return fmt.Errorf("failed to initialize dispatch: %w", err)
	}

	if !serving {
		return nil
	}

	metrics.RegisterDispatchMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	a.initHTTPServer()
	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	mongoClient, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return err
	}
	a.mongoClient = mongoClient
	a.db = mongoClient.Database(a.Config.Database.MongoDB.Database)

	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb

	if a.Config.Database.RunMigrations {
		if err := migrations.EnsureMongoIndexes(ctx, a.db); err != nil {
			return fmt.Errorf("failed to ensure indexes: %w", err)
		}
		a.Logger.InfowCtx(ctx, "MongoDB indexes ensured")
	}
	return nil
}

func (a *App) initDispatch() error {
	var orgs organization.Repository = organization.NewRepository(a.db)
	if a.redis != nil {
		orgs = organization.NewCachedRepository(orgs, a.redis, a.Config.Organization.CacheTTL, a.Logger)
	}

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create condition evaluator: %w", err)
	}

	a.reporter = adapter.NewReporter(a.Logger, a.Producer, a.Config.Broker.Kafka.FailureTopic)
	deps := adapter.Deps{
		Config:   a.Config.Delivery,
		Logger:   a.Logger,
		Reporter: a.reporter,
	}
	if a.Config.CircuitBreaker.Enabled {
		deps.Breakers = circuitbreaker.NewRegistry(adapter.BreakerConfig(a.Config.CircuitBreaker))
	}
	if rl := a.Config.Delivery.Webhook.RateLimit; rl.Enabled {
		a.deliveryLimit = ratelimit.NewKeyed(limiterConfig(rl))
		deps.Limiter = a.deliveryLimit
	}

	a.coordinator = dispatch.NewCoordinator(dispatch.Deps{
		Registry:    publisher.NewRegistry(a.db),
		Matcher:     dispatch.NewMatcher(orgs, evaluator, a.Logger),
		Transformer: dispatch.NewTransformer(usermeta.NewSource(a.db), a.Config.Dispatch.HashSalt),
		Adapters:    deps,
		Logger:      a.Logger,
		BatchSize:   a.Config.Dispatch.BatchSize,
		Concurrency: a.Config.Dispatch.Concurrency,
		PingTimeout: a.Config.Dispatch.PingTimeout,
	})

	recreator := dispatch.NewRecreator(moduleresult.NewStore(a.db))
	a.callback = dispatch.NewCallback(a.Producer, a.Config.Broker.Kafka.TaskTopic, a.Config.Dispatch.Mode, recreator, a.coordinator, a.Logger)
	if a.redis != nil {
		a.callback.WithGuard(a.newTaskGuard())
	}
	return nil
}

func (a *App) newTaskGuard() *deduplication.Guard {
	var breaker *circuitbreaker.Wrapper
	if a.Config.CircuitBreaker.Enabled {
		cfg := adapter.BreakerConfig(a.Config.CircuitBreaker)
		cfg.Name = "redis-task-dedup"
		breaker = circuitbreaker.NewWrapper(cfg)
	}
	return deduplication.NewGuard(deduplication.NewRepository(a.redis), a.Config.Dispatch.DedupTTL, breaker, a.Logger)
}

func (a *App) initHTTPServer() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(tracing.GinMiddleware(constants.ServiceName))
	router.Use(middleware.LoggerMiddleware(a.Logger))

	if rl := a.Config.Server.RateLimit; rl.Enabled {
		a.apiLimiter = ratelimit.NewKeyed(limiterConfig(rl))
		router.Use(ratelimit.Middleware(a.apiLimiter))
	}

	checks := health.NewCheckerRegistry()
	checks.Register(health.NewMongoDBChecker(a.mongoClient))
	if a.redis != nil {
		checks.Register(health.NewRedisChecker(a.redis))
	}
	checks.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))

	api.NewHandler(a.callback, a.coordinator, checks, a.Logger).RegisterRoutes(router)

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds,
	}
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			return a.server.Shutdown(shutdownCtx)
		})
	}

	for _, limiter := range []*ratelimit.Keyed{a.apiLimiter, a.deliveryLimit} {
		if limiter == nil {
			continue
		}
		g.Go(func() error {
			limiter.RunCleanup(gCtx)
			return nil
		})
	}

	if a.Consumer != nil {
		taskTopic := a.Config.Broker.Kafka.TaskTopic
		g.Go(func() error {
			consumeCtx := logging.WithServiceName(gCtx, constants.ServiceName)
			a.Logger.InfowCtx(consumeCtx, "Starting dispatch task consumer", "topic", taskTopic)
			return a.Consumer.Consume(gCtx, taskTopic, a.callback.HandleTask)
		})
	}

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, constants.ServiceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down dispatch service")

	// Background pings and queued failure reports still need the producer,
	// which Base.Shutdown closes first.
	if a.coordinator != nil {
		a.coordinator.Wait()
	}
	if a.reporter != nil {
		flushCtx, cancel := context.WithTimeout(shutdownCtx, constants.ShutdownTimeout)
		if err := a.reporter.Close(flushCtx); err != nil {
			a.Logger.WarnwCtx(shutdownCtx, "Failure reports dropped on shutdown", "error", err)
		}
		cancel()
	}

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			serverCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(serverCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.mongoClient)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}

func limiterConfig(c config.RateLimitConfig) ratelimit.RateLimitConfig {
	return ratelimit.RateLimitConfig{
		RPS:             c.RPS,
		Burst:           c.Burst,
		CleanupInterval: time.Duration(c.CleanupInterval) * time.Second,
		MaxAge:          time.Duration(c.MaxAge) * time.Second,
	}
}
