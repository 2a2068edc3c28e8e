package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq" // PostgreSQL driver

	"lookout/internal/broker"
	"lookout/internal/classifier"
	"lookout/internal/config"
	"lookout/internal/constants"
	"lookout/internal/dedup"
	"lookout/internal/ledger"
	"lookout/internal/logger"
	"lookout/internal/notifier"
	"lookout/internal/ops"
	"lookout/internal/pipeline"
	"lookout/internal/source"
	"lookout/pkg/bootstrap"
	"lookout/pkg/health"
	"lookout/pkg/metrics"
	"lookout/pkg/middleware"
	"lookout/pkg/migrations"
	"lookout/pkg/ratelimit"
	"lookout/pkg/tracing"
)

type App struct {
	config      *config.Config
	logger      logger.Logger
	base        *bootstrap.Base
	dbConnector *bootstrap.DatabaseConnector

	db          *sql.DB
	redisClient *redis.Client
	mongoClient *mongo.Client

	ledger   ledger.Ledger
	dedupSvc *dedup.Service
	filter   *pipeline.Filter
	runner   *pipeline.Runner

	kafkaSource    *source.KafkaSource
	sourceConsumer broker.Consumer
	configConsumer broker.Consumer
	configHandler  *pipeline.ConfigUpdateHandler

	server         *http.Server
	router         *gin.Engine
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		config:      cfg,
		logger:      log,
		base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.config.Tracing, "lookout")
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.base.InitBroker("lookout", false); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initPipeline(ctx); err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	registerMetrics()

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	a.initServer()

	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db

	if a.db != nil && a.config.Database.RunMigrations {
		if err := migrations.RunPostgres(a.db, a.config.Database.MigrationsPath); err != nil {
			return err
		}
		a.logger.InfowCtx(ctx, "PostgreSQL migrations applied")
	}

	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redisClient = rdb

	mongoClient, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		return err
	}
	a.mongoClient = mongoClient

	if a.mongoClient != nil && a.config.Ledger.Backend == constants.LedgerBackendMongoDB {
		if err := migrations.EnsureLedgerIndexes(ctx, a.mongoDatabase()); err != nil {
			return err
		}
		a.logger.InfowCtx(ctx, "MongoDB ledger indexes ensured")
	}

	return nil
}

func (a *App) mongoDatabase() *mongo.Database {
	if a.mongoClient == nil {
		return nil
	}
	dbName := a.config.Database.MongoDB.Database
	if dbName == "" {
		dbName = constants.DefaultMongoDBName
	}
	return a.mongoClient.Database(dbName)
}

func (a *App) initPipeline(ctx context.Context) error {
	led, err := ledger.New(a.config.Ledger, a.config.CircuitBreaker, ledger.Backends{
		Postgres: a.db,
		Redis:    a.redisClient,
		Mongo:    a.mongoDatabase(),
	})
	if err != nil {
		return err
	}
	a.ledger = led

	cache := dedup.NewSeenCache(a.config.Cache.Capacity, a.config.Cache.LowWater)
	a.dedupSvc = dedup.NewService(cache, led, a.logger)

	filter, err := pipeline.NewFilter(a.config.Filter, a.logger)
	if err != nil {
		return err
	}
	a.filter = filter

	cls, err := classifier.New(a.config.Classifier)
	if err != nil {
		return err
	}

	not, err := notifier.New(a.config.Notifier, a.config.Broker, a.base.Producer)
	if err != nil {
		return err
	}

	src, err := a.initSource()
	if err != nil {
		return err
	}

	orch := pipeline.NewOrchestrator(filter, a.dedupSvc, cls, led, not, a.config.Classifier.Timeout, a.logger)
	a.runner = pipeline.NewRunner(src, orch, a.config.Pipeline.PollInterval, a.config.Pipeline.BatchTimeout, a.logger)

	if a.config.Broker.Enabled && a.config.Broker.Kafka.ConfigUpdateTopic != "" {
		consumer, err := broker.NewConsumer(a.config.Broker, a.logger)
		if err != nil {
			return fmt.Errorf("failed to create config update consumer: %w", err)
		}
		consumer.SetServiceName("lookout-config")
		a.configConsumer = consumer
		a.configHandler = pipeline.NewConfigUpdateHandler(filter, a.logger)
	}

	return nil
}

func (a *App) initSource() (source.Source, error) {
	switch a.config.Source.Type {
	case constants.SourceTypeAPI:
		return source.NewHTTPSource(a.config.Source.API, a.logger), nil
	case constants.SourceTypeKafka:
		consumer, err := broker.NewConsumer(a.config.Broker, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create source consumer: %w", err)
		}
		consumer.SetServiceName("lookout-source")
		a.sourceConsumer = consumer
		a.kafkaSource = source.NewKafkaSource(consumer, a.config.Broker.Kafka.InputTopic, a.logger)
		return a.kafkaSource, nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", a.config.Source.Type)
	}
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware("lookout"))
	}

	router.Use(middleware.RecoveryMiddleware(a.logger))
	router.Use(middleware.LoggerMiddleware(a.logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.config.Ops.RateLimit.Enabled {
		rateLimitConfig := ratelimit.Config{
			RPS:             a.config.Ops.RateLimit.RPS,
			Burst:           a.config.Ops.RateLimit.Burst,
			CleanupInterval: time.Duration(a.config.Ops.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.config.Ops.RateLimit.MaxAge) * time.Second,
		}
		router.Use(ratelimit.Middleware(rateLimitConfig))
		a.logger.Infow("Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	handler := ops.NewHandler(a.ledger, a.dedupSvc, a.filter, a.config.Ledger.RecentLimit, a.logger)
	if a.base.Producer != nil && a.config.Broker.Kafka.ConfigUpdateTopic != "" {
		handler = handler.WithProducer(a.base.Producer, a.config.Broker.Kafka.ConfigUpdateTopic)
	}
	handler.RegisterRoutes(router)

	healthRegistry := health.NewCheckerRegistry()
	if a.db != nil {
		healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	}
	if a.redisClient != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redisClient))
	}
	if a.mongoClient != nil {
		healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router = router
	return nil
}

func (a *App) initServer() {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.config.Server.WriteTimeoutSeconds,
	}
}

func registerMetrics() {
	metrics.RegisterPipelineMetrics()
	metrics.RegisterDedupMetrics()
	metrics.RegisterClassifierMetrics()
	metrics.RegisterNotifierMetrics()
	metrics.RegisterLedgerMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterCircuitBreakerMetrics()
	metrics.RegisterOpsMetrics()
}

func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.InfowCtx(gctx, "Server listening", "port", a.config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	if a.kafkaSource != nil {
		g.Go(func() error {
			return a.kafkaSource.Start(gctx)
		})
	}

	if a.configConsumer != nil {
		g.Go(func() error {
			return a.configConsumer.Consume(gctx, a.config.Broker.Kafka.ConfigUpdateTopic, a.configHandler.Handle)
		})
	}

	g.Go(func() error {
		return a.runner.Run(gctx)
	})

	err := g.Wait()

	if shutdownErr := a.Shutdown(context.Background()); shutdownErr != nil {
		a.logger.Errorw("Shutdown finished with errors", "error", shutdownErr)
	}

	if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		return err
	}
	return context.Canceled
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
	defer cancel()

	return a.base.Shutdown(shutdownCtx, func(ctx context.Context) []error {
		var errs []error

		if a.sourceConsumer != nil {
			if err := a.sourceConsumer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("source consumer close error: %w", err))
			}
		}
		if a.configConsumer != nil {
			if err := a.configConsumer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("config consumer close error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redisClient, a.db, a.mongoClient)...)

		return errs
	})
}
