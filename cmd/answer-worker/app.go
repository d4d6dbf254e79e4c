package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"legalqa/internal/answering"
	"legalqa/internal/broker"
	"legalqa/internal/config"
	"legalqa/internal/constants"
	"legalqa/internal/generation"
	"legalqa/internal/logger"
	"legalqa/internal/retrieval"
	"legalqa/internal/rpc"
	"legalqa/pkg/bootstrap"
	"legalqa/pkg/circuitbreaker"
	"legalqa/pkg/health"
	"legalqa/pkg/logging"
	"legalqa/pkg/metrics"
	"legalqa/pkg/middleware"
	"legalqa/pkg/ratelimit"
	"legalqa/pkg/retry"
	"legalqa/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	redis          *redis.Client
	index          *retrieval.ElasticsearchIndex
	ranker         retrieval.Ranker
	handler        *answering.Handler
	pool           *rpc.Pool
	health         *health.CheckerRegistry
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
		health:      health.NewCheckerRegistry(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterWorkerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initRanker(ctx); err != nil {
		return fmt.Errorf("failed to initialize retrieval: %w", err)
	}

	a.initComposer()

	if err := a.InitDeadLetters(); err != nil {
		return err
	}

	a.initPool()

	if a.Config.Server.Enabled {
		a.initHTTPServer()
	}

	return nil
}

func (a *App) breakerConfig(name string) circuitbreaker.Config {
	cb := a.Config.CircuitBreaker
	return circuitbreaker.FromSettings(name, cb.MaxRequests, cb.Interval, cb.Timeout, cb.FailureRatio, cb.MinRequests)
}

func (a *App) initRanker(ctx context.Context) error {
	esIndex, err := retrieval.NewElasticsearchIndex(a.Config.Search)
	if err != nil {
		return err
	}
	a.index = esIndex
	a.health.Register(health.NewFuncChecker("elasticsearch", esIndex.Ping))

	var index retrieval.Index = esIndex
	if a.Config.CircuitBreaker.Enabled {
		breaker := retrieval.NewCircuitBreakerIndex(esIndex, a.breakerConfig("elasticsearch"))
		a.health.Register(health.NewFuncChecker("elasticsearch_breaker", func(ctx context.Context) error {
			if breaker.IsOpen() {
				return errors.New("circuit breaker open")
			}
			return nil
		}))
		index = breaker
	}

	var ranker retrieval.Ranker = retrieval.NewRanker(index, a.Config.Search.Limit, a.Config.Search.Timeout, a.Logger)

	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize rank cache: %w", err)
	}
	if rdb != nil {
		a.redis = rdb
		a.health.Register(health.NewRedisChecker(rdb))
		ranker = retrieval.NewCachedRanker(ranker, retrieval.NewRedisCache(rdb), a.Config.Cache.TTL, a.Logger)
	}

	a.ranker = ranker
	return nil
}

func (a *App) initComposer() {
	gen := a.Config.Generation

	var model generation.Model = generation.NewOpenAIModel(gen)
	if a.Config.CircuitBreaker.Enabled {
		breaker := generation.NewCircuitBreakerModel(model, a.breakerConfig("openai"))
		a.health.Register(health.NewFuncChecker("openai_breaker", func(ctx context.Context) error {
			if breaker.IsOpen() {
				return errors.New("circuit breaker open")
			}
			return nil
		}))
		model = breaker
	}
	if gen.RateLimit.Enabled {
		limiter := ratelimit.New("openai", ratelimit.Config{
			RPS:   gen.RateLimit.RPS,
			Burst: gen.RateLimit.Burst,
		})
		model = generation.NewRateLimitedModel(model, limiter)
	}

	composer := generation.NewComposer(model, gen.Timeout, a.Logger)
	a.handler = answering.NewHandler(a.ranker, composer, a.Logger,
		answering.WithLimit(a.Config.Search.Limit),
		answering.WithQuestionEcho(a.Config.RPC.EchoQuestion),
	)
}

func (a *App) retryPolicy() retry.Policy {
	rc := a.Config.RPC.Retry
	policy := retry.DefaultPolicy()
	if rc.MaxAttempts > 0 {
		policy.MaxAttempts = rc.MaxAttempts
	}
	if rc.InitialInterval > 0 {
		policy.InitialInterval = rc.InitialInterval
	}
	if rc.MaxInterval > 0 {
		policy.MaxInterval = rc.MaxInterval
	}
	if rc.Multiplier > 0 {
		policy.Multiplier = rc.Multiplier
	}
	if rc.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = rc.MaxElapsedTime
	}
	return policy
}

func (a *App) initPool() {
	rabbitCfg := a.Config.Broker.RabbitMQ
	dial := func() (rpc.Session, error) {
		session, err := broker.Dial(rabbitCfg, a.Logger)
		if err != nil {
			return nil, err
		}
		return session, nil
	}

	opts := rpc.Options{
		Queue:        rabbitCfg.Queue,
		ErrorReplies: a.Config.RPC.ErrorReplies,
		Retry:        a.retryPolicy(),
	}

	consumerTag := rabbitCfg.ConsumerTag
	if consumerTag == "" {
		consumerTag = constants.DefaultConsumerTag
	}

	count := a.Config.RPC.Workers
	if count < 1 {
		count = constants.DefaultWorkers
	}
	workers := make([]*rpc.Worker, 0, count)
	for i := 1; i <= count; i++ {
		workers = append(workers, rpc.NewWorker(i, dial, consumerTag, a.handler, a.DeadLetters, opts, a.Logger))
	}
	a.pool = rpc.NewPool(workers...)
	a.health.Register(health.NewBrokerChecker("rabbitmq", a.pool.Sessions))
}

func (a *App) initHTTPServer() {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceName))
	}
	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())

	if rl := a.Config.Server.RateLimit; rl.Enabled {
		mwCfg := ratelimit.DefaultMiddlewareConfig()
		mwCfg.RPS = rl.RPS
		mwCfg.Burst = rl.Burst
		router.Use(ratelimit.Middleware(mwCfg))
	}

	router.GET("/health", func(c *gin.Context) {
		h := a.health.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}
}

// Run blocks until ctx is canceled or a worker fails. Workers finish the
// delivery they hold before returning.
func (a *App) Run(ctx context.Context) error {
	runCtx := logging.WithServiceName(ctx, constants.ServiceName)
	g, gCtx := errgroup.WithContext(runCtx)

	if a.server != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(runCtx, "HTTP server starting", "port", a.Config.Server.Port)
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

	g.Go(func() error {
		return a.pool.Run(gCtx)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, constants.ServiceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down answer worker")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			serverCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(serverCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis)...)

		if a.tracerProvider != nil {
			tracerCtx, cancel := context.WithTimeout(ctx, constants.ShutdownTimeout)
			defer cancel()
			if err := a.tracerProvider.Shutdown(tracerCtx); err != nil {
				errs = append(errs, fmt.Errorf("tracer shutdown error: %w", err))
			}
		}

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
