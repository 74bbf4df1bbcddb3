package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/seatwize/reconciler/config"
	"github.com/seatwize/reconciler/internal/handlers"
	"github.com/seatwize/reconciler/pkg/events"
	"github.com/seatwize/reconciler/pkg/kafka"
	"github.com/seatwize/reconciler/pkg/matching"
	"github.com/seatwize/reconciler/pkg/middleware"
	"github.com/seatwize/reconciler/pkg/probe"
	"github.com/seatwize/reconciler/pkg/redis"
	"github.com/seatwize/reconciler/pkg/startup"
	"github.com/seatwize/reconciler/pkg/tracing"
	"github.com/seatwize/reconciler/pkg/tracing/exporters"
)

const serviceName = "reconciler"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	logger.WithField("app", cfg.AppName).Info("Starting reconciler")

	shutdownTracing := initTracing(cfg, logger)
	defer shutdownTracing()

	scorer := matching.NewScorer()

	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.KafkaBrokers,
		Topic:        cfg.KafkaOutputTopic,
		BatchSize:    cfg.KafkaBatchSize,
		BatchTimeout: cfg.KafkaBatchTimeout,
		RequiredAcks: cfg.KafkaRequiredAcks,
		Compression:  cfg.KafkaCompression,
	}, logger)
	defer producer.Close()
	emitter := events.NewEmitter(producer, logger)

	dbDep := &databaseDependency{cfg: cfg, logger: logger}
	redisDep := &redisDependency{cfg: cfg, logger: logger}
	procDep := &processorDependency{cfg: cfg, logger: logger, db: dbDep, scorer: scorer, emitter: emitter}
	consumerDep := &consumerDependency{cfg: cfg, logger: logger, processor: procDep}

	var health *handlers.HealthChecker

	serverDep := &serverDependency{cfg: cfg, logger: logger, build: func() *echo.Echo {
		e, checker := buildEcho(cfg, logger, scorer, emitter, dbDep, redisDep, procDep, consumerDep)
		health = checker
		return e
	}}

	boot := startup.New(logger, cfg.StartupMaxAttempts)
	boot.AddDependency(dbDep)
	boot.AddDependency(redisDep)
	boot.AddDependency(procDep)
	if cfg.KafkaConsumerEnabled {
		boot.AddDependency(consumerDep)
	}
	boot.AddDependency(serverDep)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := boot.Start(ctx); err != nil {
		logger.WithError(err).Error("Startup failed")
		os.Exit(1)
	}
	if health != nil {
		health.SetReady(true)
	}
	logger.WithField("port", cfg.Port).Info("Reconciler is ready")

	<-ctx.Done()
	if health != nil {
		health.SetReady(false)
	}
	logger.Info("Shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := boot.Stop(stopCtx); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
	}
}

func newLogger(cfg *config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

// initTracing installs the OTLP tracer when enabled and returns a shutdown
// hook. Disabled tracing still installs a tracer so spans are cheap no-ops.
func initTracing(cfg *config.Config, logger ectologger.Logger) func() {
	tracing.SetTracer(otel.Tracer(serviceName))
	if !cfg.TracingEnabled {
		return func() {}
	}

	ctx := context.Background()
	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: cfg.TracingOTLPEndpoint,
		Protocol: cfg.TracingOTLPProtocol,
		Insecure: true,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to create OTLP exporter; tracing disabled")
		return func() {}
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	tracing.SetTracer(provider.Tracer(serviceName))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shut down tracer provider")
		}
	}
}

func buildEcho(
	cfg *config.Config,
	logger ectologger.Logger,
	scorer *matching.Scorer,
	emitter *events.Emitter,
	dbDep *databaseDependency,
	redisDep *redisDependency,
	procDep *processorDependency,
	consumerDep *consumerDependency,
) (*echo.Echo, *handlers.HealthChecker) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(otelecho.Middleware(serviceName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.HTTPErrorHandler = middleware.Error(logger)

	health := handlers.NewHealthChecker(dbDep.db, redisDep.client, consumerDep, version())
	health.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	var prober handlers.SlugProber
	if cfg.ProbeEnabled {
		probeConfig := probe.DefaultConfig()
		probeConfig.BaseURLs[probe.PlatformResy] = cfg.ProbeResyBaseURL
		probeConfig.BaseURLs[probe.PlatformOpenTable] = cfg.ProbeOpenTableBaseURL
		probeConfig.RequestsPerSecond = cfg.ProbeRequestsPerSecond
		probeConfig.Burst = cfg.ProbeBurst
		probeConfig.Workers = cfg.ProbeWorkers
		probeConfig.MaxRetries = cfg.ProbeMaxRetries
		probeConfig.VerifyThreshold = cfg.VerifyThreshold
		probeConfig.RequestTimeout = cfg.ProbeRequestTimeout

		cache := probe.NewCache(redisDep.client, logger, cfg.ProbePositiveCacheTTL, cfg.ProbeNegativeCacheTTL)
		blocker := redis.NewBlocker(redisDep.client, "")
		prober = probe.NewProber(&http.Client{Timeout: cfg.ProbeRequestTimeout}, scorer, cache, blocker, logger, probeConfig)
	}

	api := e.Group("/api/v1")
	handlers.NewMatchHandler(scorer).RegisterRoutes(api)
	handlers.NewReconcileHandler(dbDep.venues, procDep.processor, scorer, logger).RegisterRoutes(api)
	handlers.NewVenueHandler(dbDep.venues, prober, procDep.processor, logger).RegisterRoutes(api)
	handlers.NewReviewHandler(dbDep.reviews, dbDep.records, dbDep.venues, emitter, procDep.processor, logger).RegisterRoutes(api)

	return e, health
}

func version() string {
	if v := os.Getenv("APP_VERSION"); v != "" {
		return v
	}
	return "dev"
}
