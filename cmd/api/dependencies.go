package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"

	"github.com/seatwize/reconciler/config"
	"github.com/seatwize/reconciler/internal/repositories/matchreview"
	"github.com/seatwize/reconciler/internal/repositories/sourcerecord"
	"github.com/seatwize/reconciler/internal/repositories/venue"
	"github.com/seatwize/reconciler/pkg/database"
	"github.com/seatwize/reconciler/pkg/events"
	"github.com/seatwize/reconciler/pkg/kafka"
	"github.com/seatwize/reconciler/pkg/matching"
	"github.com/seatwize/reconciler/pkg/processor"
	"github.com/seatwize/reconciler/pkg/reconcile"
	"github.com/seatwize/reconciler/pkg/redis"
)

// databaseDependency opens the postgres pool and applies migrations. The
// repositories are built here so later dependencies can take them from the
// started instance.
type databaseDependency struct {
	cfg    *config.Config
	logger ectologger.Logger

	raw     *sqlx.DB
	db      database.DB
	venues  *venue.Repository
	records *sourcerecord.Repository
	reviews *matchreview.Repository
}

func (d *databaseDependency) GetName() string     { return "postgres" }
func (d *databaseDependency) DependsOn() []string { return nil }

func (d *databaseDependency) Start(ctx context.Context) error {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.cfg.DatabaseHost, d.cfg.DatabasePort, d.cfg.DatabaseUserName,
		d.cfg.DatabasePassword, d.cfg.DatabaseName, d.cfg.DatabaseSSLMode)

	raw, err := sqlx.Open(d.cfg.DatabaseDriver, dsn)
	if err != nil {
		return err
	}
	if err := raw.PingContext(ctx); err != nil {
		raw.Close()
		return err
	}

	db := database.NewDatabaseInstance(raw, d.logger)
	if instance, ok := db.(*database.DatabaseInstance); ok {
		instance.Configure(d.cfg.DatabaseMaxOpenConns, d.cfg.DatabaseMaxIdleConns, d.cfg.DatabaseConnMaxLifetime)
	}

	driver, err := postgres.WithInstance(raw.DB, &postgres.Config{})
	if err != nil {
		raw.Close()
		return err
	}
	migrations := database.NewMigrationService(d.logger, &database.MigrationConfig{
		MigrationFolderPath: d.cfg.DatabaseMigrationFolderPath,
		Version:             uint(d.cfg.DatabaseMigrationVersion),
		AutoRollback:        d.cfg.DatabaseMigrationAutoRollback,
	})
	if err := migrations.Migrate(d.cfg.DatabaseName, driver); err != nil {
		raw.Close()
		return err
	}

	d.raw = raw
	d.db = db
	d.venues = venue.NewRepository(db, d.logger)
	d.records = sourcerecord.NewRepository(db, d.logger)
	d.reviews = matchreview.NewRepository(db, d.logger)
	return nil
}

func (d *databaseDependency) Stop(_ context.Context) error {
	if d.raw != nil {
		return d.raw.Close()
	}
	return nil
}

// redisDependency connects the probe cache and block store.
type redisDependency struct {
	cfg    *config.Config
	logger ectologger.Logger

	client *redis.Client
}

func (d *redisDependency) GetName() string     { return "redis" }
func (d *redisDependency) DependsOn() []string { return nil }

func (d *redisDependency) Start(_ context.Context) error {
	client, err := redis.NewClient(redis.Config{
		Host:     d.cfg.RedisHost,
		Port:     d.cfg.RedisPort,
		Password: d.cfg.RedisPassword,
		DB:       d.cfg.RedisDB,
	}, d.logger)
	if err != nil {
		return err
	}
	d.client = client
	return nil
}

func (d *redisDependency) Stop(_ context.Context) error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}

// processorDependency builds the reconciliation pipeline over the started
// database, loads the venue table, and begins periodic refreshes.
type processorDependency struct {
	cfg     *config.Config
	logger  ectologger.Logger
	db      *databaseDependency
	scorer  *matching.Scorer
	emitter *events.Emitter

	processor *processor.Processor
}

func (d *processorDependency) GetName() string     { return "processor" }
func (d *processorDependency) DependsOn() []string { return []string{"postgres"} }

func (d *processorDependency) Start(ctx context.Context) error {
	d.processor = processor.New(
		d.db.venues, d.db.records, d.db.reviews, d.emitter, d.scorer, d.logger,
		processor.Config{
			AcceptThreshold: d.cfg.MatchAcceptThreshold,
			SessionConfig: reconcile.Config{
				Threshold: d.cfg.MatchThreshold,
			},
			RefreshInterval: d.cfg.TableRefreshInterval,
		},
	)
	return d.processor.Start(ctx)
}

func (d *processorDependency) Stop(_ context.Context) error {
	if d.processor != nil {
		d.processor.Stop()
	}
	return nil
}

// consumerDependency runs the listing ingest loop.
type consumerDependency struct {
	cfg       *config.Config
	logger    ectologger.Logger
	processor *processorDependency

	consumer *kafka.Consumer
}

func (d *consumerDependency) GetName() string     { return "kafka-consumer" }
func (d *consumerDependency) DependsOn() []string { return []string{"processor"} }

func (d *consumerDependency) Start(ctx context.Context) error {
	d.consumer = kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:       d.cfg.KafkaBrokers,
		Topic:         d.cfg.KafkaListingsTopic,
		ConsumerGroup: d.cfg.KafkaConsumerGroup,
	}, d.logger, d.processor.processor.HandleMessage)
	return d.consumer.Start(ctx)
}

func (d *consumerDependency) Stop(_ context.Context) error {
	if d.consumer != nil {
		return d.consumer.Stop()
	}
	return nil
}

// Health reports whether the consumer loop is running.
func (d *consumerDependency) Health() bool {
	return d.consumer != nil && d.consumer.Health()
}

// serverDependency runs the echo HTTP server. Routes are registered by the
// build callback once the storage dependencies are up.
type serverDependency struct {
	cfg    *config.Config
	logger ectologger.Logger
	build  func() *echo.Echo

	echo *echo.Echo
}

func (d *serverDependency) GetName() string     { return "http-server" }
func (d *serverDependency) DependsOn() []string { return []string{"postgres", "processor"} }

func (d *serverDependency) Start(_ context.Context) error {
	d.echo = d.build()
	d.echo.Server.ReadTimeout = time.Duration(d.cfg.HttpServerReadTimeoutSeconds) * time.Second
	d.echo.Server.WriteTimeout = time.Duration(d.cfg.HttpServerWriteTimeoutSeconds) * time.Second
	d.echo.Server.IdleTimeout = time.Duration(d.cfg.HttpServerIdleTimeoutSeconds) * time.Second
	d.echo.Server.ReadHeaderTimeout = time.Duration(d.cfg.ReadHeaderTimeoutSeconds) * time.Second
	d.echo.Server.MaxHeaderBytes = d.cfg.MaxHeaderBytes

	go func() {
		addr := fmt.Sprintf(":%d", d.cfg.Port)
		if err := d.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			d.logger.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()
	return nil
}

func (d *serverDependency) Stop(ctx context.Context) error {
	if d.echo == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return d.echo.Shutdown(ctx)
}
