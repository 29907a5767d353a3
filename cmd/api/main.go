package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"applybot/internal/app"
	"applybot/internal/config"
	"applybot/internal/domain/authz"
	"applybot/internal/domain/notify"
	"applybot/internal/domain/record"
	"applybot/internal/domain/session"
	"applybot/internal/events"
	apphttp "applybot/internal/http"
	"applybot/internal/http/handlers"
	httpmw "applybot/internal/http/middleware"
	"applybot/internal/http/response"
	"applybot/internal/integration/botgateway"
	"applybot/internal/observability"
	"applybot/internal/positions"
	"applybot/internal/repository/postgres"
	"applybot/internal/repository/sqlite"
)

func main() {
	cfg := config.Load()
	logger := observability.NewLogger(cfg.LogLevel)

	catalog, err := positions.LoadFile(cfg.PositionsFile)
	if err != nil {
		log.Fatalf("failed to load positions: %v", err)
	}

	var sessionStore session.Store
	var recordStore record.Store
	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(postgres.Config{
			DSN:             cfg.PostgresDSN,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxIdle:     cfg.DBConnMaxIdle,
			ConnMaxLifetime: cfg.DBConnMaxLife,
		})
		if err != nil {
			log.Fatalf("failed to open postgres: %v", err)
		}
		defer db.Close()
		if err := postgres.RunMigrations(context.Background(), db); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		sessionStore = postgres.NewSessionStore(db)
		recordStore = postgres.NewRecordStore(db)
	default:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open sqlite: %v", err)
		}
		defer db.Close()
		if err := sqlite.RunMigrations(context.Background(), db); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		sessionStore = sqlite.NewSessionStore(db)
		recordStore = sqlite.NewRecordStore(db)
	}

	var notifier notify.Notifier
	if cfg.BotGatewayBaseURL != "" {
		notifier = botgateway.NewClient(cfg.BotGatewayBaseURL, cfg.BotGatewayInternalKey, &http.Client{Timeout: 5 * time.Second})
	} else {
		notifier = notify.NewLogNotifier(logger)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsExchange)
		if err != nil {
			log.Fatalf("failed to connect to amqp: %v", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	var limiter httpmw.Limiter = httpmw.NewRateLimiter()
	if cfg.RedisURL != "" {
		options, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		limiter = httpmw.NewRedisLimiter(redis.NewClient(options))
	}

	collector := observability.NewCollector()
	response.SetErrorCollector(collector)

	policy := authz.NewRolePolicy()
	intakeService := app.NewIntakeService(sessionStore, recordStore, catalog, policy, notifier, publisher, collector, logger)
	reviewService := app.NewReviewService(recordStore, catalog, policy, notifier, publisher, collector, logger)
	monitor := app.NewExpiryMonitor(intakeService, cfg.SweepInterval, logger)

	router := apphttp.NewRouter(apphttp.RouterDependencies{
		IntakeHandler:   handlers.NewIntakeHandler(intakeService, limiter),
		RecordHandler:   handlers.NewRecordHandler(reviewService),
		PositionHandler: handlers.NewPositionHandler(catalog),
		MetricsHandler:  observability.NewMetricsHandler(collector),
		Metrics:         collector,
		Logger:          logger,
		InternalAPIKey:  cfg.InternalAPIKey,
		RequestTimeout:  cfg.RequestTimeout,
	})
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go monitor.Run(sweepCtx)

	go func() {
		logger.Info("API started on :" + cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
