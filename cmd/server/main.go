package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lalith-99/huddle/internal/api"
	"github.com/lalith-99/huddle/internal/config"
	"github.com/lalith-99/huddle/internal/db"
	"github.com/lalith-99/huddle/internal/events"
	"github.com/lalith-99/huddle/internal/middleware"
	"github.com/lalith-99/huddle/internal/observ"
	"github.com/lalith-99/huddle/internal/realtime"
	"github.com/lalith-99/huddle/internal/repository"
	"github.com/lalith-99/huddle/internal/repository/memory"
	"github.com/lalith-99/huddle/internal/repository/postgres"
	"github.com/lalith-99/huddle/internal/service"
	"github.com/lalith-99/huddle/internal/storage"
	"github.com/lalith-99/huddle/migrations"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ---------------------------------------------------------------
	// 1. Config and logger
	// ---------------------------------------------------------------
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// ---------------------------------------------------------------
	// 2. Data layer and change feed
	//
	// Every row change reaches the broker: the memory backend publishes
	// directly, Postgres through LISTEN/NOTIFY.
	// ---------------------------------------------------------------
	broker := realtime.NewBroker(logger)

	var (
		backend repository.Backend
		health  api.HealthChecker
		store   storage.ObjectStorage
		bus     interface {
			events.Publisher
			events.Subscriber
		}
	)

	switch cfg.Backend {
	case "memory":
		backend = memory.New(memory.WithPublisher(broker)).Backend()
		store = storage.NewMemoryStore("http://localhost:" + cfg.Port + "/files")
		bus = events.NewHub()
		logger.Warn("using in-memory backend, data is lost on restart")

	case "postgres":
		database, err := db.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer database.Close()

		if err := database.Migrate(ctx, migrations.FS); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		backend = postgres.NewBackend(database.Pool())
		health = database

		listener := realtime.NewPGListener(database.Pool(), broker, logger)
		g.Go(func() error { return listener.Run(ctx) })

		s3, err := storage.NewS3Store(ctx, storage.S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("create s3 store: %w", err)
		}
		store = s3

		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		bus = events.NewRedis(rdb, logger)
	}

	// ---------------------------------------------------------------
	// 3. Action events
	//
	// The bus feeds revalidate frames; Kafka, when configured, receives
	// the same events as an activity stream.
	// ---------------------------------------------------------------
	publisher := events.Multi{bus}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := events.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer kafka.Close()
		publisher = append(publisher, kafka)
	}

	svc := service.New(service.Options{
		Backend:  backend,
		Storage:  store,
		Events:   publisher,
		Logger:   logger,
		PageSize: cfg.PageSize,
	})

	// ---------------------------------------------------------------
	// 4. HTTP server
	// ---------------------------------------------------------------
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, logger)
	g.Go(func() error {
		limiter.Run(ctx)
		return nil
	})

	router := api.NewRouter(api.RouterConfig{
		Service:     svc,
		Profiles:    backend.Profiles,
		JWTSecret:   cfg.JWTSecret,
		RateLimiter: limiter,
		WS: api.WSOptions{
			Feed:              broker,
			Revalidate:        bus,
			HeartbeatInterval: cfg.HeartbeatInterval,
			StaleAfter:        cfg.PresenceStaleAfter,
			PageSize:          cfg.PageSize,
			BaseContext:       ctx,
		},
		Health: health,
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("starting huddle",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("backend", cfg.Backend),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
