package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/blackmichael/geofeed/internal/config"
	"github.com/blackmichael/geofeed/internal/domain"
	"github.com/blackmichael/geofeed/internal/firehose"
	"github.com/blackmichael/geofeed/internal/httpserver"
	"github.com/blackmichael/geofeed/internal/metrics"
	"github.com/blackmichael/geofeed/internal/profilecache"
	"github.com/blackmichael/geofeed/internal/socialgraph"
	"github.com/blackmichael/geofeed/internal/store"
)

const serviceName = "geofeed"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTLPEndpoint != "" {
		shutdown, err := initTracing(ctx, cfg)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(c)
		}()
		logger.Info("tracing enabled", "endpoint", cfg.OTLPEndpoint)
	}

	dialect, err := store.ParseDialect(cfg.DatabaseDriver)
	if err != nil {
		return err
	}
	db, err := store.Open(dialect, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := store.Migrate(db, dialect); err != nil {
		db.Close()
		return fmt.Errorf("migrate database: %w", err)
	}
	repo := store.New(db, dialect)
	defer repo.Close()
	logger.Info("connected to database", "driver", dialect)

	m := metrics.New(prometheus.NewRegistry())

	var profiles domain.ProfileLookup = repo
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := redisotel.InstrumentTracing(rdb); err != nil {
			return fmt.Errorf("instrument redis: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		profiles = profilecache.New(rdb, repo, cfg.ProfileCacheTTL, logger)
		logger.Info("profile cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.ProfileCacheTTL)
	}

	graph := socialgraph.NewClient(cfg.SocialGraphURL, cfg.SocialGraphTimeout, m, logger)

	feedService, err := domain.NewFeedService(
		domain.ServiceConfig{MaxPageSize: cfg.MaxPageSize},
		repo,
		profiles,
		graph,
		logger,
	)
	if err != nil {
		return fmt.Errorf("create feed service: %w", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if cfg.FirehoseURL != "" {
		subscriber := firehose.NewSubscriber(cfg.FirehoseURL, feedService, m, logger)
		go func() {
			if err := subscriber.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("post stream subscriber exited with error", "error", err)
			}
		}()
	}

	go feedService.StartCleanupJob(ctx, time.Minute, cfg.PostMaxAge, cfg.PostMaxRows)

	server := httpserver.NewServer(cfg, feedService, m, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server exited with error", "error", err)
		}
	}()

	logger.Info("server started", "port", cfg.Port, "env", cfg.Env)

	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}

	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.IsLocal() {
		opts.Level = slog.LevelDebug
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func initTracing(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	exp, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		attribute.String("deployment.environment", cfg.Env),
	))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp.Shutdown, nil
}
