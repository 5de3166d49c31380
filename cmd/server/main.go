package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zombar/knowledgeextractor/internal/analyzer"
	"github.com/zombar/knowledgeextractor/internal/api"
	"github.com/zombar/knowledgeextractor/internal/config"
	"github.com/zombar/knowledgeextractor/internal/database"
	"github.com/zombar/knowledgeextractor/internal/insight"
	"github.com/zombar/knowledgeextractor/internal/metrics"
	"github.com/zombar/knowledgeextractor/internal/queue"
	"github.com/zombar/knowledgeextractor/internal/tracing"
	"github.com/zombar/knowledgeextractor/pkg/logging"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	var (
		port     = flag.String("port", cfg.Server.Port, "Server port (env: PORT)")
		dbDriver = flag.String("db-driver", cfg.Database.Driver, "Database driver: sqlite, postgres or mysql (env: DB_DRIVER)")
		dbDSN    = flag.String("db-dsn", cfg.Database.DSN, "Database DSN or sqlite file path (env: DB_DSN)")
		logLevel = flag.String("log-level", cfg.LogLevel, "Log level (env: LOG_LEVEL)")
	)
	flag.Parse()
	cfg.Server.Port = *port
	cfg.Database.Driver = *dbDriver
	cfg.Database.DSN = *dbDSN
	cfg.LogLevel = *logLevel

	// Setup structured logging with JSON output
	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("knowledgeextractor service initializing", "version", version)

	ctx := context.Background()

	shutdownTracer, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				logger.Error("error shutting down tracer", "error", err)
			}
		}()
	}

	db, err := database.New(ctx, cfg.Database.Driver, cfg.Database.DSN, database.WithLogger(logger))
	if err != nil {
		logger.Error("failed to initialize database", "error", err, "driver", cfg.Database.Driver)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	if err := m.RegisterDB(db.Conn(), "analyses"); err != nil {
		logger.Warn("failed to register database metrics", "error", err)
	}

	settings := cfg.InsightSettings()
	if err := settings.Validate(); err != nil {
		// requests fail with 503 until the configuration is fixed
		logger.Warn("LLM not configured", "error", err)
	}
	insights := insight.New(settings, insight.WithLogger(logger), insight.WithMetrics(m))
	pipeline := analyzer.New(insights, db, analyzer.WithLogger(logger), analyzer.WithMetrics(m))

	var jobs api.Jobs
	if cfg.Queue.RedisAddr != "" {
		queueClient := queue.NewClient(queue.ClientConfig{
			RedisAddr: cfg.Queue.RedisAddr,
			Timeout:   cfg.Server.RequestTimeout,
			Retention: cfg.Queue.Retention,
			Metrics:   m,
		})
		defer queueClient.Close()

		worker := queue.NewWorker(queue.WorkerConfig{
			RedisAddr:   cfg.Queue.RedisAddr,
			Concurrency: cfg.Queue.Concurrency,
		}, pipeline, logger)
		if err := worker.Start(); err != nil {
			logger.Error("failed to start queue worker", "error", err)
			os.Exit(1)
		}
		defer worker.Shutdown()

		jobs = queueClient
		logger.Info("asynchronous analyses enabled", "redis_addr", cfg.Queue.RedisAddr)
	}

	handler := newServerHandler(cfg, pipeline, jobs, prometheus.DefaultGatherer, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("knowledgeextractor service starting",
			"port", cfg.Server.Port,
			"db_driver", db.Driver(),
			"llm_provider", settings.Provider,
			"llm_model", settings.Model,
			"async", jobs != nil,
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	logger.Info("server stopped")
}

// newServerHandler builds the middleware chain: HTTP logging -> tracing -> handlers
func newServerHandler(cfg *config.Config, pipeline api.Pipeline, jobs api.Jobs, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	apiHandler := api.NewHandler(pipeline, jobs, api.Config{
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Gatherer:       gatherer,
		Logger:         logger,
	})

	return logging.HTTPLoggingMiddleware(logger)(
		tracing.HTTPMiddleware(cfg.Tracing.ServiceName)(apiHandler),
	)
}
