package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/zombar/knowledgeextractor/internal/models"
)

// Analyzer runs the analysis pipeline for one text
type Analyzer interface {
	Analyze(ctx context.Context, text string) (*models.Analysis, error)
}

// Worker wraps the Asynq server for processing tasks
type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	analyzer    Analyzer
	concurrency int
	logger      *slog.Logger
}

// WorkerConfig contains configuration for the queue worker
type WorkerConfig struct {
	RedisAddr   string
	Concurrency int
}

// NewWorker creates a new queue worker
func NewWorker(cfg WorkerConfig, analyzer Analyzer, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	serverCfg := asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			QueueAnalysis: 1,
		},
		ShutdownTimeout: 30 * time.Second,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			taskID, _ := asynq.GetTaskID(ctx)
			logger.Error("task processing error",
				"task_type", task.Type(),
				"job_id", taskID,
				"error", err,
			)
		}),
	}

	w := &Worker{
		server:      asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, serverCfg),
		mux:         asynq.NewServeMux(),
		analyzer:    analyzer,
		concurrency: cfg.Concurrency,
		logger:      logger,
	}

	w.mux.HandleFunc(TypeAnalyze, w.handleAnalyze)
	return w
}

// Start begins processing tasks in the background
func (w *Worker) Start() error {
	w.logger.Info("starting asynq worker", "concurrency", w.concurrency, "queue", QueueAnalysis)

	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("asynq server error: %w", err)
	}
	return nil
}

// Shutdown waits for running tasks and stops the worker
func (w *Worker) Shutdown() {
	w.logger.Info("shutting down asynq worker")
	w.server.Shutdown()
}
