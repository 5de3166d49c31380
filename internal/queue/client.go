package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/knowledgeextractor/internal/metrics"
	"github.com/zombar/knowledgeextractor/internal/models"
)

// Task type and queue names
const (
	TypeAnalyze   = "knowledge:analyze"
	QueueAnalysis = "analysis"
)

// Job states reported by JobStatus
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ErrJobNotFound is returned for an unknown or expired job id
var ErrJobNotFound = errors.New("job not found")

// AnalyzePayload is the payload of an asynchronous analysis task
type AnalyzePayload struct {
	JobID string `json:"job_id"`
	Text  string `json:"text"`
	// Tracing and timing fields
	TraceID    string `json:"trace_id,omitempty"`
	SpanID     string `json:"span_id,omitempty"`
	EnqueuedAt int64  `json:"enqueued_at"` // Unix timestamp in nanoseconds
}

// JobStatus describes an asynchronous analysis
type JobStatus struct {
	JobID    string           `json:"job_id"`
	Status   string           `json:"status"`
	Analysis *models.Analysis `json:"analysis,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// ClientConfig contains configuration for the queue client
type ClientConfig struct {
	RedisAddr string
	// Timeout bounds one task run
	Timeout time.Duration
	// Retention keeps finished tasks, and their results, queryable
	Retention time.Duration
	Metrics   *metrics.Metrics
}

// Client enqueues analyses and reports their status
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	timeout   time.Duration
	retention time.Duration
	metrics   *metrics.Metrics
}

// NewClient creates a new queue client
func NewClient(cfg ClientConfig) *Client {
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}

	return &Client{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		timeout:   cfg.Timeout,
		retention: cfg.Retention,
		metrics:   cfg.Metrics,
	}
}

// EnqueueAnalyze enqueues text for analysis and returns the job id
func (c *Client) EnqueueAnalyze(ctx context.Context, text string) (string, error) {
	jobID := uuid.NewString()

	task, err := newAnalyzeTask(ctx, jobID, text, time.Now())
	if err != nil {
		return "", err
	}

	// analyses are not retried: a failed remote call is reported, not repeated
	opts := []asynq.Option{
		asynq.MaxRetry(0),
		asynq.Timeout(c.timeout),
		asynq.Queue(QueueAnalysis),
		asynq.Retention(c.retention),
	}

	if _, err := c.client.EnqueueContext(ctx, task, opts...); err != nil {
		return "", fmt.Errorf("failed to enqueue analyze task: %w", err)
	}
	c.metrics.ObserveEnqueue()

	return jobID, nil
}

// JobStatus looks up a job by id
func (c *Client) JobStatus(ctx context.Context, jobID string) (*JobStatus, error) {
	info, err := c.inspector.GetTaskInfo(QueueAnalysis, jobID)
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task info: %w", err)
	}
	return statusFromInfo(info)
}

// Close closes the client connections
func (c *Client) Close() error {
	err := c.client.Close()
	if ierr := c.inspector.Close(); err == nil {
		err = ierr
	}
	return err
}

func newAnalyzeTask(ctx context.Context, jobID, text string, now time.Time) (*asynq.Task, error) {
	payload := AnalyzePayload{
		JobID:      jobID,
		Text:       text,
		EnqueuedAt: now.UnixNano(),
	}

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()
		payload.TraceID = spanCtx.TraceID().String()
		payload.SpanID = spanCtx.SpanID().String()

		span.AddEvent("task_enqueued", trace.WithAttributes(
			attribute.String("task.type", TypeAnalyze),
			attribute.String("job.id", jobID),
			attribute.Int64("enqueued_at", payload.EnqueuedAt),
		))
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}

	return asynq.NewTask(TypeAnalyze, payloadBytes, asynq.TaskID(jobID)), nil
}

func statusFromInfo(info *asynq.TaskInfo) (*JobStatus, error) {
	status := &JobStatus{JobID: info.ID}

	switch info.State {
	case asynq.TaskStateActive, asynq.TaskStateRetry:
		status.Status = StatusProcessing
	case asynq.TaskStateCompleted:
		status.Status = StatusCompleted
		if len(info.Result) > 0 {
			var analysis models.Analysis
			if err := json.Unmarshal(info.Result, &analysis); err != nil {
				return nil, fmt.Errorf("failed to decode job result: %w", err)
			}
			status.Analysis = &analysis
		}
	case asynq.TaskStateArchived:
		status.Status = StatusFailed
		status.Error = info.LastErr
	default:
		status.Status = StatusQueued
	}

	return status, nil
}
