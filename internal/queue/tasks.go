package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/knowledgeextractor/internal/analyzer"
)

// handleAnalyze runs the analysis pipeline for a queued text and stores the
// resulting record as the task result
func (w *Worker) handleAnalyze(ctx context.Context, t *asynq.Task) error {
	var payload AnalyzePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("invalid task payload: %v: %w", err, asynq.SkipRetry)
	}

	var queueWait time.Duration
	if payload.EnqueuedAt > 0 {
		queueWait = time.Since(time.Unix(0, payload.EnqueuedAt))
	}

	ctx = remoteContext(ctx, payload)
	ctx, span := otel.Tracer("knowledgeextractor").Start(ctx, "asynq.task.analyze",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("task.type", TypeAnalyze),
			attribute.String("job.id", payload.JobID),
			attribute.Int("text.length", len(payload.Text)),
			attribute.Float64("queue.wait_time_seconds", queueWait.Seconds()),
		),
	)
	defer span.End()

	w.logger.Info("processing analysis job",
		"job_id", payload.JobID,
		"text_length", len(payload.Text),
		"queue_wait_seconds", queueWait.Seconds(),
	)

	record, err := w.analyzer.Analyze(ctx, payload.Text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		if errors.Is(err, analyzer.ErrEmptyInput) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	result, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}

	// tasks built outside a server have no result writer
	if rw := t.ResultWriter(); rw != nil {
		if _, err := rw.Write(result); err != nil {
			return fmt.Errorf("failed to write task result: %w", err)
		}
	}

	span.SetAttributes(attribute.Int64("analysis.id", record.ID))
	w.logger.Info("analysis job completed", "job_id", payload.JobID, "analysis_id", record.ID)
	return nil
}

// remoteContext links the task to the request that enqueued it
func remoteContext(ctx context.Context, payload AnalyzePayload) context.Context {
	if payload.TraceID == "" || payload.SpanID == "" {
		return ctx
	}
	traceID, err := trace.TraceIDFromHex(payload.TraceID)
	if err != nil {
		return ctx
	}
	spanID, err := trace.SpanIDFromHex(payload.SpanID)
	if err != nil {
		return ctx
	}
	return trace.ContextWithRemoteSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	}))
}
