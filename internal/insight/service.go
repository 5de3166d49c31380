// Package insight turns free text into a summary, topics, title and sentiment
// by asking a remote language model, and decodes the untrusted answer
// defensively.
package insight

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/knowledgeextractor/internal/metrics"
)

// MaxInputChars is the hard cut applied to text before it is sent
const MaxInputChars = 8000

// Service extracts insights with a cached remote client
type Service struct {
	settings Settings
	cache    *ClientCache
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option customizes a Service
type Option func(*Service)

// WithCache replaces DefaultCache
func WithCache(c *ClientCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics records call durations on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New creates a Service. Settings are not validated here so that a missing
// credential surfaces on first use instead of at startup.
func New(settings Settings, opts ...Option) *Service {
	s := &Service{
		settings: settings,
		cache:    DefaultCache,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExtractTextInsights asks the model for insights on text.
// It returns ErrEmptyText, a *ConfigurationError or a *RemoteInsightError;
// no partial result is returned with an error.
func (s *Service) ExtractTextInsights(ctx context.Context, text string) (Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Result{}, ErrEmptyText
	}
	if err := s.settings.Validate(); err != nil {
		return Result{}, err
	}

	client, err := s.cache.Get(s.settings)
	if err != nil {
		s.logger.Error("failed to build LLM client", "provider", s.settings.provider(), "error", err)
		return Result{}, err
	}

	prompt := truncate(text, MaxInputChars)

	ctx, span := otel.Tracer("knowledgeextractor").Start(ctx, "ai.extract_insights",
		trace.WithAttributes(
			attribute.String("llm.provider", client.Variant()),
			attribute.String("llm.model", s.settings.Model),
			attribute.Int("text.length", len(text)),
			attribute.Bool("text.truncated", len(prompt) < len(text)),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.settings.timeout())
	defer cancel()

	start := time.Now()
	content, err := client.Complete(ctx, s.settings.Model, SystemPrompt, prompt, s.settings.temperature())
	var result Result
	if err == nil {
		result, err = parseInsights(content)
	}
	duration := time.Since(start)

	if err != nil {
		s.metrics.ObserveInsight(client.Variant(), metrics.OutcomeRemote, duration)
		span.RecordError(err)
		span.SetStatus(codes.Error, "insight extraction failed")
		s.logger.Warn("insight extraction failed",
			"provider", client.Variant(),
			"model", s.settings.Model,
			"duration_ms", duration.Milliseconds(),
			"timeout", errors.Is(err, context.DeadlineExceeded),
			"error", err,
		)
		return Result{}, &RemoteInsightError{Err: err}
	}

	s.metrics.ObserveInsight(client.Variant(), metrics.OutcomeSuccess, duration)
	span.SetAttributes(attribute.Int("insight.topics", len(result.Topics)))
	s.logger.Info("insights extracted",
		"provider", client.Variant(),
		"model", s.settings.Model,
		"duration_ms", duration.Milliseconds(),
		"topics", len(result.Topics),
		"has_title", result.Title != nil,
		"has_sentiment", result.Sentiment != nil,
	)
	return result, nil
}
