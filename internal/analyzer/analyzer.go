package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/knowledgeextractor/internal/insight"
	"github.com/zombar/knowledgeextractor/internal/metrics"
	"github.com/zombar/knowledgeextractor/internal/models"
)

// ErrEmptyInput is returned when the text is empty after trimming whitespace
var ErrEmptyInput = errors.New("input text cannot be empty")

// InsightExtractor produces insights for a text
type InsightExtractor interface {
	ExtractTextInsights(ctx context.Context, text string) (insight.Result, error)
}

// Store persists and searches analyses
type Store interface {
	Create(ctx context.Context, a models.NewAnalysis) (*models.Analysis, error)
	Search(ctx context.Context, term string) ([]*models.Analysis, error)
}

// Analyzer runs the analysis pipeline: remote insights, local keywords and
// confidence, then persistence
type Analyzer struct {
	insights InsightExtractor
	store    Store
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

// Option customizes an Analyzer
type Option func(*Analyzer)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithMetrics counts outcomes on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// New creates an Analyzer
func New(insights InsightExtractor, store Store, opts ...Option) *Analyzer {
	a := &Analyzer{
		insights: insights,
		store:    store,
		logger:   slog.Default(),
		tracer:   otel.Tracer("knowledgeextractor"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze extracts insights from text and stores the result.
// Nothing is stored when any step fails, and no step is retried.
func (a *Analyzer) Analyze(ctx context.Context, text string) (*models.Analysis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		a.metrics.ObserveAnalysis(metrics.OutcomeInvalid)
		return nil, ErrEmptyInput
	}

	ctx, span := a.tracer.Start(ctx, "analyzer.analyze",
		trace.WithAttributes(attribute.Int("text.length", len(text))))
	defer span.End()

	result, err := a.insights.ExtractTextInsights(ctx, text)
	if err != nil {
		a.metrics.ObserveAnalysis(outcomeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insight extraction failed")
		return nil, err
	}

	keywords := ExtractKeywords(text)
	confidence := Confidence(result.Summary, result.Topics, keywords)

	sentiment := ""
	if result.Sentiment != nil {
		sentiment = *result.Sentiment
	}

	record, err := a.store.Create(ctx, models.NewAnalysis{
		OriginalText: text,
		Summary:      result.Summary,
		Title:        result.Title,
		Topics:       result.Topics,
		Sentiment:    sentiment,
		Keywords:     keywords,
		Confidence:   &confidence,
	})
	if err != nil {
		a.metrics.ObserveAnalysis(metrics.OutcomeStore)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save analysis")
		a.logger.Error("failed to save analysis", "error", err)
		return nil, err
	}

	a.metrics.ObserveAnalysis(metrics.OutcomeSuccess)
	span.SetAttributes(
		attribute.Int64("analysis.id", record.ID),
		attribute.Float64("analysis.confidence", confidence),
	)
	a.logger.Info("analysis stored",
		"id", record.ID,
		"topics", len(record.Topics),
		"keywords", len(record.Keywords),
		"sentiment", record.Sentiment,
		"confidence", confidence,
	)
	return record, nil
}

// Search returns stored analyses whose topics or keywords contain term
func (a *Analyzer) Search(ctx context.Context, term string) ([]*models.Analysis, error) {
	results, err := a.store.Search(ctx, term)
	if err != nil {
		return nil, err
	}
	a.metrics.ObserveSearch(len(results))
	return results, nil
}

func outcomeOf(err error) string {
	var cfgErr *insight.ConfigurationError
	switch {
	case errors.Is(err, insight.ErrEmptyText):
		return metrics.OutcomeInvalid
	case errors.As(err, &cfgErr):
		return metrics.OutcomeConfig
	default:
		return metrics.OutcomeRemote
	}
}
