package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/knowledgeextractor/internal/analyzer"
	"github.com/zombar/knowledgeextractor/internal/database"
	"github.com/zombar/knowledgeextractor/internal/insight"
	"github.com/zombar/knowledgeextractor/internal/models"
	"github.com/zombar/knowledgeextractor/internal/queue"
	"github.com/zombar/knowledgeextractor/pkg/logging"
)

const (
	msgEmptyText   = "Input text cannot be empty"
	msgInvalidBody = "Invalid request body"
	msgInternal    = "Internal server error"
)

// Pipeline analyzes and searches texts
type Pipeline interface {
	Analyze(ctx context.Context, text string) (*models.Analysis, error)
	Search(ctx context.Context, term string) ([]*models.Analysis, error)
}

// Jobs runs analyses asynchronously
type Jobs interface {
	EnqueueAnalyze(ctx context.Context, text string) (string, error)
	JobStatus(ctx context.Context, jobID string) (*queue.JobStatus, error)
}

// Config tunes the handler
type Config struct {
	// RequestTimeout bounds one synchronous analysis, remote call included
	RequestTimeout time.Duration
	// MaxBodyBytes caps request bodies
	MaxBodyBytes int64
	// AllowedOrigins for CORS; empty allows any origin
	AllowedOrigins []string
	// Gatherer backs /metrics; nil uses prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Handler handles HTTP requests
type Handler struct {
	pipeline Pipeline
	jobs     Jobs
	cfg      Config
	logger   *slog.Logger
	router   chi.Router
}

// NewHandler creates the API handler with CORS support and metrics.
// jobs may be nil, in which case the asynchronous routes are not served.
func NewHandler(pipeline Pipeline, jobs Jobs, cfg Config) http.Handler {
	h := newHandler(pipeline, jobs, cfg)

	allowed := cfg.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	return c.Handler(h.router)
}

func newHandler(pipeline Pipeline, jobs Jobs, cfg Config) *Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 90 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 2 << 20
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		pipeline: pipeline,
		jobs:     jobs,
		cfg:      cfg,
		logger:   logger,
	}
	h.setupRoutes()
	return h
}

// setupRoutes configures all API routes
func (h *Handler) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(h.cfg.Gatherer, promhttp.HandlerOpts{}))
	r.Post("/analyze", h.wrap(h.handleAnalyze))
	r.Get("/search", h.wrap(h.handleSearch))

	if h.jobs != nil {
		r.Post("/analyze/async", h.wrap(h.handleAnalyzeAsync))
		r.Get("/jobs/{id}", h.wrap(h.handleJobStatus))
	}

	h.router = r
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// requestError is a client error reported with its message
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &requestError{status: http.StatusBadRequest, msg: msg}
}

// internalError hides err from the client behind msg; err is still logged
type internalError struct {
	msg string
	err error
}

func (e *internalError) Error() string { return e.msg + ": " + e.err.Error() }

func (e *internalError) Unwrap() error { return e.err }

// hideStoreError replaces storage details with msg in the response
func hideStoreError(err error, msg string) error {
	var storeErr *database.PersistenceError
	if errors.As(err, &storeErr) {
		return &internalError{msg: msg, err: err}
	}
	return err
}

// wrap maps handler errors to status codes
func (h *Handler) wrap(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		status, msg := statusFor(err)
		logging.HTTPErrorLogger(h.logger, status, err, r)
		respondError(w, msg, status)
	}
}

func statusFor(err error) (int, string) {
	var (
		reqErr    *requestError
		intErr    *internalError
		cfgErr    *insight.ConfigurationError
		remoteErr *insight.RemoteInsightError
	)

	switch {
	case errors.As(err, &reqErr):
		return reqErr.status, reqErr.msg
	case errors.As(err, &intErr):
		return http.StatusInternalServerError, intErr.msg
	case errors.Is(err, analyzer.ErrEmptyInput), errors.Is(err, insight.ErrEmptyText):
		return http.StatusBadRequest, msgEmptyText
	case errors.As(err, &cfgErr), errors.As(err, &remoteErr):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, queue.ErrJobNotFound):
		return http.StatusNotFound, "Job not found"
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

type analyzeRequest struct {
	Text string `json:"text"`
}

// decodeText reads {"text": ...} and rejects text that is empty after trimming
func (h *Handler) decodeText(w http.ResponseWriter, r *http.Request) (string, error) {
	var req analyzeRequest
	body := http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", &requestError{status: http.StatusRequestEntityTooLarge, msg: "Request body too large"}
		}
		return "", badRequest(msgInvalidBody)
	}
	if strings.TrimSpace(req.Text) == "" {
		return "", badRequest(msgEmptyText)
	}

	trace.SpanFromContext(r.Context()).SetAttributes(attribute.Int("text.length", len(req.Text)))
	return req.Text, nil
}

// handleAnalyze runs the pipeline and returns the stored record
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) error {
	text, err := h.decodeText(w, r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	record, err := h.pipeline.Analyze(ctx, text)
	if err != nil {
		return hideStoreError(err, "Failed to save analysis")
	}

	respondJSON(w, record, http.StatusOK)
	return nil
}

// handleSearch returns analyses whose topics or keywords contain the topic parameter
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) error {
	values, ok := r.URL.Query()["topic"]
	if !ok {
		return badRequest("Query parameter 'topic' is required")
	}

	results, err := h.pipeline.Search(r.Context(), values[0])
	if err != nil {
		return hideStoreError(err, "Failed to search analyses")
	}

	respondJSON(w, map[string]any{"results": results}, http.StatusOK)
	return nil
}

// handleAnalyzeAsync enqueues an analysis and returns its job id
func (h *Handler) handleAnalyzeAsync(w http.ResponseWriter, r *http.Request) error {
	text, err := h.decodeText(w, r)
	if err != nil {
		return err
	}

	jobID, err := h.jobs.EnqueueAnalyze(r.Context(), text)
	if err != nil {
		return err
	}

	respondJSON(w, map[string]string{
		"job_id": jobID,
		"status": queue.StatusQueued,
	}, http.StatusAccepted)
	return nil
}

// handleJobStatus reports an asynchronous analysis
func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) error {
	status, err := h.jobs.JobStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}

	respondJSON(w, status, http.StatusOK)
	return nil
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, map[string]string{"detail": message}, statusCode)
}
