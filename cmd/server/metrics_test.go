package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/zombar/knowledgeextractor/internal/config"
	"github.com/zombar/knowledgeextractor/internal/metrics"
	"github.com/zombar/knowledgeextractor/internal/models"
)

type stubPipeline struct{}

func (stubPipeline) Analyze(ctx context.Context, text string) (*models.Analysis, error) {
	return &models.Analysis{ID: 1, OriginalText: text}, nil
}

func (stubPipeline) Search(ctx context.Context, term string) ([]*models.Analysis, error) {
	return []*models.Analysis{}, nil
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics.New(reg).ObserveAnalysis(metrics.OutcomeSuccess)

	cfg, err := config.LoadFile("testdata/does-not-exist.yaml")
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	handler := newServerHandler(cfg, stubPipeline{}, nil, reg, logger)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	resp := w.Result()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/plain") {
		t.Errorf("Expected content-type to contain 'text/plain', got '%s'", contentType)
	}

	body := w.Body.String()

	expectedMetrics := []string{
		"go_goroutines",
		"go_info",
		`knowledge_analyses_total{outcome="success"} 1`,
		"knowledge_jobs_enqueued_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(body, metric) {
			t.Errorf("Expected metrics to contain '%s'", metric)
		}
	}
}

func TestServerHandlerRoutes(t *testing.T) {
	cfg, err := config.LoadFile("testdata/does-not-exist.yaml")
	if err != nil {
		t.Fatalf("Failed to load default config: %v", err)
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	handler := newServerHandler(cfg, stubPipeline{}, nil, prometheus.NewRegistry(), logger)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 from /health, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/search?topic=go", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 from /search, got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != `{"results":[]}` {
		t.Errorf("Unexpected search body %s", body)
	}
}
