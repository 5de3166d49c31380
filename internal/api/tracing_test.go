package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

// TestAnalyzeTracing tests that the analyze handler creates proper tracing spans
func TestAnalyzeTracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(noop.NewTracerProvider())

	env := setupWorkingHandler(t, nil)

	ctx, span := tp.Tracer("test").Start(context.Background(), "test-request")
	req := postJSON("/analyze", analyzeBody(testText)).WithContext(ctx)

	w := httptest.NewRecorder()
	env.handler.router.ServeHTTP(w, req)
	span.End()

	tp.ForceFlush(context.Background())
	spans := exporter.GetSpans()

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(spans) == 0 {
		t.Fatal("No spans were recorded")
	}

	traceID := span.SpanContext().TraceID()
	for _, name := range []string{"analyzer.analyze", "ai.extract_insights", "database.save_analysis"} {
		stub := findSpan(spans, name)
		if stub == nil {
			t.Errorf("%s span not found, available spans: %v", name, getSpanNames(spans))
			continue
		}
		if stub.SpanContext.TraceID() != traceID {
			t.Errorf("%s span is not part of the request trace", name)
		}
	}

	if analyze := findSpan(spans, "analyzer.analyze"); analyze != nil {
		if !hasAttribute(analyze, "text.length") {
			t.Error("text.length attribute not found on analyzer.analyze span")
		}
		if !hasAttribute(analyze, "analysis.id") {
			t.Error("analysis.id attribute not found on analyzer.analyze span")
		}
	}

	if save := findSpan(spans, "database.save_analysis"); save != nil {
		if !hasAttribute(save, "analysis.id") {
			t.Error("analysis.id attribute not found on database.save_analysis span")
		}
	}
}

func findSpan(spans tracetest.SpanStubs, name string) *tracetest.SpanStub {
	for i := range spans {
		if spans[i].Name == name {
			return &spans[i]
		}
	}
	return nil
}

func hasAttribute(span *tracetest.SpanStub, key string) bool {
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			return true
		}
	}
	return false
}

// getSpanNames returns a list of span names for debugging
func getSpanNames(spans tracetest.SpanStubs) []string {
	names := make([]string, len(spans))
	for i, span := range spans {
		names[i] = span.Name
	}
	return names
}
