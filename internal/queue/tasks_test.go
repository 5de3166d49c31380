package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zombar/knowledgeextractor/internal/analyzer"
	"github.com/zombar/knowledgeextractor/internal/models"
)

type fakeAnalyzer struct {
	record *models.Analysis
	err    error
	texts  []string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, text string) (*models.Analysis, error) {
	f.texts = append(f.texts, text)
	return f.record, f.err
}

func newTestWorker(a Analyzer) *Worker {
	return &Worker{analyzer: a, logger: slog.Default()}
}

func TestHandleAnalyze(t *testing.T) {
	fake := &fakeAnalyzer{record: &models.Analysis{ID: 42, Topics: []string{"ai"}, Keywords: []string{}}}
	w := newTestWorker(fake)

	task, err := newAnalyzeTask(context.Background(), "job-1", "Text to analyze", time.Now())
	require.NoError(t, err)

	require.NoError(t, w.handleAnalyze(context.Background(), task))
	assert.Equal(t, []string{"Text to analyze"}, fake.texts)
}

func TestHandleAnalyzeInvalidPayload(t *testing.T) {
	w := newTestWorker(&fakeAnalyzer{})

	err := w.handleAnalyze(context.Background(), asynq.NewTask(TypeAnalyze, []byte("{broken")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleAnalyzeEmptyTextSkipsRetry(t *testing.T) {
	w := newTestWorker(&fakeAnalyzer{err: analyzer.ErrEmptyInput})

	payload, _ := json.Marshal(AnalyzePayload{JobID: "job-2", Text: "  "})
	err := w.handleAnalyze(context.Background(), asynq.NewTask(TypeAnalyze, payload))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleAnalyzePropagatesFailure(t *testing.T) {
	remote := errors.New("LLM call failed: timeout")
	w := newTestWorker(&fakeAnalyzer{err: remote})

	payload, _ := json.Marshal(AnalyzePayload{JobID: "job-3", Text: "text"})
	err := w.handleAnalyze(context.Background(), asynq.NewTask(TypeAnalyze, payload))
	assert.ErrorIs(t, err, remote)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}
