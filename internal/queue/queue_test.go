package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnalyzeTask(t *testing.T) {
	now := time.Unix(1700000000, 0)

	task, err := newAnalyzeTask(context.Background(), "job-123", "Sample text for analysis", now)
	require.NoError(t, err)
	assert.Equal(t, TypeAnalyze, task.Type())

	var payload AnalyzePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "job-123", payload.JobID)
	assert.Equal(t, "Sample text for analysis", payload.Text)
	assert.Equal(t, now.UnixNano(), payload.EnqueuedAt)
	assert.Empty(t, payload.TraceID, "no span in context")
	assert.Empty(t, payload.SpanID)
}

func TestStatusFromInfo(t *testing.T) {
	record := `{"id":7,"created_at":"2025-03-01T12:00:00Z","original_text":"t","summary":"s","title":null,"topics":["ai"],"sentiment":"","keywords":[],"confidence":0.5}`

	tests := []struct {
		name        string
		info        *asynq.TaskInfo
		status      string
		errMsg      string
		hasAnalysis bool
	}{
		{"pending", &asynq.TaskInfo{ID: "a", State: asynq.TaskStatePending}, StatusQueued, "", false},
		{"scheduled", &asynq.TaskInfo{ID: "a", State: asynq.TaskStateScheduled}, StatusQueued, "", false},
		{"active", &asynq.TaskInfo{ID: "a", State: asynq.TaskStateActive}, StatusProcessing, "", false},
		{"completed", &asynq.TaskInfo{ID: "a", State: asynq.TaskStateCompleted, Result: []byte(record)}, StatusCompleted, "", true},
		{"completed without result", &asynq.TaskInfo{ID: "a", State: asynq.TaskStateCompleted}, StatusCompleted, "", false},
		{"archived", &asynq.TaskInfo{ID: "a", State: asynq.TaskStateArchived, LastErr: "LLM call failed: timeout"}, StatusFailed, "LLM call failed: timeout", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := statusFromInfo(tt.info)
			require.NoError(t, err)
			assert.Equal(t, "a", status.JobID)
			assert.Equal(t, tt.status, status.Status)
			assert.Equal(t, tt.errMsg, status.Error)
			assert.Equal(t, tt.hasAnalysis, status.Analysis != nil)
		})
	}
}

func TestStatusFromInfoDecodesAnalysis(t *testing.T) {
	info := &asynq.TaskInfo{
		ID:     "job-1",
		State:  asynq.TaskStateCompleted,
		Result: []byte(`{"id":7,"created_at":"2025-03-01T12:00:00Z","original_text":"t","summary":"s","title":"T","topics":["ai","ml"],"sentiment":"positive","keywords":["go"],"confidence":0.5}`),
	}

	status, err := statusFromInfo(info)
	require.NoError(t, err)
	require.NotNil(t, status.Analysis)
	assert.Equal(t, int64(7), status.Analysis.ID)
	assert.Equal(t, []string{"ai", "ml"}, status.Analysis.Topics)
	assert.Equal(t, "positive", status.Analysis.Sentiment)
	require.NotNil(t, status.Analysis.Confidence)
	assert.Equal(t, 0.5, *status.Analysis.Confidence)
}

func TestStatusFromInfoBadResult(t *testing.T) {
	_, err := statusFromInfo(&asynq.TaskInfo{ID: "a", State: asynq.TaskStateCompleted, Result: []byte("not json")})
	assert.Error(t, err)
}

func TestJobStatusJSONOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(JobStatus{JobID: "a", Status: StatusQueued})
	require.NoError(t, err)
	assert.JSONEq(t, `{"job_id":"a","status":"queued"}`, string(data))
}
