package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/evalrun/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult(id string, epoch int, status string) models.SampleResult {
	r := models.SampleResult{
		Task:   "arith",
		Sample: models.Sample{ID: id, Input: "2+2?", Target: []string{"4", "four"}},
		Epoch:  epoch,
		Messages: []models.Message{
			models.UserMessage("2+2?"),
			models.AssistantMessage("", models.ToolCall{ID: "c1", Function: "calc", Arguments: map[string]interface{}{"expr": "2+2"}}),
			models.ToolMessage(models.ToolCall{ID: "c1", Function: "calc"}, "4", nil),
			models.AssistantMessage("4"),
		},
		Output:   "4",
		Status:   status,
		Duration: 1500 * time.Millisecond,
	}
	if status == models.StatusSuccess {
		r.Score = &models.Score{Value: 1, Answer: "4", Scorer: "match"}
	} else {
		r.Error = "model overloaded"
	}
	return r
}

func TestNewStore(t *testing.T) {
	tests := []struct {
		name    string
		dbPath  string
		wantErr bool
	}{
		{"creates database successfully", filepath.Join(t.TempDir(), "evals.db"), false},
		{"handles in-memory database", ":memory:", false},
		{"creates parent directories if needed", filepath.Join(t.TempDir(), "nested", "dir", "evals.db"), false},
		{"returns error for invalid path", "/proc/evalrun/nonexistent/evals.db", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewStore(tt.dbPath)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer s.Close()

			version, err := s.GetLatestVersion()
			require.NoError(t, err)
			assert.Equal(t, len(migrations), version)
			assert.Equal(t, tt.dbPath, s.dbPath)
		})
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evals.db")
	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.ApplyMigrations(context.Background()))

	version, err := s.GetLatestVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, "run-1", []string{"arith", "trivia"}, "mockllm/model"))
	require.NoError(t, s.SaveSample(ctx, "run-1", sampleResult("1", 1, models.StatusSuccess)))
	require.NoError(t, s.SaveSample(ctx, "run-1", sampleResult("2", 1, models.StatusError)))
	require.NoError(t, s.FinishRun(ctx, "run-1", models.RunError))

	run, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"arith", "trivia"}, run.Tasks)
	assert.Equal(t, "mockllm/model", run.Model)
	assert.Equal(t, models.RunError, run.Status)
	assert.Equal(t, 2, run.Samples)
	assert.Equal(t, 1, run.Succeeded)
	require.NotNil(t, run.FinishedAt)
	assert.False(t, run.CreatedAt.IsZero())

	err = s.FinishRun(ctx, "missing", models.RunSuccess)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSaveSampleForUnknownRun(t *testing.T) {
	s := newTestStore(t)
	err := s.SaveSample(context.Background(), "nope", sampleResult("1", 1, models.StatusSuccess))
	assert.Error(t, err)
}

func TestLoadSamples(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, "run-1", []string{"arith"}, ""))
	want := sampleResult("1", 1, models.StatusSuccess)
	require.NoError(t, s.SaveSample(ctx, "run-1", sampleResult("2", 1, models.StatusError)))
	require.NoError(t, s.SaveSample(ctx, "run-1", want))
	require.NoError(t, s.SaveSample(ctx, "run-1", sampleResult("1", 2, models.StatusSuccess)))

	all, err := s.LoadSamples(ctx, "run-1", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 1, all[0].Epoch)
	assert.Equal(t, 2, all[2].Epoch)

	got, err := s.LoadSamples(ctx, "run-1", "1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, want.Sample, first.Sample)
	assert.Equal(t, want.Output, first.Output)
	assert.Equal(t, want.Status, first.Status)
	assert.Equal(t, want.Score, first.Score)
	assert.Equal(t, want.Duration, first.Duration)
	require.Len(t, first.Messages, 4)
	assert.Equal(t, "calc", first.Messages[1].ToolCalls[0].Function)
	assert.Equal(t, "2+2", first.Messages[1].ToolCalls[0].Arguments["expr"])
	assert.Equal(t, "c1", first.Messages[2].ToolCallID)
	assert.Equal(t, models.RoleTool, first.Messages[2].Role)

	failed, err := s.LoadSamples(ctx, "run-1", "2")
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Nil(t, failed[0].Score)
	assert.Equal(t, "model overloaded", failed[0].Error)
}

func TestSaveSampleReplacesEarlierResult(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateRun(ctx, "run-1", []string{"arith"}, ""))

	require.NoError(t, s.SaveSample(ctx, "run-1", sampleResult("1", 1, models.StatusError)))
	retry := sampleResult("1", 1, models.StatusSuccess)
	retry.Messages = retry.Messages[:1]
	require.NoError(t, s.SaveSample(ctx, "run-1", retry))

	got, err := s.LoadSamples(ctx, "run-1", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.StatusSuccess, got[0].Status)
	assert.Len(t, got[0].Messages, 1)
}

func TestUpdateScore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateRun(ctx, "run-1", []string{"arith"}, ""))
	require.NoError(t, s.SaveSample(ctx, "run-1", sampleResult("1", 1, models.StatusSuccess)))

	score := models.Score{Value: 0.5, Answer: "4", Explanation: "partially right", Scorer: "human"}
	require.NoError(t, s.UpdateScore(ctx, "run-1", "arith", "1", 1, score))

	got, err := s.LoadSamples(ctx, "run-1", "1")
	require.NoError(t, err)
	assert.Equal(t, &score, got[0].Score)

	err = s.UpdateScore(ctx, "run-1", "arith", "9", 1, score)
	assert.ErrorIs(t, err, ErrSampleNotFound)
}

func TestListRunsAndPrefixLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateRun(ctx, "abc-111", []string{"a"}, ""))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.CreateRun(ctx, "abc-222", []string{"b"}, ""))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.CreateRun(ctx, "xyz_333", []string{"c"}, ""))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "xyz_333", runs[0].ID)
	assert.Equal(t, "abc-111", runs[2].ID)
	assert.Equal(t, models.RunStarted, runs[0].Status)
	assert.Equal(t, 0, runs[0].Samples)

	limited, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	run, err := s.GetRun(ctx, "abc-2")
	require.NoError(t, err)
	assert.Equal(t, "abc-222", run.ID)

	_, err = s.GetRun(ctx, "abc")
	assert.ErrorIs(t, err, ErrAmbiguousRun)

	_, err = s.GetRun(ctx, "xyz%")
	assert.ErrorIs(t, err, ErrRunNotFound)

	_, err = s.GetRun(ctx, "")
	assert.ErrorIs(t, err, ErrRunNotFound)
}
