package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/evalrun/internal/eval"
	"github.com/harrison/evalrun/internal/filelock"
	"github.com/harrison/evalrun/internal/models"
	"github.com/harrison/evalrun/internal/store"
)

const mockTask = `name: mock-answers
model: mockllm/model
samples:
  - id: one
    input: Say something.
    target: mockllm/model
  - id: two
    input: Say something else.
    target: something unexpected
`

// workspace holds the paths used by one command test.
type workspace struct {
	dir    string
	config string
	store  string
	logDir string
}

func newWorkspace(t *testing.T) workspace {
	t.Helper()
	t.Setenv("EVALRUN_HOME", "")
	dir := t.TempDir()
	return workspace{
		dir:    dir,
		config: filepath.Join(dir, "config.yaml"),
		store:  filepath.Join(dir, "evals.db"),
		logDir: filepath.Join(dir, "logs"),
	}
}

func (w workspace) writeTask(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(w.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// execute runs the root command with args and stdin and returns its output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// runMockEval evaluates mockTask and returns the stored run.
func runMockEval(t *testing.T, w workspace) store.Run {
	t.Helper()
	task := w.writeTask(t, "mock.yaml", mockTask)
	_, err := execute(t, "", "eval", task,
		"--config", w.config, "--store", w.store, "--log-dir", w.logDir, "--display", "none")
	require.NoError(t, err)

	st, err := store.NewStore(w.store)
	require.NoError(t, err)
	defer st.Close()
	runs, err := st.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	return runs[0]
}

func TestRootCommand(t *testing.T) {
	out, err := execute(t, "", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "evalrun")
	for _, sub := range []string{"eval", "list", "transcript", "score"} {
		assert.Contains(t, out, sub)
	}
}

func TestRootCommandVersion(t *testing.T) {
	out, err := execute(t, "", "--version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}

func TestEvalCommand(t *testing.T) {
	w := newWorkspace(t)
	task := w.writeTask(t, "mock.yaml", mockTask)

	out, err := execute(t, "", "eval", task,
		"--config", w.config, "--store", w.store, "--log-dir", w.logDir, "--display", "plain", "--no-color")
	require.NoError(t, err)

	assert.Contains(t, out, "Running mock-answers: 2 samples")
	assert.Contains(t, out, "Eval log: ")
	assert.Contains(t, out, "success, 2/2 samples succeeded")

	logs, err := filepath.Glob(filepath.Join(w.logDir, "*.json"))
	require.NoError(t, err)
	require.Len(t, logs, 1)

	result, err := filelock.ReadEvalLog(logs[0])
	require.NoError(t, err)
	assert.Equal(t, models.RunSuccess, result.Status)
	require.Len(t, result.Tasks, 1)
	assert.InDelta(t, 0.5, result.Tasks[0].Accuracy(), 1e-9)

	st, err := store.NewStore(w.store)
	require.NoError(t, err)
	defer st.Close()
	run, err := st.GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Equal(t, models.RunSuccess, run.Status)
	assert.Equal(t, 2, run.Samples)
}

func TestEvalCommandDryRun(t *testing.T) {
	w := newWorkspace(t)
	task := w.writeTask(t, "mock.yaml", mockTask)

	out, err := execute(t, "", "eval", task, "--config", w.config, "--store", w.store, "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "mock-answers")
	assert.Contains(t, out, "generate")
	assert.Contains(t, out, "1 task(s) are valid and ready to run.")
	_, statErr := os.Stat(w.store)
	assert.True(t, os.IsNotExist(statErr), "dry run must not create the store")
}

func TestEvalCommandErrors(t *testing.T) {
	w := newWorkspace(t)
	task := w.writeTask(t, "mock.yaml", mockTask)
	badScorer := w.writeTask(t, "bad.yaml", "name: bad\nscorer: nonsense\nsamples:\n  - input: hi\n")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"invalid display", []string{"eval", task, "--display", "fancy"}, "invalid display"},
		{"invalid timeout", []string{"eval", task, "--timeout", "soon"}, "invalid timeout format"},
		{"missing task file", []string{"eval", filepath.Join(w.dir, "missing.yaml")}, "failed to load tasks"},
		{"unknown scorer", []string{"eval", badScorer, "--display", "none"}, `unknown scorer "nonsense"`},
		{"no args", []string{"eval"}, "requires at least 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(tt.args, "--config", w.config, "--store", w.store, "--log-dir", w.logDir)
			_, err := execute(t, "", args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestListCommand(t *testing.T) {
	w := newWorkspace(t)

	out, err := execute(t, "", "list", "--config", w.config, "--store", w.store)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded yet.")

	run := runMockEval(t, w)

	out, err = execute(t, "", "list", "--config", w.config, "--store", w.store)
	require.NoError(t, err)
	assert.Contains(t, out, "RUN")
	assert.Contains(t, out, shortID(run.ID))
	assert.Contains(t, out, "mock-answers")
	assert.Contains(t, out, "2/2")
}

func TestTranscriptCommand(t *testing.T) {
	w := newWorkspace(t)
	run := runMockEval(t, w)

	out, err := execute(t, "", "transcript", shortID(run.ID), "--config", w.config, "--store", w.store, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "mock-answers / one")
	assert.Contains(t, out, "mock-answers / two")
	assert.Contains(t, out, "Say something.")
	assert.Contains(t, out, "Default output from mockllm/model")

	out, err = execute(t, "", "transcript", run.ID, "--sample", "two", "--config", w.config, "--store", w.store, "--no-color")
	require.NoError(t, err)
	assert.NotContains(t, out, "mock-answers / one")
	assert.Contains(t, out, "mock-answers / two")
}

func TestTranscriptCommandRaw(t *testing.T) {
	w := newWorkspace(t)
	run := runMockEval(t, w)

	out, err := execute(t, "", "transcript", run.ID, "--raw", "--sample", "one", "--config", w.config, "--store", w.store)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "["))
	assert.Contains(t, out, `"task": "mock-answers"`)
	assert.Contains(t, out, `"status": "success"`)
}

func TestTranscriptCommandErrors(t *testing.T) {
	w := newWorkspace(t)
	run := runMockEval(t, w)

	_, err := execute(t, "", "transcript", "does-not-exist", "--config", w.config, "--store", w.store)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrRunNotFound)

	_, err = execute(t, "", "transcript", run.ID, "--sample", "nope", "--config", w.config, "--store", w.store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no samples found")

	_, err = execute(t, "", "transcript", run.ID, "--task", "other", "--config", w.config, "--store", w.store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no samples found")
}

func TestScoreCommand(t *testing.T) {
	w := newWorkspace(t)
	run := runMockEval(t, w)

	// Out of range first, then a valid score and an explanation.
	stdin := "1.5\n0.25\npartly right\n"
	out, err := execute(t, stdin, "score", run.ID, "--sample", "one", "--config", w.config, "--store", w.store, "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Score: mock-answers / one")
	assert.Contains(t, out, "Please enter a score between 0 and 1")
	assert.Contains(t, out, "Scored 1 sample(s)")

	st, err := store.NewStore(w.store)
	require.NoError(t, err)
	defer st.Close()
	samples, err := st.LoadSamples(context.Background(), run.ID, "one")
	require.NoError(t, err)
	require.Len(t, samples, 1)
	require.NotNil(t, samples[0].Score)
	assert.Equal(t, 0.25, samples[0].Score.Value)
	assert.Equal(t, "human", samples[0].Score.Scorer)
	assert.Equal(t, "partly right", samples[0].Score.Explanation)
}

func TestScoreCommandInputEnds(t *testing.T) {
	w := newWorkspace(t)
	run := runMockEval(t, w)

	_, err := execute(t, "", "score", run.ID, "--config", w.config, "--store", w.store, "--no-color")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "human scorer")
}

func TestEvalCommandFailedSamplesPointToTranscript(t *testing.T) {
	w := newWorkspace(t)
	task := w.writeTask(t, "judged.yaml", "name: judged\nmodel: mockllm/model\nscorer: human\nsamples:\n  - input: hi\n")

	_, err := execute(t, "", "eval", task,
		"--config", w.config, "--store", w.store, "--log-dir", w.logDir, "--display", "none")
	require.Error(t, err)
	assert.True(t, eval.IsEvalError(err))
	assert.Contains(t, err.Error(), "Inspect the failed samples with: evalrun transcript ")
}

func TestDescribeRunError(t *testing.T) {
	result := &models.EvalResult{RunID: "0123456789abcdef"}

	assert.NoError(t, describeRunError(nil, result, 0))

	timeout := describeRunError(fmt.Errorf("task a: %w", context.DeadlineExceeded), result, 30*time.Second)
	assert.ErrorIs(t, timeout, context.DeadlineExceeded)
	assert.Contains(t, timeout.Error(), "after the 30s timeout")

	evalErr := eval.NewEvalError()
	evalErr.AddSample(eval.NewSampleError("a", "1", 1, "failed", nil))
	failed := describeRunError(evalErr, result, 0)
	assert.True(t, eval.IsEvalError(failed))
	assert.Contains(t, failed.Error(), "evalrun transcript 01234567")

	plain := errors.New("boom")
	assert.Equal(t, plain, describeRunError(plain, result, 0))
}
