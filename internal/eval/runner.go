package eval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/evalrun/internal/display"
	"github.com/harrison/evalrun/internal/logger"
	"github.com/harrison/evalrun/internal/model"
	"github.com/harrison/evalrun/internal/models"
	"github.com/harrison/evalrun/internal/tool"
)

// Recorder persists runs and sample results as they complete.
type Recorder interface {
	CreateRun(ctx context.Context, runID string, tasks []string, model string) error
	SaveSample(ctx context.Context, runID string, result models.SampleResult) error
	FinishRun(ctx context.Context, runID string, status string) error
}

// Config configures a Runner
type Config struct {
	Model          string        // Model for tasks that do not set one
	MaxSamples     int           // Concurrent samples per task (0 = unlimited)
	MaxConnections int           // Concurrent model requests per task (0 = unlimited)
	Timeout        time.Duration // Limit for the whole run (0 = none)
	Serial         bool          // Run one sample at a time regardless of MaxSamples
	Approver       Approver      // Tool call approval; nil approves everything
	Tools          tool.Options  // Tool settings; a nil web search model uses the task's model

	// NewModel resolves model names. Defaults to model.Get.
	NewModel func(name string) (model.Model, error)
}

// Runner executes tasks one after another, running each task's samples in
// parallel with bounded concurrency.
type Runner struct {
	cfg      Config
	display  display.Display
	logger   logger.Logger
	recorder Recorder
}

// NewRunner constructs a Runner. The logger and recorder are optional.
func NewRunner(cfg Config, disp display.Display, log logger.Logger, rec Recorder) *Runner {
	if cfg.NewModel == nil {
		cfg.NewModel = model.Get
	}
	if cfg.Approver == nil {
		cfg.Approver = AutoApprover{}
	}
	if disp == nil {
		disp = display.New(display.ModeNone, display.Options{})
	}
	if log == nil {
		log = &logger.NoOpLogger{}
	}
	return &Runner{cfg: cfg, display: disp, logger: log, recorder: rec}
}

// Run evaluates tasks and returns the aggregated result. SIGINT and SIGTERM
// cancel the run; samples that had not finished are recorded as cancelled.
// The error is non-nil when the run was cancelled, a task could not be set
// up, or any sample failed (an *EvalError).
func (r *Runner) Run(ctx context.Context, tasks []models.Task) (*models.EvalResult, error) {
	if len(tasks) == 0 {
		return nil, errors.New("no tasks to run")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if r.cfg.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancelTimeout()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			r.logger.LogWarn("Received interrupt signal, shutting down gracefully...")
			// a second signal terminates the process
			signal.Stop(sigChan)
			cancel()
		case <-ctx.Done():
		}
	}()

	result := &models.EvalResult{RunID: uuid.NewString(), Status: models.RunStarted}
	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = t.Name
	}

	if r.recorder != nil {
		if err := r.recorder.CreateRun(ctx, result.RunID, names, r.cfg.Model); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
	}
	r.logger.LogInfo(fmt.Sprintf("Run %s: %d task(s)", result.RunID, len(tasks)))

	startTime := time.Now()
	evalErr := NewEvalError()
	var runErr error

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		taskResult, err := r.runTask(ctx, result.RunID, task)
		if taskResult != nil {
			result.Tasks = append(result.Tasks, *taskResult)
			collectErrors(evalErr, *taskResult)
		}
		if err != nil {
			runErr = err
			break
		}
	}

	result.Duration = time.Since(startTime)
	switch {
	case runErr != nil && ctx.Err() != nil:
		result.Status = models.RunCancelled
	case runErr != nil || evalErr.HasErrors():
		result.Status = models.RunError
	default:
		result.Status = models.RunSuccess
	}

	if r.recorder != nil {
		if err := r.recorder.FinishRun(context.WithoutCancel(ctx), result.RunID, result.Status); err != nil {
			r.logger.LogWarn(fmt.Sprintf("Failed to record run status: %v", err))
		}
	}
	r.logger.LogSummary(*result)

	if runErr != nil {
		return result, runErr
	}
	if evalErr.HasErrors() {
		return result, evalErr
	}
	return result, nil
}

func collectErrors(evalErr *EvalError, result models.TaskResult) {
	for _, s := range result.Samples {
		evalErr.TotalSamples++
		if s.Status == models.StatusError {
			evalErr.AddSample(NewSampleError(s.Task, s.Sample.ID, s.Epoch, s.Error, nil))
		}
	}
}

// sampleJob is one sample epoch of a task.
type sampleJob struct {
	index  int
	sample models.Sample
	epoch  int
}

type sampleExecutionResult struct {
	index  int
	result models.SampleResult
}

// taskSetup holds what every sample of a task shares.
type taskSetup struct {
	model  model.Model
	tools  []tool.Tool
	solver Solver
	scorer Scorer
}

func (r *Runner) setupTask(task models.Task) (*taskSetup, error) {
	modelName := task.Model
	if modelName == "" {
		modelName = r.cfg.Model
	}
	m, err := r.cfg.NewModel(modelName)
	if err != nil {
		return nil, err
	}
	m = model.WithMaxConnections(m, r.cfg.MaxConnections)

	toolOpts := r.cfg.Tools
	if toolOpts.WebSearch.Model == nil {
		toolOpts.WebSearch.Model = m
	}
	tools, err := tool.Build(task.Tools, toolOpts)
	if err != nil {
		return nil, err
	}

	solver, err := BuildSolvers(task.Solvers)
	if err != nil {
		return nil, err
	}
	scorer, err := BuildScorer(task.Scorer)
	if err != nil {
		return nil, err
	}
	return &taskSetup{model: m, tools: tools, solver: solver, scorer: scorer}, nil
}

// runTask runs every sample epoch of task. It returns a nil result only when
// the task could not be set up.
func (r *Runner) runTask(ctx context.Context, runID string, task models.Task) (*models.TaskResult, error) {
	if err := task.Validate(); err != nil {
		return nil, err
	}
	task.AssignSampleIDs()

	setup, err := r.setupTask(task)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", task.Name, err)
	}

	var jobs []sampleJob
	for epoch := 1; epoch <= task.EpochCount(); epoch++ {
		for _, sample := range task.Samples {
			jobs = append(jobs, sampleJob{index: len(jobs), sample: sample, epoch: epoch})
		}
	}
	total := len(jobs)

	maxConcurrency := r.cfg.MaxSamples
	if r.cfg.Serial {
		maxConcurrency = 1
	}
	if maxConcurrency <= 0 || maxConcurrency > total {
		maxConcurrency = total
	}

	taskResult := &models.TaskResult{
		Task:    task.Name,
		Model:   setup.model.Name(),
		Started: time.Now(),
	}
	r.display.TaskStart(task.Name, total)
	r.logger.LogTaskStart(task, total)

	semaphore := make(chan struct{}, maxConcurrency)
	resultsCh := make(chan sampleExecutionResult, total)
	var wg sync.WaitGroup

	go func() {
		defer func() {
			wg.Wait()
			close(resultsCh)
		}()
		for _, job := range jobs {
			// Check context before acquiring semaphore to avoid blocking on a cancelled context
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}:
			}
			if ctx.Err() != nil {
				<-semaphore
				return
			}

			wg.Add(1)
			go func(job sampleJob) {
				defer wg.Done()
				defer func() { <-semaphore }()
				resultsCh <- sampleExecutionResult{index: job.index, result: r.runSample(ctx, task.Name, setup, job)}
			}(job)
		}
	}()

	results := make([]models.SampleResult, total)
	finished := make([]bool, total)
	completed := 0
	report := func(res models.SampleResult) {
		completed++
		r.display.SampleComplete(res)
		if err := r.logger.LogSampleResult(res); err != nil {
			r.logger.LogWarn(fmt.Sprintf("Failed to log sample %s: %v", res.Sample.ID, err))
		}
		if r.recorder != nil {
			if err := r.recorder.SaveSample(context.WithoutCancel(ctx), runID, res); err != nil {
				r.logger.LogWarn(fmt.Sprintf("Failed to record sample %s: %v", res.Sample.ID, err))
			}
		}
		r.logger.LogProgress(task.Name, completed, total)
	}

	for executionResult := range resultsCh {
		results[executionResult.index] = executionResult.result
		finished[executionResult.index] = true
		report(executionResult.result)
	}

	// Samples never launched because the run was cancelled
	for _, job := range jobs {
		if finished[job.index] {
			continue
		}
		res := models.SampleResult{
			Task:   task.Name,
			Sample: job.sample,
			Epoch:  job.epoch,
			Status: models.StatusCancelled,
		}
		results[job.index] = res
		report(res)
	}

	taskResult.Samples = results
	taskResult.Completed = time.Now()
	taskResult.Duration = taskResult.Completed.Sub(taskResult.Started)

	r.display.TaskComplete(*taskResult)
	r.logger.LogTaskComplete(*taskResult)

	return taskResult, ctx.Err()
}

// runSample solves and scores one sample epoch. Errors are recorded in the
// result, never returned, so one sample cannot stop its siblings.
func (r *Runner) runSample(ctx context.Context, taskName string, setup *taskSetup, job sampleJob) models.SampleResult {
	// Each sample gets its own context so concurrent input screens queue
	// instead of being taken for nested ones.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	state := &TaskState{
		Task:     taskName,
		Sample:   job.sample,
		Epoch:    job.epoch,
		Model:    setup.model,
		Tools:    setup.tools,
		Approver: r.cfg.Approver,
		Display:  r.display,
	}
	r.display.SampleStart(state.Ref())
	state.Append(models.UserMessage(job.sample.Input))

	result := models.SampleResult{
		Task:   taskName,
		Sample: job.sample,
		Epoch:  job.epoch,
	}

	err := setup.solver.Solve(ctx, state)
	if err == nil {
		var score models.Score
		score, err = setup.scorer.Score(ctx, state)
		if err == nil {
			result.Score = &score
		}
	}

	result.Messages = state.Messages
	result.Output = state.Output
	result.Duration = time.Since(start)

	switch {
	case err == nil:
		result.Status = models.StatusSuccess
	case errors.Is(err, ErrSampleTerminated):
		result.Status = models.StatusTerminated
		result.Error = err.Error()
	case ctx.Err() != nil:
		result.Status = models.StatusCancelled
		result.Error = ctx.Err().Error()
	default:
		result.Status = models.StatusError
		result.Error = err.Error()
	}
	return result
}
