package models

import "time"

// Sample execution status constants
const (
	StatusSuccess    = "success"    // Sample solved and scored
	StatusError      = "error"      // Solver or scorer failed
	StatusCancelled  = "cancelled"  // Run was interrupted before the sample finished
	StatusTerminated = "terminated" // A human operator terminated the sample
)

// Run status constants
const (
	RunStarted   = "started"
	RunSuccess   = "success"
	RunError     = "error"
	RunCancelled = "cancelled"
)

// Score is the outcome of scoring one sample
type Score struct {
	Value       float64 `json:"value"`
	Answer      string  `json:"answer,omitempty"`
	Explanation string  `json:"explanation,omitempty"`
	Scorer      string  `json:"scorer,omitempty"`
}

// SampleResult represents the result of running a single sample epoch
type SampleResult struct {
	Task     string        `json:"task"`
	Sample   Sample        `json:"sample"`
	Epoch    int           `json:"epoch"`
	Messages []Message     `json:"messages"`
	Output   string        `json:"output"`
	Score    *Score        `json:"score,omitempty"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Succeeded reports whether the sample finished and was scored
func (r SampleResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// TaskResult represents the aggregate result of running one task
type TaskResult struct {
	Task      string         `json:"task"`
	Model     string         `json:"model"`
	Samples   []SampleResult `json:"samples"`
	Started   time.Time      `json:"started"`
	Completed time.Time      `json:"completed"`
	Duration  time.Duration  `json:"duration"`
}

// Counts returns the number of successful and unsuccessful samples
func (r TaskResult) Counts() (succeeded, failed int) {
	for _, s := range r.Samples {
		if s.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}

// Accuracy returns the mean score over scored samples (0 when none were scored)
func (r TaskResult) Accuracy() float64 {
	var total float64
	var n int
	for _, s := range r.Samples {
		if s.Score == nil {
			continue
		}
		total += s.Score.Value
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// EvalResult represents the aggregate result of an evaluation run
type EvalResult struct {
	RunID    string        `json:"run_id"`
	Status   string        `json:"status"`
	Tasks    []TaskResult  `json:"tasks"`
	Duration time.Duration `json:"duration"`
}

// Totals returns sample counts across all tasks
func (r EvalResult) Totals() (total, succeeded, failed int) {
	for _, t := range r.Tasks {
		s, f := t.Counts()
		succeeded += s
		failed += f
	}
	return succeeded + failed, succeeded, failed
}

// FailedSamples returns every sample that did not succeed
func (r EvalResult) FailedSamples() []SampleResult {
	var failed []SampleResult
	for _, t := range r.Tasks {
		for _, s := range t.Samples {
			if !s.Succeeded() {
				failed = append(failed, s)
			}
		}
	}
	return failed
}
