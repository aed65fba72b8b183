package eval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrSampleTerminated is returned by solvers when a human operator ends a
// sample early. The sample is recorded as terminated rather than failed.
var ErrSampleTerminated = errors.New("sample terminated by operator")

// SampleError represents an error that occurred while running one sample
// epoch. It includes context about which sample failed and when.
type SampleError struct {
	Task      string    // Task the sample belongs to
	SampleID  string    // Sample id
	Epoch     int       // 1-based epoch
	Message   string    // Human-readable error message
	Err       error     // Underlying error (optional)
	Timestamp time.Time // When the error occurred
}

// NewSampleError creates a new SampleError with the current timestamp.
func NewSampleError(task, sampleID string, epoch int, msg string, err error) *SampleError {
	return &SampleError{
		Task:      task,
		SampleID:  sampleID,
		Epoch:     epoch,
		Message:   msg,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// Error implements the error interface for SampleError.
func (e *SampleError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("sample %s/%s (epoch %d): %s", e.Task, e.SampleID, e.Epoch, e.Message))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *SampleError) Unwrap() error {
	return e.Err
}

// EvalError aggregates the sample errors of a run.
type EvalError struct {
	SampleErrors  []*SampleError // Individual sample errors
	TotalSamples  int            // Number of sample epochs attempted
	FailedSamples int            // Number of sample epochs that failed
}

// NewEvalError creates an empty EvalError.
func NewEvalError() *EvalError {
	return &EvalError{SampleErrors: []*SampleError{}}
}

// AddSample adds a sample error and increments the failed sample count.
func (e *EvalError) AddSample(sampleErr *SampleError) {
	e.SampleErrors = append(e.SampleErrors, sampleErr)
	e.FailedSamples++
}

// HasErrors reports whether any sample failed.
func (e *EvalError) HasErrors() bool {
	return e.FailedSamples > 0
}

// Error implements the error interface for EvalError.
func (e *EvalError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("evaluation failed: %d/%d samples failed", e.FailedSamples, e.TotalSamples))

	if len(e.SampleErrors) > 0 {
		sb.WriteString(":")
		for _, sampleErr := range e.SampleErrors {
			sb.WriteString(fmt.Sprintf("\n  - %s", sampleErr.Error()))
		}
	}

	return sb.String()
}

// Unwrap returns the sample errors so errors.Is and errors.As can traverse
// them.
func (e *EvalError) Unwrap() []error {
	if len(e.SampleErrors) == 0 {
		return nil
	}

	errs := make([]error, len(e.SampleErrors))
	for i, sampleErr := range e.SampleErrors {
		errs[i] = sampleErr
	}
	return errs
}

// IsEvalError checks if the error is or wraps an EvalError.
func IsEvalError(err error) bool {
	if err == nil {
		return false
	}
	var ee *EvalError
	return errors.As(err, &ee)
}

// IsTimeoutError checks if the error is or wraps context.DeadlineExceeded.
func IsTimeoutError(err error) bool {
	return err != nil && errors.Is(err, context.DeadlineExceeded)
}
