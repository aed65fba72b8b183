package models

import (
	"errors"
	"fmt"
)

// Sample is a single evaluation input with its expected targets
type Sample struct {
	ID       string                 `yaml:"id" json:"id"`
	Input    string                 `yaml:"input" json:"input"`
	Target   []string               `yaml:"target" json:"target,omitempty"`
	Choices  []string               `yaml:"choices" json:"choices,omitempty"`
	Metadata map[string]interface{} `yaml:"metadata" json:"metadata,omitempty"`
}

// SolverSpec names a solver and its arguments as declared in a task file
type SolverSpec struct {
	Name string                 `yaml:"name"`
	Args map[string]interface{} `yaml:"args"`
}

// ScorerSpec names a scorer and its arguments as declared in a task file
type ScorerSpec struct {
	Name string                 `yaml:"name"`
	Args map[string]interface{} `yaml:"args"`
}

// Task is a named evaluation: a dataset, a solver chain and a scorer
type Task struct {
	Name       string       // Task name
	Model      string       // Model override (provider/model), optional
	Epochs     int          // Times each sample is run (0 or 1 = once)
	Solvers    []SolverSpec // Solver chain; defaults to a single generate
	Scorer     ScorerSpec   // Scorer; defaults to match
	Tools      []string     // Tools made available to the model
	Samples    []Sample     // Dataset
	SourceFile string       // File this task was loaded from
}

// Validate checks if the task has all required fields
func (t *Task) Validate() error {
	if t.Name == "" {
		return errors.New("task name is required")
	}
	if len(t.Samples) == 0 {
		return fmt.Errorf("task %s has no samples", t.Name)
	}
	seen := make(map[string]bool, len(t.Samples))
	for i, s := range t.Samples {
		if s.Input == "" {
			return fmt.Errorf("task %s: sample %d has no input", t.Name, i+1)
		}
		if s.ID != "" {
			if seen[s.ID] {
				return fmt.Errorf("task %s: duplicate sample id %q", t.Name, s.ID)
			}
			seen[s.ID] = true
		}
	}
	if t.Epochs < 0 {
		return fmt.Errorf("task %s: epochs must be >= 0, got %d", t.Name, t.Epochs)
	}
	return nil
}

// EpochCount returns the number of epochs to run, never less than one
func (t *Task) EpochCount() int {
	if t.Epochs < 1 {
		return 1
	}
	return t.Epochs
}

// AssignSampleIDs gives every sample without an id its 1-based position.
func (t *Task) AssignSampleIDs() {
	for i := range t.Samples {
		if t.Samples[i].ID == "" {
			t.Samples[i].ID = fmt.Sprintf("%d", i+1)
		}
	}
}
