// Package eval runs evaluation tasks: solvers build each sample's
// conversation, scorers grade it, and the runner drives samples concurrently
// while reporting to the display, the loggers and the result store.
package eval

import (
	"github.com/harrison/evalrun/internal/display"
	"github.com/harrison/evalrun/internal/model"
	"github.com/harrison/evalrun/internal/models"
	"github.com/harrison/evalrun/internal/tool"
)

// TaskState is the working state of one sample epoch as it passes through
// the solver chain and the scorer.
type TaskState struct {
	Task      string
	Sample    models.Sample
	Epoch     int
	Messages  []models.Message
	Output    string // Final answer, usually the last assistant message
	Completed bool   // Set by solvers that finish the sample early

	Model    model.Model
	Tools    []tool.Tool
	Approver Approver
	Display  display.Display
}

// Ref identifies the sample epoch on the display.
func (s *TaskState) Ref() display.SampleRef {
	return display.SampleRef{Task: s.Task, ID: s.Sample.ID, Epoch: s.Epoch}
}

// Append adds msg to the conversation and reports it to the display.
func (s *TaskState) Append(msg models.Message) {
	s.Messages = append(s.Messages, msg)
	if s.Display != nil {
		s.Display.Message(s.Ref(), msg)
	}
}

// AddSystemMessage inserts msg after any existing system messages.
func (s *TaskState) AddSystemMessage(content string) {
	msg := models.SystemMessage(content)
	pos := 0
	for pos < len(s.Messages) && s.Messages[pos].Role == models.RoleSystem {
		pos++
	}
	s.Messages = append(s.Messages, models.Message{})
	copy(s.Messages[pos+1:], s.Messages[pos:])
	s.Messages[pos] = msg
	if s.Display != nil {
		s.Display.Message(s.Ref(), msg)
	}
}

// UserPrompt returns the first user message, or nil.
func (s *TaskState) UserPrompt() *models.Message {
	for i := range s.Messages {
		if s.Messages[i].Role == models.RoleUser {
			return &s.Messages[i]
		}
	}
	return nil
}

// Targets returns the sample's targets.
func (s *TaskState) Targets() []string {
	return s.Sample.Target
}
