package eval

import (
	"context"
	"fmt"

	"github.com/harrison/evalrun/internal/display"
	"github.com/harrison/evalrun/internal/models"
)

// DecisionKind is an approver's verdict on a tool call
type DecisionKind int

// Approval decisions
const (
	Approve   DecisionKind = iota // Run the tool call
	Reject                        // Skip the call and tell the model it was rejected
	Terminate                     // End the sample
)

func (k DecisionKind) String() string {
	switch k {
	case Approve:
		return "approve"
	case Reject:
		return "reject"
	case Terminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// Decision is the result of approving one tool call
type Decision struct {
	Kind        DecisionKind
	Explanation string
}

// Approver decides whether a tool call requested by the model may run.
type Approver interface {
	Approve(ctx context.Context, state *TaskState, call models.ToolCall) (Decision, error)
}

// NewApprover returns the approver for a configured policy: "none" (or
// empty) approves everything, "human" asks the operator.
func NewApprover(policy string) (Approver, error) {
	switch policy {
	case "", "none":
		return AutoApprover{}, nil
	case "human":
		return HumanApprover{}, nil
	default:
		return nil, fmt.Errorf("unknown approval policy %q", policy)
	}
}

// AutoApprover approves every call.
type AutoApprover struct{}

func (AutoApprover) Approve(context.Context, *TaskState, models.ToolCall) (Decision, error) {
	return Decision{Kind: Approve}, nil
}

var approvalChoices = []string{"Approve", "Reject", "Terminate"}

// HumanApprover shows the conversation and the pending call in an input
// screen and lets the operator approve it, reject it or terminate the sample.
type HumanApprover struct{}

func (HumanApprover) Approve(ctx context.Context, state *TaskState, call models.ToolCall) (Decision, error) {
	var decision Decision

	opts := display.InputScreenOptions{
		Header:    fmt.Sprintf("Approve tool call: %s", state.Ref()),
		Transient: true,
	}
	err := state.Display.InputScreen(ctx, opts, func(c *display.Console) error {
		c.Transcript(state.Messages)
		c.Panel("Tool call", call.String())

		choice, err := c.Choose("Decision", approvalChoices)
		if err != nil {
			return err
		}
		decision.Kind = DecisionKind(choice)
		if decision.Kind == Approve {
			return nil
		}

		decision.Explanation, err = c.Prompt("Explanation (optional)", display.PromptOptions{})
		return err
	})
	if err != nil {
		return Decision{}, fmt.Errorf("approve %s: %w", call.Function, err)
	}
	return decision, nil
}
