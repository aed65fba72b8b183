package eval

import (
	"context"
	"fmt"
	"strings"

	"github.com/harrison/evalrun/internal/display"
	"github.com/harrison/evalrun/internal/models"
	"github.com/harrison/evalrun/internal/tool"
)

// DefaultMaxTurns bounds the generate loop when a task does not set max_turns.
const DefaultMaxTurns = 10

// Solver transforms a sample's state, usually by extending its conversation.
type Solver interface {
	Solve(ctx context.Context, state *TaskState) error
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, state *TaskState) error

func (f SolverFunc) Solve(ctx context.Context, state *TaskState) error {
	return f(ctx, state)
}

// Chain runs solvers in order until one fails or marks the state completed.
type Chain []Solver

func (c Chain) Solve(ctx context.Context, state *TaskState) error {
	for _, s := range c {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Solve(ctx, state); err != nil {
			return err
		}
		if state.Completed {
			return nil
		}
	}
	return nil
}

// BuildSolvers creates the solver chain declared by a task. An empty list
// means a single generate.
func BuildSolvers(specs []models.SolverSpec) (Chain, error) {
	if len(specs) == 0 {
		return Chain{Generate(DefaultMaxTurns)}, nil
	}

	chain := make(Chain, 0, len(specs))
	for _, spec := range specs {
		s, err := buildSolver(spec)
		if err != nil {
			return nil, fmt.Errorf("solver %s: %w", spec.Name, err)
		}
		chain = append(chain, s)
	}
	return chain, nil
}

func buildSolver(spec models.SolverSpec) (Solver, error) {
	switch spec.Name {
	case "system_message":
		text, err := stringArg(spec.Args, "message", "")
		if err != nil {
			return nil, err
		}
		if text == "" {
			return nil, fmt.Errorf("missing required argument %q", "message")
		}
		return SystemMessage(text), nil

	case "prompt_template":
		template, err := stringArg(spec.Args, "template", "")
		if err != nil {
			return nil, err
		}
		if !strings.Contains(template, promptPlaceholder) {
			return nil, fmt.Errorf("template must contain %s", promptPlaceholder)
		}
		return PromptTemplate(template), nil

	case "generate":
		maxTurns, err := intArg(spec.Args, "max_turns", DefaultMaxTurns)
		if err != nil {
			return nil, err
		}
		return Generate(maxTurns), nil

	case "human_input":
		prompt, err := stringArg(spec.Args, "prompt", "Your message")
		if err != nil {
			return nil, err
		}
		return HumanInput(prompt), nil

	case "human_agent":
		return HumanAgent(), nil

	default:
		return nil, fmt.Errorf("unknown solver")
	}
}

// SystemMessage adds a system message ahead of the conversation.
func SystemMessage(text string) Solver {
	return SolverFunc(func(_ context.Context, state *TaskState) error {
		state.AddSystemMessage(text)
		return nil
	})
}

const promptPlaceholder = "{prompt}"

// PromptTemplate rewrites the user prompt by substituting it for {prompt}
// in template. The rewritten prompt is reported to the display again.
func PromptTemplate(template string) Solver {
	return SolverFunc(func(_ context.Context, state *TaskState) error {
		prompt := state.UserPrompt()
		if prompt == nil {
			return fmt.Errorf("prompt_template: sample has no user message")
		}
		prompt.Content = strings.ReplaceAll(template, promptPlaceholder, prompt.Content)
		if state.Display != nil {
			state.Display.Message(state.Ref(), *prompt)
		}
		return nil
	})
}

// Generate calls the model and runs the tool calls it requests, feeding the
// results back, until the model answers without tool calls or maxTurns
// model calls were made. maxTurns <= 0 means DefaultMaxTurns.
func Generate(maxTurns int) Solver {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return SolverFunc(func(ctx context.Context, state *TaskState) error {
		if state.Model == nil {
			return fmt.Errorf("generate: no model")
		}
		infos := tool.Infos(state.Tools)

		for turn := 0; turn < maxTurns; turn++ {
			reply, err := state.Model.Generate(ctx, state.Messages, infos)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			state.Append(reply)
			state.Output = reply.Content

			if !reply.HasToolCalls() {
				return nil
			}
			for _, call := range reply.ToolCalls {
				if err := callTool(ctx, state, call); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// callTool runs one tool call through the approver and appends its result.
// Tool failures are reported to the model; only approval errors and
// termination end the sample.
func callTool(ctx context.Context, state *TaskState, call models.ToolCall) error {
	approver := state.Approver
	if approver == nil {
		approver = AutoApprover{}
	}
	decision, err := approver.Approve(ctx, state, call)
	if err != nil {
		return err
	}

	switch decision.Kind {
	case Terminate:
		if decision.Explanation != "" {
			return fmt.Errorf("%w: %s", ErrSampleTerminated, decision.Explanation)
		}
		return ErrSampleTerminated
	case Reject:
		reason := "Tool call rejected by operator"
		if decision.Explanation != "" {
			reason += ": " + decision.Explanation
		}
		state.Append(models.ToolMessage(call, "", fmt.Errorf("%s", reason)))
		return nil
	}

	t, ok := tool.Find(state.Tools, call.Function)
	if !ok {
		state.Append(models.ToolMessage(call, "", fmt.Errorf("tool %q not found", call.Function)))
		return nil
	}
	out, err := t.Call(ctx, call.Arguments)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	state.Append(models.ToolMessage(call, out, err))
	return nil
}

// HumanInput shows the conversation in an input screen and appends the
// operator's answer as a user message.
func HumanInput(prompt string) Solver {
	return SolverFunc(func(ctx context.Context, state *TaskState) error {
		var answer string
		opts := display.InputScreenOptions{Header: fmt.Sprintf("Human input: %s", state.Ref())}
		err := state.Display.InputScreen(ctx, opts, func(c *display.Console) error {
			c.Transcript(state.Messages)
			var err error
			answer, err = c.Prompt(prompt, display.PromptOptions{})
			return err
		})
		if err != nil {
			return fmt.Errorf("human_input: %w", err)
		}
		state.Append(models.UserMessage(answer))
		return nil
	})
}

// HumanAgent lets the operator answer in place of the model. The answer is
// confirmed before it is submitted and completes the sample.
func HumanAgent() Solver {
	return SolverFunc(func(ctx context.Context, state *TaskState) error {
		var answer string
		opts := display.InputScreenOptions{Header: fmt.Sprintf("Human agent: %s", state.Ref())}
		err := state.Display.InputScreen(ctx, opts, func(c *display.Console) error {
			c.Transcript(state.Messages)
			for {
				var err error
				answer, err = c.Prompt("Your answer", display.PromptOptions{})
				if err != nil {
					return err
				}
				if strings.TrimSpace(answer) == "" {
					continue
				}
				ok, err := c.Confirm("Submit this answer?", true)
				if err != nil {
					return err
				}
				if ok {
					return nil
				}
			}
		})
		if err != nil {
			return fmt.Errorf("human_agent: %w", err)
		}
		state.Append(models.AssistantMessage(answer))
		state.Output = answer
		state.Completed = true
		return nil
	})
}
