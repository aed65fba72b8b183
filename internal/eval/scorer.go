package eval

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/harrison/evalrun/internal/display"
	"github.com/harrison/evalrun/internal/models"
)

// Scorer grades a solved sample.
type Scorer interface {
	Score(ctx context.Context, state *TaskState) (models.Score, error)
}

// BuildScorer creates the scorer declared by a task. An empty name means
// match.
func BuildScorer(spec models.ScorerSpec) (Scorer, error) {
	switch spec.Name {
	case "", "match":
		location, err := stringArg(spec.Args, "location", "end")
		if err != nil {
			return nil, err
		}
		switch location {
		case "begin", "end", "exact", "any":
		default:
			return nil, fmt.Errorf("scorer match: location must be begin, end, exact or any, got %q", location)
		}
		return Match{Location: location}, nil

	case "includes":
		ignoreCase, err := boolArg(spec.Args, "ignore_case", true)
		if err != nil {
			return nil, fmt.Errorf("scorer includes: %w", err)
		}
		return Includes{IgnoreCase: ignoreCase}, nil

	case "fuzzy":
		threshold, err := floatArg(spec.Args, "threshold", DefaultFuzzyThreshold)
		if err != nil {
			return nil, fmt.Errorf("scorer fuzzy: %w", err)
		}
		if threshold < 0 || threshold > 1 {
			return nil, fmt.Errorf("scorer fuzzy: threshold must be between 0 and 1, got %v", threshold)
		}
		return Fuzzy{Threshold: threshold}, nil

	case "human":
		return HumanScorer{}, nil

	default:
		return nil, fmt.Errorf("unknown scorer %q", spec.Name)
	}
}

// normalize lowercases s, collapses whitespace and strips surrounding
// punctuation.
func normalize(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) && r != '%' && r != '$'
	})
}

// Match scores 1 when a normalized target appears at Location in the
// normalized output: "begin", "end" (default), "exact" or "any".
type Match struct {
	Location string
}

func (m Match) Score(_ context.Context, state *TaskState) (models.Score, error) {
	output := normalize(state.Output)
	for _, target := range state.Targets() {
		t := normalize(target)
		if t == "" {
			continue
		}
		var ok bool
		switch m.Location {
		case "begin":
			ok = strings.HasPrefix(output, t)
		case "exact":
			ok = output == t
		case "any":
			ok = strings.Contains(output, t)
		default:
			ok = strings.HasSuffix(output, t)
		}
		if ok {
			return models.Score{Value: 1, Answer: target, Scorer: "match"}, nil
		}
	}
	return models.Score{Value: 0, Answer: lastLine(state.Output), Scorer: "match"}, nil
}

// Includes scores 1 when the output contains any target.
type Includes struct {
	IgnoreCase bool
}

func (s Includes) Score(_ context.Context, state *TaskState) (models.Score, error) {
	output := state.Output
	if s.IgnoreCase {
		output = strings.ToLower(output)
	}
	for _, target := range state.Targets() {
		t := target
		if s.IgnoreCase {
			t = strings.ToLower(t)
		}
		if t != "" && strings.Contains(output, t) {
			return models.Score{Value: 1, Answer: target, Scorer: "includes"}, nil
		}
	}
	return models.Score{Value: 0, Answer: lastLine(state.Output), Scorer: "includes"}, nil
}

// DefaultFuzzyThreshold is the similarity a fuzzy match needs by default.
const DefaultFuzzyThreshold = 0.8

// Fuzzy scores 1 when the normalized output is within Threshold similarity
// of a normalized target. Similarity is one minus the Levenshtein distance
// divided by the longer length.
type Fuzzy struct {
	Threshold float64
}

func (f Fuzzy) Score(_ context.Context, state *TaskState) (models.Score, error) {
	output := normalize(state.Output)
	best, bestTarget := 0.0, ""
	for _, target := range state.Targets() {
		sim := similarity(output, normalize(target))
		if sim > best {
			best, bestTarget = sim, target
		}
	}

	score := models.Score{
		Answer:      state.Output,
		Explanation: fmt.Sprintf("similarity %.3f to %q (threshold %.2f)", best, bestTarget, f.Threshold),
		Scorer:      "fuzzy",
	}
	if bestTarget != "" && best >= f.Threshold {
		score.Value = 1
	}
	return score, nil
}

func similarity(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

// HumanScorer asks the operator for a score between 0 and 1 after showing
// the transcript and the targets.
type HumanScorer struct{}

const msgScoreRange = "Please enter a score between 0 and 1"

func (HumanScorer) Score(ctx context.Context, state *TaskState) (models.Score, error) {
	score := models.Score{Answer: state.Output, Scorer: "human"}

	opts := display.InputScreenOptions{Header: fmt.Sprintf("Score: %s", state.Ref())}
	err := state.Display.InputScreen(ctx, opts, func(c *display.Console) error {
		c.Transcript(state.Messages)
		if targets := state.Targets(); len(targets) > 0 {
			rows := make([][]string, 0, len(targets))
			for _, t := range targets {
				rows = append(rows, []string{t})
			}
			c.Table([]string{"Target"}, rows)
		}

		value, err := askScore(c)
		if err != nil {
			return err
		}
		score.Value = value
		score.Explanation, err = c.Prompt("Explanation (optional)", display.PromptOptions{})
		return err
	})
	if err != nil {
		return models.Score{}, fmt.Errorf("human scorer: %w", err)
	}
	return score, nil
}

// askScore re-asks until the answer is a number in [0, 1].
func askScore(c *display.Console) (float64, error) {
	for {
		v, err := c.AskFloat("Score (0-1)", nil)
		if err != nil {
			return 0, err
		}
		if v >= 0 && v <= 1 {
			return v, nil
		}
		c.Println(msgScoreRange)
	}
}
