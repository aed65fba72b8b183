package eval

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/evalrun/internal/models"
)

func scoredState(output string, targets ...string) *TaskState {
	return &TaskState{
		Task:    "t",
		Sample:  models.Sample{ID: "1", Input: "q", Target: targets},
		Epoch:   1,
		Output:  output,
		Display: quietDisplay(),
	}
}

func TestBuildScorer(t *testing.T) {
	s, err := BuildScorer(models.ScorerSpec{})
	require.NoError(t, err)
	assert.Equal(t, Match{Location: "end"}, s)

	s, err = BuildScorer(models.ScorerSpec{Name: "includes", Args: map[string]interface{}{"ignore_case": false}})
	require.NoError(t, err)
	assert.Equal(t, Includes{IgnoreCase: false}, s)

	s, err = BuildScorer(models.ScorerSpec{Name: "fuzzy", Args: map[string]interface{}{"threshold": 0.5}})
	require.NoError(t, err)
	assert.Equal(t, Fuzzy{Threshold: 0.5}, s)

	_, err = BuildScorer(models.ScorerSpec{Name: "fuzzy", Args: map[string]interface{}{"threshold": 2}})
	assert.Error(t, err)
	_, err = BuildScorer(models.ScorerSpec{Name: "match", Args: map[string]interface{}{"location": "middle"}})
	assert.Error(t, err)
	_, err = BuildScorer(models.ScorerSpec{Name: "model_graded"})
	assert.Error(t, err)
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		location string
		output   string
		targets  []string
		want     float64
	}{
		{"suffix", "end", "The answer is 4.", []string{"4"}, 1},
		{"suffix case and whitespace", "end", "the  answer is\nPARIS", []string{"Paris"}, 1},
		{"suffix miss", "end", "4 is not it, 5", []string{"4"}, 0},
		{"any target", "end", "it is five", []string{"4", "Five"}, 1},
		{"begin", "begin", "Yes, because...", []string{"yes"}, 1},
		{"exact", "exact", " 42 ", []string{"42"}, 1},
		{"exact miss", "exact", "42 apples", []string{"42"}, 0},
		{"any", "any", "I think 42 apples", []string{"42"}, 1},
		{"no targets", "end", "x", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := Match{Location: tt.location}.Score(context.Background(), scoredState(tt.output, tt.targets...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, score.Value)
			assert.Equal(t, "match", score.Scorer)
		})
	}
}

func TestIncludes(t *testing.T) {
	score, err := Includes{IgnoreCase: true}.Score(context.Background(), scoredState("The capital is PARIS.", "paris"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, score.Value)
	assert.Equal(t, "paris", score.Answer)

	score, err = Includes{}.Score(context.Background(), scoredState("The capital is PARIS.", "paris"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, score.Value)
	assert.Equal(t, "The capital is PARIS.", score.Answer)
}

func TestFuzzy(t *testing.T) {
	score, err := Fuzzy{Threshold: 0.8}.Score(context.Background(), scoredState("Pariss", "Paris"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, score.Value)
	assert.Contains(t, score.Explanation, "similarity 0.833")

	score, err = Fuzzy{Threshold: 0.8}.Score(context.Background(), scoredState("London", "Paris"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, score.Value)

	score, err = Fuzzy{Threshold: 0}.Score(context.Background(), scoredState("anything"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, score.Value)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("", ""))
	assert.Equal(t, 1.0, similarity("abc", "abc"))
	assert.Equal(t, 0.0, similarity("abc", "xyz"))
	assert.InDelta(t, 0.8, similarity("héllo", "héll"), 0.001)
}

func TestHumanScorer(t *testing.T) {
	disp, out := inputDisplay("abc\n1.5\n0.75\nmostly right\n")
	defer disp.Close()

	state := scoredState("About 4", "4")
	state.Display = disp
	state.Messages = []models.Message{models.UserMessage("2+2?"), models.AssistantMessage("About 4")}

	score, err := HumanScorer{}.Score(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, models.Score{Value: 0.75, Answer: "About 4", Explanation: "mostly right", Scorer: "human"}, score)

	text := out.String()
	assert.Contains(t, text, "Score: t / 1")
	assert.Contains(t, text, "TARGET")
	assert.Contains(t, text, "Please enter a number")
	assert.Equal(t, 1, strings.Count(text, msgScoreRange))
}

func TestHumanScorerEOF(t *testing.T) {
	disp, _ := inputDisplay("")
	defer disp.Close()

	state := scoredState("4", "4")
	state.Display = disp
	_, err := HumanScorer{}.Score(context.Background(), state)
	assert.Error(t, err)
}
