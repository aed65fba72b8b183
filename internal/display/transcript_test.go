package display

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harrison/evalrun/internal/models"
)

func newTestRenderer() (*TranscriptRenderer, *bytes.Buffer) {
	var out bytes.Buffer
	return NewTranscriptRenderer(&out, false, 60), &out
}

func TestSampleRefString(t *testing.T) {
	assert.Equal(t, "arith / 3", SampleRef{Task: "arith", ID: "3", Epoch: 1}.String())
	assert.Equal(t, "arith / 3 (epoch 2)", SampleRef{Task: "arith", ID: "3", Epoch: 2}.String())
}

func TestFormatMessage(t *testing.T) {
	r, _ := newTestRenderer()
	call := models.ToolCall{ID: "c1", Function: "web_search", Arguments: map[string]interface{}{"query": "go"}}

	tests := []struct {
		name     string
		msg      models.Message
		contains []string
	}{
		{"system", models.SystemMessage("Be brief."), []string{"system", "Be brief."}},
		{"user", models.UserMessage("What is **2+2**?"), []string{"─ user ─", "What is 2+2?"}},
		{"assistant with call", models.AssistantMessage("Searching.", call), []string{"assistant", "Searching.", `→ web_search(query="go")`}},
		{"tool result", models.ToolMessage(call, "results", nil), []string{"tool: web_search", "results"}},
		{"tool error", models.ToolMessage(call, "", errors.New("timeout")), []string{"tool: web_search", "Error: timeout"}},
		{"empty", models.AssistantMessage(""), []string{"(no content)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.FormatMessage(tt.msg)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
		})
	}
}

func TestFormatOutcome(t *testing.T) {
	r, _ := newTestRenderer()

	tests := []struct {
		name   string
		result models.SampleResult
		want   string
	}{
		{"scored", models.SampleResult{Status: models.StatusSuccess, Score: &models.Score{Value: 1, Answer: "4"}}, "Score: 1  Answer: 4"},
		{"fractional", models.SampleResult{Status: models.StatusSuccess, Score: &models.Score{Value: 0.25}}, "Score: 0.25"},
		{"unscored", models.SampleResult{Status: models.StatusSuccess}, "Complete"},
		{"terminated", models.SampleResult{Status: models.StatusTerminated, Error: "operator stopped"}, "Terminated: operator stopped"},
		{"cancelled", models.SampleResult{Status: models.StatusCancelled}, "Cancelled"},
		{"error", models.SampleResult{Status: models.StatusError, Error: "boom"}, "Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.FormatOutcome(tt.result))
		})
	}
}

func TestFormatOutcomeExplanation(t *testing.T) {
	r, _ := newTestRenderer()
	out := r.FormatOutcome(models.SampleResult{
		Status: models.StatusSuccess,
		Score:  &models.Score{Value: 0, Explanation: "expected 4"},
	})
	assert.Equal(t, "Score: 0\nexpected 4", out)
}

func TestRenderSample(t *testing.T) {
	r, out := newTestRenderer()
	r.RenderSample(models.SampleResult{
		Task:     "arith",
		Sample:   models.Sample{ID: "1"},
		Epoch:    1,
		Messages: []models.Message{models.UserMessage("2+2?"), models.AssistantMessage("4")},
		Status:   models.StatusSuccess,
		Score:    &models.Score{Value: 1},
	})

	s := out.String()
	assert.Contains(t, s, " arith / 1 ")
	assert.Less(t, strings.Index(s, "2+2?"), strings.Index(s, "assistant"))
	assert.Contains(t, s, "Score: 1")
}

func TestFormatScore(t *testing.T) {
	assert.Equal(t, "1", formatScore(1))
	assert.Equal(t, "0", formatScore(0))
	assert.Equal(t, "0.5", formatScore(0.5))
	assert.Equal(t, "0.333", formatScore(1.0/3))
}
