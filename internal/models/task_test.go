package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTask_Validate(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		wantErr string
	}{
		{
			name: "valid task",
			task: Task{Name: "arith", Samples: []Sample{{Input: "1+1?", Target: []string{"2"}}}},
		},
		{
			name:    "missing name",
			task:    Task{Samples: []Sample{{Input: "x"}}},
			wantErr: "task name is required",
		},
		{
			name:    "no samples",
			task:    Task{Name: "empty"},
			wantErr: "has no samples",
		},
		{
			name:    "sample without input",
			task:    Task{Name: "t", Samples: []Sample{{ID: "a"}}},
			wantErr: "sample 1 has no input",
		},
		{
			name:    "duplicate ids",
			task:    Task{Name: "t", Samples: []Sample{{ID: "a", Input: "x"}, {ID: "a", Input: "y"}}},
			wantErr: "duplicate sample id",
		},
		{
			name:    "negative epochs",
			task:    Task{Name: "t", Epochs: -1, Samples: []Sample{{Input: "x"}}},
			wantErr: "epochs must be >= 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestTask_EpochCount(t *testing.T) {
	assert.Equal(t, 1, (&Task{}).EpochCount())
	assert.Equal(t, 1, (&Task{Epochs: 1}).EpochCount())
	assert.Equal(t, 3, (&Task{Epochs: 3}).EpochCount())
}

func TestTask_AssignSampleIDs(t *testing.T) {
	task := Task{Samples: []Sample{{Input: "a"}, {ID: "custom", Input: "b"}, {Input: "c"}}}
	task.AssignSampleIDs()

	assert.Equal(t, "1", task.Samples[0].ID)
	assert.Equal(t, "custom", task.Samples[1].ID)
	assert.Equal(t, "3", task.Samples[2].ID)
}

func TestToolCall_String(t *testing.T) {
	call := ToolCall{
		ID:        "call_1",
		Function:  "web_search",
		Arguments: map[string]interface{}{"query": "go generics", "limit": 3},
	}
	assert.Equal(t, `web_search(limit=3, query="go generics")`, call.String())
	assert.Equal(t, "noop()", ToolCall{Function: "noop"}.String())
}

func TestToolMessage_CarriesError(t *testing.T) {
	call := ToolCall{ID: "c1", Function: "bash"}

	ok := ToolMessage(call, "done", nil)
	assert.Equal(t, RoleTool, ok.Role)
	assert.Equal(t, "c1", ok.ToolCallID)
	assert.Empty(t, ok.Error)

	failed := ToolMessage(call, "", assertError("boom"))
	assert.Equal(t, "boom", failed.Error)
}

type assertError string

func (e assertError) Error() string { return string(e) }
