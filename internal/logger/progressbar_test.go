package logger

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestProgressBarRender verifies correct ASCII bar rendering
func TestProgressBarRender(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		total    int
		width    int
		expected string
	}{
		{"empty", 0, 10, 10, "[          ] 0/10 (0%)"},
		{"half", 5, 10, 10, "[=====     ] 5/10 (50%)"},
		{"full", 10, 10, 10, "[==========] 10/10 (100%)"},
		{"quarter", 2, 8, 8, "[==      ] 2/8 (25%)"},
		{"wide", 30, 100, 20, "[======              ] 30/100 (30%)"},
		{"over total caps the bar", 15, 10, 10, "[==========] 15/10 (100%)"},
		{"zero total", 0, 0, 4, "[    ] 0/0 (0%)"},
		{"negative current", -5, 10, 4, "[    ] -5/10 (0%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(tt.total, tt.width, false)
			pb.Update(tt.current)
			assert.Equal(t, tt.expected, pb.Render())
		})
	}
}

func TestProgressBarDefaultsWidth(t *testing.T) {
	assert.Equal(t, 10, NewProgressBar(5, 0, false).width)
	assert.Equal(t, 10, NewProgressBar(5, -3, false).width)
}

func TestProgressBarPercentage(t *testing.T) {
	tests := []struct {
		current, total, want int
	}{
		{0, 10, 0},
		{1, 3, 33},
		{10, 10, 100},
		{15, 10, 100},
		{0, 0, 0},
		{-5, 10, 0},
	}
	for _, tt := range tests {
		pb := NewProgressBar(tt.total, 10, false)
		pb.Update(tt.current)
		assert.Equal(t, tt.want, pb.Percentage(), "%d/%d", tt.current, tt.total)
	}
}

func TestProgressBarPrefix(t *testing.T) {
	pb := NewProgressBar(10, 10, false)
	pb.SetPrefix("arith: ")
	pb.Update(5)
	assert.True(t, strings.HasPrefix(pb.Render(), "arith: [=====     ]"))
}

func TestProgressBarColors(t *testing.T) {
	pb := NewProgressBar(10, 10, true)
	pb.Update(5)
	assert.Contains(t, pb.Render(), "\x1b[36m")

	pb.Update(10)
	assert.Contains(t, pb.Render(), "\x1b[32m")

	plain := NewProgressBar(10, 10, false)
	assert.NotContains(t, plain.Render(), "\x1b[")
}

func TestProgressBarConcurrentIncrement(t *testing.T) {
	pb := NewProgressBar(100, 10, false)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				pb.Increment()
				_ = pb.Render()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, pb.Current())
	assert.Equal(t, 100, pb.Total())
}
