package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskResult_AccuracyAndCounts(t *testing.T) {
	result := TaskResult{
		Samples: []SampleResult{
			{Status: StatusSuccess, Score: &Score{Value: 1}},
			{Status: StatusSuccess, Score: &Score{Value: 0}},
			{Status: StatusSuccess, Score: &Score{Value: 0.5}},
			{Status: StatusError},
		},
	}

	ok, failed := result.Counts()
	assert.Equal(t, 3, ok)
	assert.Equal(t, 1, failed)
	assert.InDelta(t, 0.5, result.Accuracy(), 1e-9)
}

func TestTaskResult_AccuracyNoScores(t *testing.T) {
	result := TaskResult{Samples: []SampleResult{{Status: StatusCancelled}}}
	assert.Equal(t, 0.0, result.Accuracy())
}

func TestEvalResult_Totals(t *testing.T) {
	result := EvalResult{
		Tasks: []TaskResult{
			{Samples: []SampleResult{{Status: StatusSuccess}, {Status: StatusTerminated}}},
			{Samples: []SampleResult{{Status: StatusSuccess}}},
		},
	}

	total, ok, failed := result.Totals()
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, failed)
	assert.Len(t, result.FailedSamples(), 1)
	assert.Equal(t, StatusTerminated, result.FailedSamples()[0].Status)
}
