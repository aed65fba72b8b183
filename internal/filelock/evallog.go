package filelock

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harrison/evalrun/internal/models"
)

// EvalLogPath is where the JSON eval log of a run is written.
func EvalLogPath(dir, runID string) string {
	return filepath.Join(dir, runID+".json")
}

// WriteEvalLog exports result as indented JSON to dir/<run id>.json and
// returns the path written.
func WriteEvalLog(dir string, result models.EvalResult) (string, error) {
	if result.RunID == "" {
		return "", fmt.Errorf("eval log needs a run id")
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal eval log: %w", err)
	}
	data = append(data, '\n')

	path := EvalLogPath(dir, result.RunID)
	if err := LockAndWrite(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// ReadEvalLog loads an eval log written by WriteEvalLog.
func ReadEvalLog(path string) (*models.EvalResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read eval log: %w", err)
	}
	var result models.EvalResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("parse eval log %s: %w", path, err)
	}
	return &result, nil
}
