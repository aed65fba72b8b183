package parser

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/harrison/evalrun/internal/models"
)

const maxDatasetLine = 10 * 1024 * 1024

type jsonSample struct {
	ID       json.RawMessage        `json:"id"`
	Input    string                 `json:"input"`
	Target   json.RawMessage        `json:"target"`
	Choices  []string               `json:"choices"`
	Metadata map[string]interface{} `json:"metadata"`
}

// ReadDataset reads JSONL samples, one object per line. Blank lines are
// skipped; target may be a string or a list of strings and id a string or a
// number.
func ReadDataset(r io.Reader) ([]models.Sample, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxDatasetLine)

	var samples []models.Sample
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var js jsonSample
		if err := json.Unmarshal(raw, &js); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		id, err := rawID(js.ID)
		if err != nil {
			return nil, fmt.Errorf("line %d: id: %w", line, err)
		}
		targets, err := rawTargets(js.Target)
		if err != nil {
			return nil, fmt.Errorf("line %d: target: %w", line, err)
		}
		samples = append(samples, models.Sample{
			ID:       id,
			Input:    js.Input,
			Target:   targets,
			Choices:  js.Choices,
			Metadata: js.Metadata,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", line+1, err)
	}
	return samples, nil
}

func rawID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected a string or a number")
	}
	return n.String(), nil
}

func rawTargets(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("expected a string or a list of strings")
	}
	return list, nil
}

// splitTargets splits a comma separated target line.
func splitTargets(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
