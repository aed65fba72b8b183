// Package tool implements tools that models can call during a sample.
package tool

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/harrison/evalrun/internal/models"
)

// ErrPrerequisite is returned when a tool cannot be created because its
// environment is incomplete, for example missing credentials.
var ErrPrerequisite = errors.New("tool prerequisite not met")

// Tool is a function a model can call
type Tool interface {
	Info() models.ToolInfo
	Call(ctx context.Context, args map[string]interface{}) (string, error)
}

// Options configures the tools built by Build
type Options struct {
	WebSearch WebSearchOptions
}

// Build creates the named tools.
func Build(names []string, opts Options) ([]Tool, error) {
	var tools []Tool
	seen := make(map[string]bool)
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case WebSearchName:
			ws, err := NewWebSearch(opts.WebSearch)
			if err != nil {
				return nil, err
			}
			tools = append(tools, ws)
		default:
			return nil, fmt.Errorf("unknown tool %q", name)
		}
	}
	return tools, nil
}

// Infos returns the descriptions of tools, in order.
func Infos(tools []Tool) []models.ToolInfo {
	infos := make([]models.ToolInfo, 0, len(tools))
	for _, t := range tools {
		infos = append(infos, t.Info())
	}
	return infos
}

// Find returns the tool named name.
func Find(tools []Tool, name string) (Tool, bool) {
	for _, t := range tools {
		if t.Info().Name == name {
			return t, true
		}
	}
	return nil, false
}

// StringArg returns a required string argument. Numbers and booleans are
// formatted, since models do not always quote scalar arguments.
func StringArg(args map[string]interface{}, name string) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", fmt.Errorf("missing required argument %q", name)
	}
	switch s := v.(type) {
	case string:
		return s, nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(s), nil
	default:
		return "", fmt.Errorf("argument %q must be a string, got %T", name, v)
	}
}
