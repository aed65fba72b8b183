package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/evalrun/internal/fileutil"
	"github.com/harrison/evalrun/internal/models"
)

// Format represents the format of a task file
type Format int

const (
	// FormatUnknown represents an unknown or unsupported file format
	FormatUnknown Format = iota
	// FormatMarkdown represents a Markdown (.md, .markdown) task file
	FormatMarkdown
	// FormatYAML represents a YAML (.yaml, .yml) task file
	FormatYAML
)

// String returns the string representation of the Format
func (f Format) String() string {
	switch f {
	case FormatMarkdown:
		return "markdown"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// Parser is the interface that all task parsers must implement
type Parser interface {
	// Parse reads a task definition from r
	Parse(r io.Reader) (*models.Task, error)
}

// DetectFormat detects the task format based on file extension
//   - .md, .markdown -> FormatMarkdown
//   - .yaml, .yml -> FormatYAML
//   - all others -> FormatUnknown
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return FormatMarkdown
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatUnknown
	}
}

// NewParser creates a parser for format. baseDir resolves relative dataset
// paths; an empty baseDir uses the working directory.
func NewParser(format Format, baseDir string) (Parser, error) {
	switch format {
	case FormatMarkdown:
		return NewMarkdownParser(baseDir), nil
	case FormatYAML:
		return NewYAMLParser(baseDir), nil
	default:
		return nil, fmt.Errorf("unsupported format: %v", format)
	}
}

// ParseFile detects the format of path, parses it and validates the task.
// A task without a name is named after the file.
func ParseFile(path string) (*models.Task, error) {
	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, fmt.Errorf("unknown file format: %s (supported: .md, .markdown, .yaml, .yml)", path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	p, err := NewParser(format, filepath.Dir(absPath))
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	task, err := p.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if task.Name == "" {
		base := filepath.Base(absPath)
		task.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	task.SourceFile = absPath

	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task file %s: %w", path, err)
	}
	return task, nil
}

// ParseFiles resolves args into task files and parses each of them in order.
// Task names must be unique across files.
func ParseFiles(args []string) ([]models.Task, error) {
	paths, err := fileutil.ResolveTaskFiles(args)
	if err != nil {
		return nil, err
	}

	tasks := make([]models.Task, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		task, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[task.Name]; ok {
			return nil, fmt.Errorf("duplicate task name %q in %s and %s", task.Name, prev, path)
		}
		seen[task.Name] = path
		tasks = append(tasks, *task)
	}
	return tasks, nil
}

func resolvePath(baseDir, path string) string {
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
