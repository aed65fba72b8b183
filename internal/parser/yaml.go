package parser

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/harrison/evalrun/internal/models"
)

// YAMLParser parses YAML task files
type YAMLParser struct {
	baseDir string
}

// taskHeader holds the task fields shared by YAML files and markdown frontmatter
type taskHeader struct {
	Name    string          `yaml:"name"`
	Model   string          `yaml:"model"`
	Epochs  int             `yaml:"epochs"`
	Solvers []componentYAML `yaml:"solvers"`
	Scorer  *componentYAML  `yaml:"scorer"`
	Tools   []string        `yaml:"tools"`
	Dataset string          `yaml:"dataset"`
}

type yamlTask struct {
	taskHeader `yaml:",inline"`
	Samples    []yamlSample `yaml:"samples"`
}

type yamlSample struct {
	ID       scalarString           `yaml:"id"`
	Input    string                 `yaml:"input"`
	Target   stringList             `yaml:"target"`
	Choices  stringList             `yaml:"choices"`
	Metadata map[string]interface{} `yaml:"metadata"`
}

// componentYAML is a solver or scorer reference: either a bare name or a
// mapping with name and args.
type componentYAML struct {
	Name string
	Args map[string]interface{}
}

func (c *componentYAML) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		c.Name = node.Value
		return nil
	}
	var raw struct {
		Name string                 `yaml:"name"`
		Args map[string]interface{} `yaml:"args"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.Name == "" {
		return fmt.Errorf("line %d: component name is required", node.Line)
	}
	c.Name, c.Args = raw.Name, raw.Args
	return nil
}

// stringList accepts a single scalar or a sequence of scalars.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*l = stringList{node.Value}
		return nil
	case yaml.SequenceNode:
		out := make(stringList, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: expected a string", item.Line)
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
	}
}

// scalarString keeps numeric ids such as `id: 7` as their literal text.
type scalarString string

func (s *scalarString) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a scalar", node.Line)
	}
	*s = scalarString(node.Value)
	return nil
}

// NewYAMLParser creates a YAML parser resolving datasets against baseDir
func NewYAMLParser(baseDir string) *YAMLParser {
	return &YAMLParser{baseDir: baseDir}
}

// Parse reads a YAML task definition
func (p *YAMLParser) Parse(r io.Reader) (*models.Task, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	var doc yamlTask
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	task := doc.toTask()
	for _, s := range doc.Samples {
		task.Samples = append(task.Samples, models.Sample{
			ID:       string(s.ID),
			Input:    s.Input,
			Target:   []string(s.Target),
			Choices:  []string(s.Choices),
			Metadata: s.Metadata,
		})
	}

	if err := loadDataset(task, p.baseDir, doc.Dataset); err != nil {
		return nil, err
	}
	return task, nil
}

func (h taskHeader) toTask() *models.Task {
	task := &models.Task{
		Name:   h.Name,
		Model:  h.Model,
		Epochs: h.Epochs,
		Tools:  h.Tools,
	}
	for _, s := range h.Solvers {
		task.Solvers = append(task.Solvers, models.SolverSpec{Name: s.Name, Args: s.Args})
	}
	if h.Scorer != nil {
		task.Scorer = models.ScorerSpec{Name: h.Scorer.Name, Args: h.Scorer.Args}
	}
	return task
}

// loadDataset appends the samples of a JSONL dataset file to task.
func loadDataset(task *models.Task, baseDir, dataset string) error {
	if dataset == "" {
		return nil
	}
	path := resolvePath(baseDir, dataset)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	samples, err := ReadDataset(f)
	if err != nil {
		return fmt.Errorf("dataset %s: %w", dataset, err)
	}
	task.Samples = append(task.Samples, samples...)
	return nil
}
