package parser

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/harrison/evalrun/internal/models"
)

var (
	sampleHeading = regexp.MustCompile(`(?i)^sample(?:\s+(.+))?$`)
	targetLine    = regexp.MustCompile(`(?i)^\s*(?:\*\*target\*\*\s*:|\*\*target:\*\*|target\s*:)\s*(.*)$`)
)

// MarkdownParser parses markdown task files. Task fields live in YAML
// frontmatter; every "## Sample <id>" section is one sample whose body is
// the input, except for "Target:" lines which set its targets.
type MarkdownParser struct {
	markdown goldmark.Markdown
	baseDir  string
}

// NewMarkdownParser creates a markdown parser resolving datasets against baseDir
func NewMarkdownParser(baseDir string) *MarkdownParser {
	return &MarkdownParser{
		markdown: goldmark.New(),
		baseDir:  baseDir,
	}
}

// section is the byte range of one sample heading's body
type section struct {
	id         string
	start, end int
}

// Parse reads a markdown task definition
func (p *MarkdownParser) Parse(r io.Reader) (*models.Task, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	var header yamlTask
	content, frontmatter := extractFrontmatter(content)
	if frontmatter != nil {
		if err := yaml.Unmarshal(frontmatter, &header); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
	}

	doc := p.markdown.Parser().Parse(text.NewReader(content))

	task := header.toTask()
	for _, s := range header.Samples {
		task.Samples = append(task.Samples, models.Sample{
			ID:       string(s.ID),
			Input:    s.Input,
			Target:   []string(s.Target),
			Choices:  []string(s.Choices),
			Metadata: s.Metadata,
		})
	}

	var sections []section
	var current *section
	closeSection := func(end int) {
		if current != nil {
			current.end = end
			sections = append(sections, *current)
			current = nil
		}
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level > 2 || heading.Lines().Len() == 0 {
			continue
		}
		lineStart, lineEnd := headingLine(heading, content)
		closeSection(lineStart)

		title := strings.TrimSpace(extractText(heading, content))
		if heading.Level == 1 {
			if task.Name == "" {
				task.Name = title
			}
			continue
		}
		if m := sampleHeading.FindStringSubmatch(title); m != nil {
			current = &section{id: strings.TrimSpace(m[1]), start: lineEnd}
		}
	}
	closeSection(len(content))

	for _, sec := range sections {
		task.Samples = append(task.Samples, parseSampleBody(sec.id, string(content[sec.start:sec.end])))
	}

	if err := loadDataset(task, p.baseDir, header.Dataset); err != nil {
		return nil, err
	}
	return task, nil
}

// parseSampleBody splits a sample section into its input and targets.
// Target lines inside fenced code blocks are part of the input.
func parseSampleBody(id, body string) models.Sample {
	sample := models.Sample{ID: id}

	var input []string
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}
		if !inFence {
			if m := targetLine.FindStringSubmatch(line); m != nil {
				sample.Target = append(sample.Target, splitTargets(m[1])...)
				continue
			}
		}
		input = append(input, line)
	}

	sample.Input = strings.TrimSpace(strings.Join(input, "\n"))
	return sample
}

// headingLine returns the byte offsets of the start of the heading's line and
// of the line that follows it.
func headingLine(heading *ast.Heading, source []byte) (int, int) {
	seg := heading.Lines().At(0)
	start := bytes.LastIndexByte(source[:seg.Start], '\n') + 1
	end := len(source)
	if i := bytes.IndexByte(source[seg.Start:], '\n'); i >= 0 {
		end = seg.Start + i + 1
	}
	return start, end
}

func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Segment.Value(source))
			continue
		}
		buf.WriteString(extractText(c, source))
	}
	return buf.String()
}

// extractFrontmatter extracts YAML frontmatter from markdown content
// Returns the content without frontmatter and the frontmatter bytes
func extractFrontmatter(content []byte) ([]byte, []byte) {
	lines := bytes.Split(content, []byte("\n"))

	if len(lines) < 3 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return content, nil
	}

	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			frontmatter := bytes.Join(lines[1:i], []byte("\n"))
			body := bytes.Join(lines[i+1:], []byte("\n"))
			return body, frontmatter
		}
	}

	return content, nil
}
