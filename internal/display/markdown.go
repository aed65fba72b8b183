package display

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// markdownRenderer turns markdown into styled terminal text by walking the
// goldmark AST. It supports GitHub flavoured tables, strikethrough and task
// list items.
type markdownRenderer struct {
	md     goldmark.Markdown
	colors *palette
	width  int
}

func newMarkdownRenderer(colors *palette, width int) *markdownRenderer {
	if width <= 0 {
		width = defaultWidth
	}
	return &markdownRenderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		colors: colors,
		width:  width,
	}
}

// Render returns the terminal rendering of src. The result has no trailing
// blank line.
func (r *markdownRenderer) Render(src string) string {
	source := []byte(src)
	doc := r.md.Parser().Parse(text.NewReader(source))

	var blocks []string
	for child := doc.FirstChild(); child != nil; child = child.NextSibling() {
		if out := r.renderBlock(child, source, ""); out != "" {
			blocks = append(blocks, out)
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (r *markdownRenderer) renderBlock(n ast.Node, source []byte, indent string) string {
	switch node := n.(type) {
	case *ast.Heading:
		title := r.renderInlines(node, source)
		if node.Level == 1 {
			width := runewidth.StringWidth(stripped(node, source))
			return indent + r.colors.heading.Sprint(title) + "\n" + indent + r.colors.heading.Sprint(strings.Repeat("═", width))
		}
		return indent + r.colors.heading.Sprint(strings.Repeat("#", node.Level)+" ") + r.colors.bold.Sprint(title)

	case *ast.Paragraph, *ast.TextBlock:
		return prefixLines(r.renderInlines(node, source), indent)

	case *ast.FencedCodeBlock:
		var b strings.Builder
		if lang := node.Language(source); len(lang) > 0 {
			b.WriteString(indent + r.colors.dim.Sprint(string(lang)) + "\n")
		}
		b.WriteString(r.codeLines(node.Lines(), source, indent))
		return strings.TrimRight(b.String(), "\n")

	case *ast.CodeBlock:
		return strings.TrimRight(r.codeLines(node.Lines(), source, indent), "\n")

	case *ast.Blockquote:
		var parts []string
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			parts = append(parts, r.renderBlock(child, source, ""))
		}
		return prefixLines(r.colors.italic.Sprint(strings.Join(parts, "\n\n")), indent+r.colors.dim.Sprint("│ "))

	case *ast.List:
		return r.renderList(node, source, indent)

	case *ast.ThematicBreak:
		return indent + r.colors.rule.Sprint(strings.Repeat("─", r.width-runewidth.StringWidth(indent)))

	case *ast.HTMLBlock:
		return strings.TrimRight(r.codeLines(node.Lines(), source, indent), "\n")

	case *east.Table:
		return prefixLines(r.renderTable(node, source), indent)

	default:
		// Unknown block: render children
		var parts []string
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			if out := r.renderBlock(child, source, indent); out != "" {
				parts = append(parts, out)
			}
		}
		return strings.Join(parts, "\n")
	}
}

func (r *markdownRenderer) codeLines(lines *text.Segments, source []byte, indent string) string {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimRight(string(seg.Value(source)), "\n")
		b.WriteString(indent + "    " + r.colors.code.Sprint(line) + "\n")
	}
	return b.String()
}

func (r *markdownRenderer) renderList(list *ast.List, source []byte, indent string) string {
	var items []string
	number := list.Start
	if number == 0 {
		number = 1
	}

	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var marker string
		if list.IsOrdered() {
			marker = fmt.Sprintf("%d. ", number)
			number++
		} else {
			marker = "• "
		}
		childIndent := indent + strings.Repeat(" ", runewidth.StringWidth(marker))

		var parts []string
		for child := item.FirstChild(); child != nil; child = child.NextSibling() {
			parts = append(parts, r.renderBlock(child, source, childIndent))
		}

		body := strings.Join(parts, "\n")
		body = strings.TrimPrefix(body, childIndent)
		items = append(items, indent+r.colors.bold.Sprint(marker)+body)
	}

	sep := "\n"
	if !list.IsTight {
		sep = "\n\n"
	}
	return strings.Join(items, sep)
}

func (r *markdownRenderer) renderTable(table *east.Table, source []byte) string {
	var headers []string
	var rows [][]string

	for child := table.FirstChild(); child != nil; child = child.NextSibling() {
		var cells []string
		for cell := child.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, r.renderInlines(cell, source))
		}
		switch child.(type) {
		case *east.TableHeader:
			headers = cells
		case *east.TableRow:
			rows = append(rows, cells)
		}
	}

	return renderTable(headers, rows, r.width)
}

// renderInlines renders the inline children of n as a single string.
func (r *markdownRenderer) renderInlines(n ast.Node, source []byte) string {
	var b strings.Builder
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		b.WriteString(r.renderInline(child, source))
	}
	return b.String()
}

func (r *markdownRenderer) renderInline(n ast.Node, source []byte) string {
	switch node := n.(type) {
	case *ast.Text:
		s := string(node.Value(source))
		switch {
		case node.HardLineBreak():
			s += "\n"
		case node.SoftLineBreak():
			s += "\n"
		}
		return s

	case *ast.String:
		return string(node.Value)

	case *ast.CodeSpan:
		return r.colors.code.Sprint(stripped(node, source))

	case *ast.Emphasis:
		inner := r.renderInlines(node, source)
		if node.Level >= 2 {
			return r.colors.bold.Sprint(inner)
		}
		return r.colors.italic.Sprint(inner)

	case *ast.Link:
		label := r.renderInlines(node, source)
		dest := string(node.Destination)
		if dest == "" || dest == stripped(node, source) {
			return r.colors.link.Sprint(label)
		}
		return r.colors.link.Sprint(label) + r.colors.dim.Sprintf(" (%s)", dest)

	case *ast.AutoLink:
		return r.colors.link.Sprint(string(node.URL(source)))

	case *ast.Image:
		return r.colors.dim.Sprintf("[image: %s]", stripped(node, source))

	case *ast.RawHTML:
		var b strings.Builder
		for i := 0; i < node.Segments.Len(); i++ {
			seg := node.Segments.At(i)
			b.Write(seg.Value(source))
		}
		return b.String()

	case *east.Strikethrough:
		return r.colors.strike.Sprint(r.renderInlines(node, source))

	case *east.TaskCheckBox:
		if node.IsChecked {
			return "[x] "
		}
		return "[ ] "

	default:
		return r.renderInlines(n, source)
	}
}

// stripped returns the plain text of an inline container without styling.
func stripped(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := child.(type) {
		case *ast.Text:
			b.Write(t.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// prefixLines prepends prefix to every line of s.
func prefixLines(s, prefix string) string {
	if prefix == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
