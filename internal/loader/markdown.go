package loader

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"

	"github.com/mike-a-ellis/hse-assistant/internal/document"
)

// section is a markdown block delimited by H1/H2 headings.
type section struct {
	HeaderPath string // "# Procedures > ## Lockout"
	Body       string // Section text without the header path prefix
}

// markdownReader splits markdown manuals into sections so that each section
// plays the role of a page.
type markdownReader struct {
	md goldmark.Markdown
}

func newMarkdownReader() *markdownReader {
	return &markdownReader{
		md: goldmark.New(goldmark.WithParserOptions(parser.WithAutoHeadingID())),
	}
}

func (m *markdownReader) read(path string) ([]document.Document, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}
	sections, err := m.sections(source)
	if err != nil {
		return nil, err
	}

	docs := make([]document.Document, 0, len(sections))
	for i, s := range sections {
		if strings.TrimSpace(s.Body) == "" {
			continue
		}
		body := s.Body
		if s.HeaderPath != "" {
			// Header path gives retrieval context to short sections.
			body = s.HeaderPath + "\n\n" + s.Body
		}
		docs = append(docs, document.Document{
			Text: body,
			Metadata: map[string]string{
				document.MetaSource:  path,
				document.MetaPage:    strconv.Itoa(i + 1),
				document.MetaSection: s.HeaderPath,
				document.MetaType:    document.TypeMarkdown,
			},
		})
	}
	return docs, nil
}

// sections splits source at H1 and H2 boundaries. A document without headings
// is returned as a single section.
func (m *markdownReader) sections(source []byte) ([]section, error) {
	root := m.md.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(root, source, toc.MinDepth(1), toc.MaxDepth(2), toc.Compact(true))
	if err != nil {
		return nil, fmt.Errorf("inspect headings: %w", err)
	}
	if len(tree.Items) == 0 {
		return []section{{Body: strings.TrimSpace(string(source))}}, nil
	}

	var out []section
	collectSections(root, source, tree.Items, nil, &out)
	return out, nil
}

func collectSections(root ast.Node, source []byte, items toc.Items, parents []string, out *[]section) {
	for i, item := range items {
		path := append(append([]string(nil), parents...), string(item.Title))

		heading := headingByID(root, string(item.ID))
		if heading == nil || heading.Lines().Len() == 0 {
			continue
		}

		// A section stops at its first subsection so text is never indexed twice.
		var end text.Segment
		switch {
		case len(item.Items) > 0:
			if child := headingByID(root, string(item.Items[0].ID)); child != nil {
				end = child.Lines().At(0)
			}
		case i+1 < len(items):
			if next := headingByID(root, string(items[i+1].ID)); next != nil {
				end = next.Lines().At(0)
			}
		default:
			end = nextBoundary(root, heading, heading.(*ast.Heading).Level)
		}

		*out = append(*out, section{
			HeaderPath: headerPath(path),
			Body:       sliceBetween(source, heading.Lines().At(0), end),
		})

		if len(item.Items) > 0 {
			collectSections(root, source, item.Items, path, out)
		}
	}
}

// headerPath renders ["Safety", "PPE"] as "# Safety > ## PPE".
func headerPath(path []string) string {
	parts := make([]string, len(path))
	for i, title := range path {
		parts[i] = strings.Repeat("#", i+1) + " " + title
	}
	return strings.Join(parts, " > ")
}

func headingByID(root ast.Node, id string) ast.Node {
	var found ast.Node
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		if v, ok := n.AttributeString("id"); ok {
			if b, ok := v.([]byte); ok && string(b) == id {
				found = n
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// nextBoundary finds the first heading after current at the same or a higher
// level. The zero segment means "until end of file".
func nextBoundary(root, current ast.Node, level int) text.Segment {
	var next ast.Node
	seen := false
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		if !seen {
			seen = n == current
			return ast.WalkContinue, nil
		}
		if n.(*ast.Heading).Level <= level {
			next = n
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if next == nil {
		return text.Segment{}
	}
	return next.Lines().At(0)
}

// sliceBetween returns the text from the start heading's title up to the line
// holding the end heading, so the next heading's "##" marker is not included.
func sliceBetween(source []byte, start, end text.Segment) string {
	if end.Start == 0 && end.Stop == 0 {
		return strings.TrimSpace(string(source[start.Start:]))
	}
	stop := end.Start
	for stop > start.Start && source[stop-1] != '\n' {
		stop--
	}
	return strings.TrimSpace(string(source[start.Start:stop]))
}
