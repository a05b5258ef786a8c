package document

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// DefaultSection is the heading new dashboard rows are inserted above
const DefaultSection = "Scratchpad"

var (
	markdownOnce   sync.Once
	markdownParser goldmark.Markdown
)

func parser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParser
}

// Heading is a markdown heading and the line it starts on
type Heading struct {
	Line  int
	Level int
	Text  string
}

// Headings returns every heading of the document in order
func Headings(source string) []Heading {
	src := []byte(source)
	doc := parser().Parser().Parse(text.NewReader(src))

	var headings []Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if h.Lines().Len() > 0 {
			start := h.Lines().At(0).Start
			headings = append(headings, Heading{
				Line:  bytes.Count(src[:start], []byte("\n")),
				Level: h.Level,
				Text:  strings.TrimSpace(string(h.Text(src))),
			})
		}
		return ast.WalkSkipChildren, nil
	})
	return headings
}

// LocateSection returns the line index of the first heading whose text
// contains section.
func LocateSection(source, section string) (int, error) {
	if section == "" {
		return 0, fmt.Errorf("%w: empty section name", ErrNoInsertionPoint)
	}
	for _, h := range Headings(source) {
		if strings.Contains(h.Text, section) {
			return h.Line, nil
		}
	}
	return 0, fmt.Errorf("%w: no %q heading", ErrNoInsertionPoint, section)
}
