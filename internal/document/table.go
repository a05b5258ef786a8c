package document

import (
	"fmt"
	"strings"
)

// RowCells is the number of cells in a well-formed dashboard row
const RowCells = 4

// Line is one line of a markdown document. Cells is nil unless the line is
// a pipe-delimited table row.
type Line struct {
	Raw   string
	Cells []string
}

// IsRow reports whether the line was tokenized as a table row
func (l Line) IsRow() bool {
	return l.Cells != nil
}

// IsSeparator reports whether the line is a table delimiter row (| :--- |)
func (l Line) IsSeparator() bool {
	if !l.IsRow() {
		return false
	}
	for _, c := range l.Cells {
		c = strings.Trim(c, ":")
		if c == "" || strings.Trim(c, "-") != "" {
			return false
		}
	}
	return true
}

// Tokenize splits text into lines and parses the cells of table rows.
// Join(Tokenize(text)) == text for any input.
func Tokenize(text string) []Line {
	raw := strings.Split(text, "\n")
	lines := make([]Line, len(raw))
	for i, r := range raw {
		lines[i] = Line{Raw: r, Cells: splitCells(r)}
	}
	return lines
}

// Join reassembles tokenized lines into text
func Join(lines []Line) string {
	raw := make([]string, len(lines))
	for i, l := range lines {
		raw[i] = l.Raw
	}
	return strings.Join(raw, "\n")
}

func splitCells(line string) []string {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, "|") {
		return nil
	}
	s = strings.TrimPrefix(s, "|")
	s = strings.TrimSuffix(s, "|")
	parts := strings.Split(s, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

// Row is a dashboard record
type Row struct {
	Icon   string
	Name   string
	Link   string
	Status string
}

// String formats the row in the dashboard layout. Line breaks inside a
// cell are folded so the row stays on one line.
func (r Row) String() string {
	return fmt.Sprintf("| %s | **%s** | %s | %s |",
		newlines.Replace(r.Icon), newlines.Replace(r.Name), newlines.Replace(r.Link), newlines.Replace(r.Status))
}

// PlainName strips bold markup and surrounding whitespace from a name cell
func PlainName(cell string) string {
	return strings.TrimSpace(strings.ReplaceAll(cell, "**", ""))
}

// RowSpan locates a row inside tokenized lines
type RowSpan struct {
	Index int // line index of the row
	Row   Row
	// Malformed lists other lines that named the same record but had too
	// few cells to be rewritten. They are left untouched.
	Malformed []int
}

// LocateRow finds the row whose name cell equals name. Header rows (those
// directly above a delimiter row) never match.
func LocateRow(lines []Line, name string) (RowSpan, error) {
	span := RowSpan{Index: -1}
	for i, l := range lines {
		if !l.IsRow() || l.IsSeparator() {
			continue
		}
		if i+1 < len(lines) && lines[i+1].IsSeparator() {
			continue
		}

		if len(l.Cells) < RowCells {
			for _, c := range l.Cells {
				if PlainName(c) == name {
					span.Malformed = append(span.Malformed, i)
					break
				}
			}
			continue
		}
		if PlainName(l.Cells[1]) != name || span.Index >= 0 {
			continue
		}
		span.Index = i
		span.Row = Row{
			Icon:   l.Cells[0],
			Name:   name,
			Link:   l.Cells[2],
			Status: strings.Join(l.Cells[3:], " | "),
		}
	}

	if span.Index >= 0 {
		return span, nil
	}
	if len(span.Malformed) > 0 {
		return span, fmt.Errorf("%w: row %q at line %d has fewer than %d cells",
			ErrMalformedRecord, name, span.Malformed[0]+1, RowCells)
	}
	return span, fmt.Errorf("%w: row %q", ErrNotFound, name)
}

// Rows returns every well-formed record row in document order
func Rows(lines []Line) []Row {
	var rows []Row
	for i, l := range lines {
		if !l.IsRow() || l.IsSeparator() || len(l.Cells) < RowCells {
			continue
		}
		if i+1 < len(lines) && lines[i+1].IsSeparator() {
			continue
		}
		rows = append(rows, Row{
			Icon:   l.Cells[0],
			Name:   PlainName(l.Cells[1]),
			Link:   l.Cells[2],
			Status: strings.Join(l.Cells[3:], " | "),
		})
	}
	return rows
}
