// Package upsert computes the next text of a ledger document from its
// current text and a desired record. Nothing here performs I/O; every
// function either returns the new content or ErrNoChange.
package upsert

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/gurisko/hq/internal/document"
)

// ErrNoChange indicates the desired record is already in place
var ErrNoChange = errors.New("no change")

// RowUpdate describes the desired state of an existing dashboard row. Empty
// Link or Icon keeps the value the row already has.
type RowUpdate struct {
	Name   string
	Status string
	Link   string
	Icon   string
}

// UpdateRow rewrites the row named u.Name. The returned indices are lines
// that named the same record but were too malformed to touch.
func UpdateRow(text string, u RowUpdate) (string, []int, error) {
	lines := document.Tokenize(text)
	span, err := document.LocateRow(lines, u.Name)
	if err != nil {
		return "", span.Malformed, err
	}

	row := span.Row
	row.Status = u.Status
	if u.Link != "" {
		row.Link = u.Link
	}
	if u.Icon != "" {
		row.Icon = u.Icon
	}

	old := lines[span.Index].Raw
	next := row.String()
	if strings.HasSuffix(old, "\r") {
		next += "\r"
	}
	if next == old {
		return "", span.Malformed, ErrNoChange
	}
	lines[span.Index].Raw = next
	return document.Join(lines), span.Malformed, nil
}

// InsertRow adds row above the first heading containing section, after any
// blank lines that separate the table from that heading. A row that already
// exists is left as is.
func InsertRow(text string, row document.Row, section string) (string, error) {
	lines := document.Tokenize(text)
	if _, err := document.LocateRow(lines, row.Name); err == nil {
		return "", ErrNoChange
	} else if !errors.Is(err, document.ErrNotFound) {
		return "", err
	}

	at, err := document.LocateSection(text, section)
	if err != nil {
		return "", err
	}
	for at > 0 && strings.TrimSpace(lines[at-1].Raw) == "" {
		at--
	}

	raw := row.String()
	if at > 0 && strings.HasSuffix(lines[at-1].Raw, "\r") {
		raw += "\r"
	}
	out := make([]document.Line, 0, len(lines)+1)
	out = append(out, lines[:at]...)
	out = append(out, document.Line{Raw: raw})
	out = append(out, lines[at:]...)
	return document.Join(out), nil
}

// AppendLog inserts entry on its own line directly after the first marker,
// so the newest entry is always nearest the marker. Entries are never
// deduplicated.
func AppendLog(text, marker string, entry document.LogEntry) (string, error) {
	off, err := document.LocateMarker(text, marker)
	if err != nil {
		return "", err
	}
	return text[:off] + "\n" + entry.String() + text[off:], nil
}

// UpsertEntry merges entry into the array entry sharing its keyField, field
// by field, or appends it. Fields of entry replace existing values whole.
// existed reports whether an entry with the key was already present.
func UpsertEntry(arr *document.Array, keyField string, entry document.Entry) (existed bool, err error) {
	key := entry.String(keyField)
	if key == "" {
		return false, fmt.Errorf("%w: entry has no %q", document.ErrInvalidDocument, keyField)
	}

	i, current, err := arr.Locate(keyField, key)
	if errors.Is(err, document.ErrNotFound) {
		arr.Entries = append(arr.Entries, cloneEntry(entry))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	merged := cloneEntry(current)
	for k, v := range entry {
		merged[k] = v
	}
	if merged.Equal(current) {
		return true, ErrNoChange
	}
	arr.Entries[i] = merged
	return true, nil
}

func cloneEntry(e document.Entry) document.Entry {
	out := make(document.Entry, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// ReplaceDocument returns next unless it equals current
func ReplaceDocument(current, next []byte) ([]byte, error) {
	if bytes.Equal(current, next) {
		return nil, ErrNoChange
	}
	return next, nil
}
