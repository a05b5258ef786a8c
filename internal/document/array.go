package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Entry is one object of a JSON array. Fields are kept raw so fields this
// program does not know about survive a rewrite.
type Entry map[string]json.RawMessage

// String returns the string value of field, or "" when absent or not a string
func (e Entry) String(field string) string {
	raw, ok := e[field]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Equal reports field-wise deep equality
func (e Entry) Equal(other Entry) bool {
	if len(e) != len(other) {
		return false
	}
	for k, v := range e {
		w, ok := other[k]
		if !ok || !rawEqual(v, w) {
			return false
		}
	}
	return true
}

func rawEqual(a, b json.RawMessage) bool {
	if bytes.Equal(a, b) {
		return true
	}
	va, err := decode(a)
	if err != nil {
		return false
	}
	vb, err := decode(b)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}

func decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// Array is a JSON object document holding one array of entries under Field.
// Other top-level fields are preserved.
type Array struct {
	Field   string
	Entries []Entry
	root    map[string]json.RawMessage
}

// ParseArray parses data as an object with an array under field. A missing
// field is an empty array.
func ParseArray(data []byte, field string) (*Array, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: root is not a JSON object: %v", ErrInvalidDocument, err)
	}
	if root == nil {
		return nil, fmt.Errorf("%w: root is null", ErrInvalidDocument)
	}

	a := &Array{Field: field, root: root}
	raw, ok := root[field]
	if !ok || string(raw) == "null" {
		return a, nil
	}
	if err := json.Unmarshal(raw, &a.Entries); err != nil {
		return nil, fmt.Errorf("%w: %q is not an array of objects: %v", ErrInvalidDocument, field, err)
	}
	return a, nil
}

// NewArray returns an empty document holding field
func NewArray(field string) *Array {
	return &Array{Field: field, root: map[string]json.RawMessage{}}
}

// Locate returns the index of the first entry whose keyField equals keyValue
func (a *Array) Locate(keyField, keyValue string) (int, Entry, error) {
	for i, e := range a.Entries {
		if _, ok := e[keyField]; ok && e.String(keyField) == keyValue {
			return i, e, nil
		}
	}
	return -1, nil, fmt.Errorf("%w: %s=%q", ErrNotFound, keyField, keyValue)
}

// Marshal renders the document with sorted keys and two-space indentation
func (a *Array) Marshal() ([]byte, error) {
	root := make(map[string]any, len(a.root)+1)
	for k, raw := range a.root {
		v, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("decode field %q: %w", k, err)
		}
		root[k] = v
	}
	entries := make([]any, 0, len(a.Entries))
	for i, e := range a.Entries {
		obj := make(map[string]any, len(e))
		for k, raw := range e {
			v, err := decode(raw)
			if err != nil {
				return nil, fmt.Errorf("decode entry %d field %q: %w", i, k, err)
			}
			obj[k] = v
		}
		entries = append(entries, obj)
	}
	root[a.Field] = entries

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decoded returns the document as generic JSON values
func (a *Array) Decoded() (any, error) {
	data, err := a.Marshal()
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
