// Package document locates records inside the ledger's text documents: rows
// of the dashboard table, the log insertion marker of a status file, and
// entries of the JSON workspace registry. Everything here is pure.
package document

import "errors"

var (
	// ErrNotFound indicates the requested record is not in the document
	ErrNotFound = errors.New("record not found")
	// ErrMalformedRecord indicates a line names the record but cannot be parsed
	ErrMalformedRecord = errors.New("malformed record")
	// ErrMissingMarker indicates the log insertion marker is absent
	ErrMissingMarker = errors.New("missing insertion marker")
	// ErrNoInsertionPoint indicates the section heading new rows go above is absent
	ErrNoInsertionPoint = errors.New("no insertion point")
	// ErrInvalidDocument indicates a JSON document of the wrong shape
	ErrInvalidDocument = errors.New("invalid document")
)

// IsStructural reports whether err means the document itself needs repair
func IsStructural(err error) bool {
	return errors.Is(err, ErrMalformedRecord) ||
		errors.Is(err, ErrMissingMarker) ||
		errors.Is(err, ErrNoInsertionPoint) ||
		errors.Is(err, ErrInvalidDocument)
}
