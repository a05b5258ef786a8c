package document

import (
	"fmt"
	"strings"
)

// DefaultMarker is the line new log entries are inserted after
const DefaultMarker = "<!-- LOG_START -->"

// LocateMarker returns the byte offset just past the first occurrence of
// marker in text.
func LocateMarker(text, marker string) (int, error) {
	if marker == "" {
		return 0, fmt.Errorf("%w: empty marker", ErrMissingMarker)
	}
	i := strings.Index(text, marker)
	if i < 0 {
		return 0, fmt.Errorf("%w: %s", ErrMissingMarker, marker)
	}
	return i + len(marker), nil
}
