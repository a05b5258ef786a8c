package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var taskBox = regexp.MustCompile(`- \[([ xX])\]`)

// TaskProgress returns the percentage of checked boxes in projectDir/TASKS.md,
// rounded down. A missing file or one without boxes is 0.
func TaskProgress(projectDir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(projectDir, "TASKS.md"))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read tasks: %w", err)
	}

	boxes := taskBox.FindAllSubmatch(data, -1)
	if len(boxes) == 0 {
		return 0, nil
	}
	done := 0
	for _, b := range boxes {
		if string(b[1]) != " " {
			done++
		}
	}
	return done * 100 / len(boxes), nil
}
