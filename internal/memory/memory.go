// Package memory mirrors the local agent memory files to the ledger store
// and back.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/gurisko/hq/internal/blobstore"
	"github.com/gurisko/hq/internal/ledger"
	"github.com/gurisko/hq/internal/upsert"
)

// Files are the memory documents kept in sync
var Files = []string{"SHORT_TERM.md", "LONG_TERM.md"}

// RemoteDir is the store directory holding memory documents
const RemoteDir = "memory"

// Action is what happened to one file
type Action string

const (
	Created   Action = "created"
	Updated   Action = "updated"
	Unchanged Action = "unchanged"
	Pulled    Action = "pulled"
	Missing   Action = "missing" // absent on the side being read
	Errored   Action = "error"
)

// FileResult reports one file of a push or pull
type FileResult struct {
	File   string
	Action Action
	Err    error
}

// Syncer moves memory files between localDir and the store
type Syncer struct {
	writer   *ledger.Writer
	localDir string
	logger   *log.Logger
}

// NewSyncer creates a Syncer for localDir
func NewSyncer(writer *ledger.Writer, localDir string, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Syncer{writer: writer, localDir: localDir, logger: logger}
}

func remotePath(file string) string {
	return path.Join(RemoteDir, file)
}

// Push uploads every local memory file, creating or replacing the remote
// copy. Identical files are left alone.
func (s *Syncer) Push(ctx context.Context) []FileResult {
	results := make([]FileResult, 0, len(Files))
	for _, file := range Files {
		content, err := os.ReadFile(filepath.Join(s.localDir, file))
		if errors.Is(err, os.ErrNotExist) {
			results = append(results, FileResult{File: file, Action: Missing})
			continue
		}
		if err != nil {
			results = append(results, FileResult{File: file, Action: Errored, Err: err})
			continue
		}

		res, err := s.writer.Apply(ctx, remotePath(file), file, func(current []byte, exists bool) ([]byte, string, error) {
			if !exists {
				return content, "🧠 Memory Init: " + file, nil
			}
			next, err := upsert.ReplaceDocument(current, content)
			return next, "🧠 Memory Update: " + file, err
		})
		if err != nil {
			s.logger.Warn("memory push failed", "file", file, "err", err)
			results = append(results, FileResult{File: file, Action: Errored, Err: err})
			continue
		}

		action := Unchanged
		switch res.Outcome {
		case ledger.Created:
			action = Created
		case ledger.Updated:
			action = Updated
		}
		results = append(results, FileResult{File: file, Action: action})
	}
	return results
}

// Pull downloads every remote memory file into the local directory. A file
// missing remotely is reported and does not stop the others.
func (s *Syncer) Pull(ctx context.Context) []FileResult {
	results := make([]FileResult, 0, len(Files))
	if err := os.MkdirAll(s.localDir, 0o755); err != nil {
		for _, file := range Files {
			results = append(results, FileResult{File: file, Action: Errored, Err: err})
		}
		return results
	}

	for _, file := range Files {
		doc, err := s.writer.Fetch(ctx, remotePath(file))
		if errors.Is(err, blobstore.ErrNotFound) {
			results = append(results, FileResult{File: file, Action: Missing})
			continue
		}
		if err != nil {
			results = append(results, FileResult{File: file, Action: Errored, Err: err})
			continue
		}
		if err := os.WriteFile(filepath.Join(s.localDir, file), doc.Content, 0o644); err != nil {
			results = append(results, FileResult{File: file, Action: Errored, Err: fmt.Errorf("write %s: %w", file, err)})
			continue
		}
		results = append(results, FileResult{File: file, Action: Pulled})
	}
	return results
}
