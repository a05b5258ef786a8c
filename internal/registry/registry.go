// Package registry keeps the shared workspace registry, a JSON document
// listing every workspace and the projects found in it.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/gurisko/hq/internal/blobstore"
	"github.com/gurisko/hq/internal/document"
	"github.com/gurisko/hq/internal/ledger"
	"github.com/gurisko/hq/internal/upsert"
)

const (
	// DefaultPath is where the registry lives in the store
	DefaultPath = "workspaces/config.json"
	// Field is the top-level array holding the workspaces
	Field = "workspaces"

	keyField = "name"
)

var (
	// ErrProjectNotFound indicates no workspace lists the project
	ErrProjectNotFound = errors.New("project not found")
	// ErrWorkspaceNotFound indicates no workspace matches
	ErrWorkspaceNotFound = errors.New("workspace not found")
	// ErrInvalidWorkspace indicates a workspace without a name
	ErrInvalidWorkspace = errors.New("invalid workspace")
)

// Synchronizer reads and updates the registry through a ledger writer
type Synchronizer struct {
	writer *ledger.Writer
	path   string
	logger *log.Logger
}

// Option configures a Synchronizer
type Option func(*Synchronizer)

// WithPath overrides the registry document path
func WithPath(p string) Option {
	return func(s *Synchronizer) {
		if p != "" {
			s.path = p
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(s *Synchronizer) { s.logger = l }
}

// New creates a Synchronizer
func New(writer *ledger.Writer, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		writer: writer,
		path:   DefaultPath,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the registry document path
func (s *Synchronizer) Path() string {
	return s.path
}

func toEntry(ws Workspace) (document.Entry, error) {
	if ws.Projects == nil {
		ws.Projects = []string{}
	}
	data, err := json.Marshal(ws)
	if err != nil {
		return nil, err
	}
	var e document.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return e, nil
}

// UpsertWorkspace registers ws, merging it over an existing entry of the
// same name. The projects list is replaced, not unioned.
func (s *Synchronizer) UpsertWorkspace(ctx context.Context, ws Workspace) (*ledger.Result, error) {
	if ws.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidWorkspace)
	}
	entry, err := toEntry(ws)
	if err != nil {
		return nil, fmt.Errorf("encode workspace %s: %w", ws.Name, err)
	}

	return s.writer.Apply(ctx, s.path, ws.Name, func(current []byte, exists bool) ([]byte, string, error) {
		arr := document.NewArray(Field)
		if exists {
			parsed, err := document.ParseArray(current, Field)
			if err != nil {
				return nil, "", err
			}
			if err := document.ValidateRegistry(parsed); err != nil {
				return nil, "", err
			}
			arr = parsed
		}

		existed, err := upsert.UpsertEntry(arr, keyField, entry)
		if err != nil {
			return nil, "", err
		}
		next, err := arr.Marshal()
		if err != nil {
			return nil, "", fmt.Errorf("encode registry: %w", err)
		}

		message := "Register new workspace: " + ws.Name
		if existed {
			message = "Update workspace: " + ws.Name
		}
		s.logger.Debug("registry merge computed", "workspace", ws.Name, "existing", existed)
		return next, message, nil
	})
}

// ListWorkspaces returns the registered workspaces in registry order. An
// absent registry is empty.
func (s *Synchronizer) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	doc, err := s.writer.Fetch(ctx, s.path)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch registry: %w", err)
	}

	arr, err := document.ParseArray(doc.Content, Field)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}

	workspaces := make([]Workspace, 0, len(arr.Entries))
	for i, e := range arr.Entries {
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("re-encode entry %d: %w", i, err)
		}
		var ws Workspace
		if err := json.Unmarshal(data, &ws); err != nil {
			return nil, fmt.Errorf("%w: %s entry %d: %v", document.ErrInvalidDocument, s.path, i, err)
		}
		workspaces = append(workspaces, ws)
	}
	return workspaces, nil
}

// FindProject returns the first workspace, in registry order, that lists
// project
func (s *Synchronizer) FindProject(ctx context.Context, project string) (*WorkspaceRef, error) {
	workspaces, err := s.ListWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	for _, ws := range workspaces {
		for _, p := range ws.Projects {
			if p == project {
				return refFor(ws, project), nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, project)
}

// FindByLocation returns the workspace registered at location
func (s *Synchronizer) FindByLocation(ctx context.Context, location string) (*Workspace, error) {
	workspaces, err := s.ListWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	for i := range workspaces {
		if workspaces[i].Location == location {
			return &workspaces[i], nil
		}
	}
	return nil, fmt.Errorf("%w: at %s", ErrWorkspaceNotFound, location)
}
