// Package discovery turns dashboard rows into repository references and
// clones the ones missing from a local projects directory.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gurisko/hq/internal/document"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel clones
const DefaultConcurrency = 4

// ProjectRef is a project and the repository it can be cloned from
type ProjectRef struct {
	Name          string
	RepositoryURL string
}

var (
	markdownLink = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)\)`)
	scpLike      = regexp.MustCompile(`^[A-Za-z0-9._-]+@[A-Za-z0-9.-]+:[^/].*$`)
)

var cloneSchemes = map[string]bool{"http": true, "https": true, "ssh": true, "git": true}

// ResolveLink returns the repository URL a dashboard link cell points at.
// Placeholders such as "(Local)" resolve to nothing.
func ResolveLink(cell string) (string, bool) {
	cell = strings.TrimSpace(cell)
	if m := markdownLink.FindStringSubmatch(cell); m != nil {
		cell = m[1]
	}
	cell = strings.Trim(cell, "<>")

	if scpLike.MatchString(cell) {
		return cell, true
	}
	u, err := url.Parse(cell)
	if err != nil || u.Host == "" || !cloneSchemes[strings.ToLower(u.Scheme)] {
		return "", false
	}
	return cell, true
}

// Discover scans every dashboard row and keeps those with a resolvable link.
// When a project appears on several rows the first one wins.
func Discover(dashboard string) []ProjectRef {
	var refs []ProjectRef
	seen := make(map[string]bool)
	for _, row := range document.Rows(document.Tokenize(dashboard)) {
		if seen[row.Name] {
			continue
		}
		seen[row.Name] = true
		if u, ok := ResolveLink(row.Link); ok {
			refs = append(refs, ProjectRef{Name: row.Name, RepositoryURL: u})
		}
	}
	return refs
}

// Status is the result of syncing one project
type Status int

const (
	Skipped Status = iota
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Skipped:
		return "skipped"
	case Succeeded:
		return "succeeded"
	default:
		return "failed"
	}
}

// Outcome is the result of syncing one reference
type Outcome struct {
	Name   string
	Status Status
	Reason string // set when Failed, or when Skipped as a duplicate
}

// Cloner materializes a repository into dir
type Cloner interface {
	Clone(ctx context.Context, repoURL, dir string) error
}

// Syncer clones missing projects
type Syncer struct {
	cloner      Cloner
	concurrency int
	logger      *log.Logger
}

// Option configures a Syncer
type Option func(*Syncer)

// WithConcurrency bounds parallel clones
func WithConcurrency(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

// NewSyncer creates a Syncer using cloner
func NewSyncer(cloner Cloner, opts ...Option) *Syncer {
	s := &Syncer{
		cloner:      cloner,
		concurrency: DefaultConcurrency,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BulkSync clones every reference without a directory under root. A
// failure only affects its own outcome. Outcomes are in input order. Only
// the first reference of a name is cloned; later ones are skipped so two
// clones never share a directory.
func (s *Syncer) BulkSync(ctx context.Context, refs []ProjectRef, root string) []Outcome {
	outcomes := make([]Outcome, len(refs))
	first := make(map[string]int)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, ref := range refs {
		if j, dup := first[ref.Name]; dup {
			s.logger.Warn("duplicate project reference", "project", ref.Name, "first", j)
			outcomes[i] = Outcome{Name: ref.Name, Status: Skipped, Reason: "duplicate project"}
			continue
		}
		first[ref.Name] = i
		g.Go(func() error {
			outcomes[i] = s.syncOne(ctx, ref, root)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *Syncer) syncOne(ctx context.Context, ref ProjectRef, root string) Outcome {
	out := Outcome{Name: ref.Name}
	if err := checkName(ref.Name); err != nil {
		out.Status, out.Reason = Failed, err.Error()
		return out
	}

	dir := filepath.Join(root, ref.Name)
	if _, err := os.Stat(dir); err == nil {
		s.logger.Debug("project already present", "project", ref.Name, "dir", dir)
		out.Status = Skipped
		return out
	} else if !errors.Is(err, os.ErrNotExist) {
		out.Status, out.Reason = Failed, err.Error()
		return out
	}

	if err := ctx.Err(); err != nil {
		out.Status, out.Reason = Failed, err.Error()
		return out
	}
	s.logger.Info("cloning project", "project", ref.Name, "url", ref.RepositoryURL)
	if err := s.cloner.Clone(ctx, ref.RepositoryURL, dir); err != nil {
		// a partial clone would make the next run skip this project
		_ = os.RemoveAll(dir)
		s.logger.Warn("clone failed", "project", ref.Name, "err", err)
		out.Status, out.Reason = Failed, err.Error()
		return out
	}
	out.Status = Succeeded
	return out
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("project name %q is not a directory name", name)
	}
	return nil
}
