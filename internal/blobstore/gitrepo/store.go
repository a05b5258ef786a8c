// Package gitrepo stores ledger documents as commits in a local git
// repository. The version of a document is the hash of its blob at HEAD, so
// a write only lands when HEAD still holds the blob the writer fetched.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/gurisko/hq/internal/blobstore"
)

// Store is a blobstore.Store backed by a non-bare git repository. Writes are
// serialized per process; the repository is meant for a single host.
type Store struct {
	dir    string
	author string
	email  string

	mu   sync.Mutex
	repo *git.Repository
}

var _ blobstore.Store = (*Store)(nil)

// Open opens the repository at dir, initializing it on a "main" branch if
// the directory holds no repository yet.
func Open(dir, author string) (*Store, error) {
	if author == "" {
		author = "hq"
	}
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create repo dir: %w", err)
		}
		repo, err = git.PlainInitWithOptions(dir, &git.PlainInitOptions{
			InitOptions: git.InitOptions{DefaultBranch: plumbing.Main},
		})
		if err != nil {
			return nil, fmt.Errorf("init repo: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}

	return &Store{
		dir:    dir,
		author: author,
		email:  fmt.Sprintf("%s@local.hq", sanitizeEmail(author)),
		repo:   repo,
	}, nil
}

func cleanPath(p string) (string, error) {
	p = path.Clean(strings.TrimPrefix(p, "/"))
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("invalid document path %q", p)
	}
	return p, nil
}

// current returns the blob at HEAD for p. Callers hold s.mu.
func (s *Store) current(p string) ([]byte, blobstore.Version, error) {
	ref, err := s.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, "", fmt.Errorf("%w: %s", blobstore.ErrNotFound, p)
		}
		return nil, "", fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := s.repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, "", fmt.Errorf("load HEAD commit: %w", err)
	}
	file, err := commit.File(p)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, "", fmt.Errorf("%w: %s", blobstore.ErrNotFound, p)
		}
		return nil, "", fmt.Errorf("read %s at HEAD: %w", p, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, "", fmt.Errorf("read blob %s: %w", p, err)
	}
	return []byte(contents), blobstore.Version(file.Hash.String()), nil
}

// Fetch implements blobstore.Store
func (s *Store) Fetch(ctx context.Context, p string) (*blobstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := cleanPath(p)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	content, version, err := s.current(p)
	if err != nil {
		return nil, err
	}
	return &blobstore.Document{Path: p, Content: content, Version: version}, nil
}

// Create implements blobstore.Store
func (s *Store) Create(ctx context.Context, p, message string, content []byte) (blobstore.Version, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := cleanPath(p)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, _, err := s.current(p); err == nil {
		return "", fmt.Errorf("%w: %s", blobstore.ErrAlreadyExists, p)
	} else if !errors.Is(err, blobstore.ErrNotFound) {
		return "", err
	}
	return s.commit(p, message, content)
}

// Update implements blobstore.Store
func (s *Store) Update(ctx context.Context, p, message string, content []byte, version blobstore.Version) (blobstore.Version, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p, err := cleanPath(p)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, current, err := s.current(p)
	if err != nil {
		return "", err
	}
	if current != version {
		return "", fmt.Errorf("%w: %s at %s, have %s", blobstore.ErrVersionConflict, p, current, version)
	}
	if string(existing) == string(content) {
		// nothing to commit; the blob hash is unchanged
		return current, nil
	}
	return s.commit(p, message, content)
}

// commit writes content to the worktree and commits it. Callers hold s.mu.
func (s *Store) commit(p, message string, content []byte) (blobstore.Version, error) {
	worktree, err := s.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}

	full := filepath.Join(s.dir, filepath.FromSlash(p))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create parent of %s: %w", p, err)
	}
	if err := os.WriteFile(full, content, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", p, err)
	}
	if _, err := worktree.Add(p); err != nil {
		return "", fmt.Errorf("git add %s: %w", p, err)
	}
	if _, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  s.author,
			Email: s.email,
			When:  time.Now(),
		},
	}); err != nil {
		return "", fmt.Errorf("commit %s: %w", p, err)
	}

	return blobstore.Version(plumbing.ComputeHash(plumbing.BlobObject, content).String()), nil
}

// History returns the commit messages touching p, newest first.
func (s *Store) History(p string, limit int) ([]string, error) {
	p, err := cleanPath(p)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := s.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	iter, err := s.repo.Log(&git.LogOptions{From: ref.Hash(), FileName: &p})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	var messages []string
	for {
		c, err := iter.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate log: %w", err)
		}
		messages = append(messages, strings.TrimSpace(c.Message))
		if limit > 0 && len(messages) >= limit {
			break
		}
	}
	return messages, nil
}

func sanitizeEmail(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "hq"
	}
	return b.String()
}
