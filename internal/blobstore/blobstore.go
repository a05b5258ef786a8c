// Package blobstore defines the versioned document store the ledger writes to.
//
// A store holds plain-text documents addressed by slash-separated paths. Every
// stored revision carries an opaque Version token; Update only succeeds when the
// caller presents the version it last fetched, which gives writers optimistic
// concurrency without a coordinating server.
package blobstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates the path has never been created
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists indicates a create raced an existing document
	ErrAlreadyExists = errors.New("document already exists")
	// ErrVersionConflict indicates another writer committed since the fetch
	ErrVersionConflict = errors.New("version conflict")
)

// Version identifies one stored revision of a document. It is only ever
// compared for equality.
type Version string

// Document is a read-only snapshot of a stored document.
type Document struct {
	Path    string
	Content []byte
	Version Version
}

// Store is the contract every backend implements.
type Store interface {
	// Fetch returns the current content and version of path.
	Fetch(ctx context.Context, path string) (*Document, error)
	// Create stores a new document. It never overwrites an existing one.
	Create(ctx context.Context, path, message string, content []byte) (Version, error)
	// Update replaces path only if its current version equals version.
	Update(ctx context.Context, path, message string, content []byte, version Version) (Version, error)
}
