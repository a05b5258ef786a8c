// Package blobstoretest provides a behavioural test suite shared by all
// blobstore backends.
package blobstoretest

import (
	"context"
	"errors"
	"testing"

	"github.com/gurisko/hq/internal/blobstore"
)

// Run exercises the Store contract against a fresh, empty store.
func Run(t *testing.T, store blobstore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("fetch missing", func(t *testing.T) {
		_, err := store.Fetch(ctx, "missing/doc.md")
		if !errors.Is(err, blobstore.ErrNotFound) {
			t.Fatalf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("create then fetch", func(t *testing.T) {
		v, err := store.Create(ctx, "docs/a.md", "create a", []byte("hello\n"))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if v == "" {
			t.Fatal("Expected non-empty version")
		}
		doc, err := store.Fetch(ctx, "docs/a.md")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if string(doc.Content) != "hello\n" {
			t.Errorf("Expected content %q, got %q", "hello\n", doc.Content)
		}
		if doc.Version != v {
			t.Errorf("Expected version %q, got %q", v, doc.Version)
		}
	})

	t.Run("create existing", func(t *testing.T) {
		if _, err := store.Create(ctx, "docs/b.md", "create b", []byte("one")); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		_, err := store.Create(ctx, "docs/b.md", "create b again", []byte("two"))
		if !errors.Is(err, blobstore.ErrAlreadyExists) {
			t.Fatalf("Expected ErrAlreadyExists, got %v", err)
		}
		doc, err := store.Fetch(ctx, "docs/b.md")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if string(doc.Content) != "one" {
			t.Errorf("Create must not overwrite, got %q", doc.Content)
		}
	})

	t.Run("update with current version", func(t *testing.T) {
		v1, err := store.Create(ctx, "docs/c.md", "create c", []byte("v1"))
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		v2, err := store.Update(ctx, "docs/c.md", "update c", []byte("v2"), v1)
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if v2 == v1 {
			t.Errorf("Expected a new version after update")
		}
		doc, err := store.Fetch(ctx, "docs/c.md")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if string(doc.Content) != "v2" || doc.Version != v2 {
			t.Errorf("Expected (v2, %q), got (%q, %q)", v2, doc.Content, doc.Version)
		}
	})

	t.Run("two writers same version", func(t *testing.T) {
		if _, err := store.Create(ctx, "docs/d.md", "create d", []byte("base")); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		first, err := store.Fetch(ctx, "docs/d.md")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		second, err := store.Fetch(ctx, "docs/d.md")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if _, err := store.Update(ctx, "docs/d.md", "writer one", []byte("one"), first.Version); err != nil {
			t.Fatalf("First update failed: %v", err)
		}
		_, err = store.Update(ctx, "docs/d.md", "writer two", []byte("two"), second.Version)
		if !errors.Is(err, blobstore.ErrVersionConflict) {
			t.Fatalf("Expected ErrVersionConflict, got %v", err)
		}
		doc, err := store.Fetch(ctx, "docs/d.md")
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if string(doc.Content) != "one" {
			t.Errorf("Losing writer must not overwrite, got %q", doc.Content)
		}
	})

	t.Run("update missing", func(t *testing.T) {
		_, err := store.Update(ctx, "docs/never.md", "update", []byte("x"), "whatever")
		if !errors.Is(err, blobstore.ErrNotFound) && !errors.Is(err, blobstore.ErrVersionConflict) {
			t.Fatalf("Expected ErrNotFound or ErrVersionConflict, got %v", err)
		}
	})
}
