package blobstore_test

import (
	"context"
	"testing"

	"github.com/gurisko/hq/internal/blobstore"
	"github.com/gurisko/hq/internal/blobstore/blobstoretest"
)

func TestMemory_Contract(t *testing.T) {
	blobstoretest.Run(t, blobstore.NewMemory())
}

func TestMemory_CountsMutations(t *testing.T) {
	m := blobstore.NewMemory()
	m.Put("seed.md", "seed")
	if m.Mutations() != 0 {
		t.Fatalf("Expected seeding to not count, got %d", m.Mutations())
	}

	ctx := context.Background()
	doc, err := m.Fetch(ctx, "seed.md")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if _, err := m.Update(ctx, "seed.md", "msg", []byte("next"), doc.Version); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, err := m.Create(ctx, "other.md", "msg", []byte("x")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if m.Mutations() != 2 {
		t.Errorf("Expected 2 mutations, got %d", m.Mutations())
	}
	if m.LastMessage("seed.md") != "msg" {
		t.Errorf("Expected message %q, got %q", "msg", m.LastMessage("seed.md"))
	}
}
