package gitrepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gurisko/hq/internal/blobstore/blobstoretest"
)

func TestStore_Contract(t *testing.T) {
	s, err := Open(t.TempDir(), "tester")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	blobstoretest.Run(t, s)
}

func TestStore_ReopenSeesCommittedDocuments(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir, "tester")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	v, err := s.Create(ctx, "workspaces/config.json", "Register new workspace: w", []byte(`{"workspaces": []}`))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	reopened, err := Open(dir, "tester")
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	doc, err := reopened.Fetch(ctx, "workspaces/config.json")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if doc.Version != v {
		t.Errorf("Expected version %q after reopen, got %q", v, doc.Version)
	}
	if _, err := os.Stat(filepath.Join(dir, "workspaces", "config.json")); err != nil {
		t.Errorf("Expected document in worktree: %v", err)
	}
}

func TestStore_HistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	s, err := Open(t.TempDir(), "tester")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	v, err := s.Create(ctx, "DASHBOARD.md", "create", []byte("a"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Update(ctx, "DASHBOARD.md", "update", []byte("b"), v); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if _, err := s.Create(ctx, "other.md", "unrelated", []byte("c")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	history, err := s.History("DASHBOARD.md", 0)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 || history[0] != "update" || history[1] != "create" {
		t.Errorf("Expected [update create], got %v", history)
	}
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "/DASHBOARD.md", want: "DASHBOARD.md"},
		{in: "projects/x/../y/STATUS.md", want: "projects/y/STATUS.md"},
		{in: "../escape.md", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := cleanPath(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("cleanPath failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
