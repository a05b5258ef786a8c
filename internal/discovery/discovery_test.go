package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

const dashboard = `| Type | Project | Link | Status |
| :--- | :--- | :--- | :--- |
| 🖥️ | **Local** | (Local) | 🆕 Registered |
| ☁️ | **Api** | [repo](https://github.com/octo/api) | ✅ Active |
| ☁️ | **Tool** | git@github.com:octo/tool.git | ✅ Active |
| ☁️ | **Site** | https://github.com/octo/site | 🚧 WIP |
| ☁️ | **Ftp** | ftp://example.com/x | ❓ |

## Scratchpad
`

func TestDiscover(t *testing.T) {
	refs := Discover(dashboard)
	want := []ProjectRef{
		{Name: "Api", RepositoryURL: "https://github.com/octo/api"},
		{Name: "Tool", RepositoryURL: "git@github.com:octo/tool.git"},
		{Name: "Site", RepositoryURL: "https://github.com/octo/site"},
	}
	if len(refs) != len(want) {
		t.Fatalf("Expected %d refs, got %d: %+v", len(want), len(refs), refs)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("Expected %+v at %d, got %+v", want[i], i, refs[i])
		}
	}
}

func TestDiscover_FirstRowWins(t *testing.T) {
	text := `| Type | Project | Link | Status |
| :--- | :--- | :--- | :--- |
| ☁️ | **Foo** | https://github.com/octo/foo | ✅ |
| ☁️ | **Foo** | https://github.com/octo/other | ✅ |
| 🖥️ | **Bar** | (Local) | ✅ |
| ☁️ | **Bar** | https://github.com/octo/bar | ✅ |
`
	refs := Discover(text)
	if len(refs) != 1 || refs[0] != (ProjectRef{Name: "Foo", RepositoryURL: "https://github.com/octo/foo"}) {
		t.Errorf("Expected only the first Foo row, got %+v", refs)
	}
}

func TestResolveLink(t *testing.T) {
	tests := []struct {
		cell string
		want string
		ok   bool
	}{
		{cell: "(Local)", ok: false},
		{cell: "", ok: false},
		{cell: "TBD", ok: false},
		{cell: "[gh](ssh://git@github.com/o/r.git)", want: "ssh://git@github.com/o/r.git", ok: true},
		{cell: "<https://example.com/r>", want: "https://example.com/r", ok: true},
		{cell: "https://", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			got, ok := ResolveLink(tt.cell)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Expected (%q, %v), got (%q, %v)", tt.want, tt.ok, got, ok)
			}
		})
	}
}

// fakeCloner creates the target directory, or fails for listed URLs
type fakeCloner struct {
	mu     sync.Mutex
	fail   map[string]bool
	cloned []string
}

func (f *fakeCloner) Clone(ctx context.Context, repoURL, dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[repoURL] {
		_ = os.MkdirAll(dir, 0o755) // leave debris behind like a broken clone
		return errors.New("repository not found")
	}
	f.cloned = append(f.cloned, repoURL)
	return os.MkdirAll(dir, 0o755)
}

func TestBulkSync_SkipThenClone(t *testing.T) {
	tests := []struct {
		name   string
		fail   bool
		second Status
	}{
		{name: "clone succeeds", second: Succeeded},
		{name: "clone fails", fail: true, second: Failed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			if err := os.Mkdir(filepath.Join(root, "Existing"), 0o755); err != nil {
				t.Fatal(err)
			}
			cloner := &fakeCloner{fail: map[string]bool{"https://x/new": tt.fail}}
			refs := []ProjectRef{
				{Name: "Existing", RepositoryURL: "https://x/existing"},
				{Name: "New", RepositoryURL: "https://x/new"},
			}

			out := NewSyncer(cloner).BulkSync(context.Background(), refs, root)
			if len(out) != 2 {
				t.Fatalf("Expected 2 outcomes, got %d", len(out))
			}
			if out[0].Name != "Existing" || out[0].Status != Skipped {
				t.Errorf("Expected first skipped, got %+v", out[0])
			}
			if out[1].Name != "New" || out[1].Status != tt.second {
				t.Errorf("Expected second %v, got %+v", tt.second, out[1])
			}
			if tt.fail {
				if out[1].Reason == "" {
					t.Error("Expected failure reason")
				}
				if _, err := os.Stat(filepath.Join(root, "New")); !os.IsNotExist(err) {
					t.Error("Expected partial clone removed")
				}
			}
		})
	}
}

func TestBulkSync_FailureIsolatedAndOrdered(t *testing.T) {
	root := t.TempDir()
	cloner := &fakeCloner{fail: map[string]bool{"u1": true, "u3": true}}
	var refs []ProjectRef
	for _, n := range []string{"a", "b", "c", "d", "e", "f"} {
		refs = append(refs, ProjectRef{Name: n, RepositoryURL: "u" + string(rune('0'+len(refs)))})
	}

	out := NewSyncer(cloner, WithConcurrency(2)).BulkSync(context.Background(), refs, root)
	for i, o := range out {
		if o.Name != refs[i].Name {
			t.Errorf("Expected outcome %d for %s, got %s", i, refs[i].Name, o.Name)
		}
		want := Succeeded
		if i == 1 || i == 3 {
			want = Failed
		}
		if o.Status != want {
			t.Errorf("Expected %s %v, got %v", o.Name, want, o.Status)
		}
	}
	if len(cloner.cloned) != 4 {
		t.Errorf("Expected 4 successful clones, got %d", len(cloner.cloned))
	}
}

// checkoutCloner writes a README and refuses a directory that already exists
type checkoutCloner struct{}

func (checkoutCloner) Clone(ctx context.Context, repoURL, dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return errors.New("repository already exists")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "README"), []byte(repoURL), 0o644)
}

func TestBulkSync_DuplicateNames(t *testing.T) {
	root := t.TempDir()
	refs := []ProjectRef{
		{Name: "Foo", RepositoryURL: "https://x/foo"},
		{Name: "Foo", RepositoryURL: "https://x/foo-copy"},
		{Name: "Bar", RepositoryURL: "https://x/bar"},
	}

	out := NewSyncer(checkoutCloner{}, WithConcurrency(4)).BulkSync(context.Background(), refs, root)
	if out[0].Status != Succeeded {
		t.Errorf("Expected first Foo cloned, got %+v", out[0])
	}
	if out[1].Name != "Foo" || out[1].Status != Skipped || out[1].Reason == "" {
		t.Errorf("Expected duplicate Foo skipped with a reason, got %+v", out[1])
	}
	if out[2].Status != Succeeded {
		t.Errorf("Expected Bar cloned, got %+v", out[2])
	}
	data, err := os.ReadFile(filepath.Join(root, "Foo", "README"))
	if err != nil {
		t.Fatalf("Expected Foo checkout intact: %v", err)
	}
	if string(data) != "https://x/foo" {
		t.Errorf("Expected Foo cloned from the first row, got %q", data)
	}
}

func TestBulkSync_RejectsPathNames(t *testing.T) {
	out := NewSyncer(&fakeCloner{}).BulkSync(context.Background(), []ProjectRef{{Name: "../evil", RepositoryURL: "u"}}, t.TempDir())
	if out[0].Status != Failed {
		t.Errorf("Expected path-like name to fail, got %+v", out[0])
	}
}

func TestGitCloner_BadRemote(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "clone")
	err := GitCloner{}.Clone(context.Background(), filepath.Join(t.TempDir(), "no-such-repo"), dir)
	if err == nil {
		t.Fatal("Expected clone of a missing repository to fail")
	}
}
