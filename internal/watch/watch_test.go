package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, dir string) (<-chan struct{}, context.CancelFunc, <-chan error) {
	t.Helper()
	w, err := New(dir, WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	calls := make(chan struct{}, 10)
	done := make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			calls <- struct{}{}
			return nil
		})
	}()
	t.Cleanup(cancel)
	return calls, cancel, done
}

func TestWatcherReportsNewProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "projects")
	calls, cancel, done := startWatcher(t, dir)

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("Expected watched dir to be created, got %v", err)
	}

	for _, name := range []string{"alpha", "beta", "gamma"} {
		if err := os.Mkdir(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected change callback after creating projects")
	}

	// The burst is debounced into a single call.
	select {
	case <-calls:
		t.Error("Expected one callback for a burst of changes")
	case <-time.After(300 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil from Run on cancel, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Expected Run to return after cancel")
	}
}

func TestWatcherIgnoresHiddenEntries(t *testing.T) {
	dir := t.TempDir()
	calls, _, _ := startWatcher(t, dir)

	if err := os.Mkdir(filepath.Join(dir, ".cache"), 0o755); err != nil {
		t.Fatal(err)
	}
	select {
	case <-calls:
		t.Error("Expected hidden directory to be ignored")
	case <-time.After(300 * time.Millisecond):
	}

	if err := os.Mkdir(filepath.Join(dir, "visible"), 0o755); err != nil {
		t.Fatal(err)
	}
	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected callback for visible directory")
	}
}
