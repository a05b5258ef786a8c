package reporter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gurisko/hq/internal/blobstore"
	"github.com/gurisko/hq/internal/document"
	"github.com/gurisko/hq/internal/ledger"
)

const dashboard = `# Command Center

| Type | Project | Link | Status |
| :--- | :--- | :--- | :--- |
| 🖥️ | **Foo** | (Local) | 🆕 Registered |

## 📝 Scratchpad
`

func newTestReporter(t *testing.T) (*Reporter, *blobstore.Memory) {
	t.Helper()
	store := blobstore.NewMemory()
	store.Put(DefaultDashboardPath, dashboard)
	clock := func() time.Time { return time.Date(2025, 6, 1, 4, 0, 0, 0, time.UTC) }
	r := New(ledger.NewWriter(store, ledger.WithBackoff(0)),
		WithClock(clock),
		WithLocation(time.FixedZone("CST", 8*3600)))
	return r, store
}

func TestUpdateStatus_Scenario(t *testing.T) {
	r, store := newTestReporter(t)

	res, err := r.UpdateStatus(context.Background(), "Foo", "✅ Active", "", "")
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if res.Outcome != ledger.Updated {
		t.Errorf("Expected updated, got %v", res.Outcome)
	}
	if !strings.Contains(store.Content(DefaultDashboardPath), "| ☁️ | **Foo** | (Local) | ✅ Active |") {
		t.Errorf("Expected rewritten row, got:\n%s", store.Content(DefaultDashboardPath))
	}
	if msg := store.LastMessage(DefaultDashboardPath); msg != "🤖 Status Update: Foo" {
		t.Errorf("Expected status commit message, got %q", msg)
	}

	res, err = r.UpdateStatus(context.Background(), "Foo", "✅ Active", "", "")
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if res.Outcome != ledger.Unchanged || store.Mutations() != 1 {
		t.Errorf("Expected second call to be a no-op, got %v with %d mutations", res.Outcome, store.Mutations())
	}
}

func TestUpdateStatus_UnknownProject(t *testing.T) {
	r, _ := newTestReporter(t)
	_, err := r.UpdateStatus(context.Background(), "Nope", "x", "", "")
	if !errors.Is(err, document.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRegister_CreatesRowAndStatus(t *testing.T) {
	r, store := newTestReporter(t)
	ctx := context.Background()

	reg, err := r.Register(ctx, Project{Name: "Bar"})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if reg.Dashboard.Outcome != ledger.Updated || reg.Status.Outcome != ledger.Created {
		t.Errorf("Expected row updated and status created, got %v / %v", reg.Dashboard.Outcome, reg.Status.Outcome)
	}
	if !strings.Contains(store.Content(DefaultDashboardPath), "| 🖥️ | **Bar** | (Local) | 🆕 Registered |") {
		t.Errorf("Expected default row, got:\n%s", store.Content(DefaultDashboardPath))
	}

	status := store.Content("projects/Bar/STATUS.md")
	for _, want := range []string{
		"# Project Status: Bar",
		document.DefaultMarker + "\n- `2025-06-01 12:00:00` ℹ️ **INFO**: Project registered in Command Center\n" + logEnd,
	} {
		if !strings.Contains(status, want) {
			t.Errorf("Expected %q in status document:\n%s", want, status)
		}
	}
	if msg := store.LastMessage("projects/Bar/STATUS.md"); msg != "🆕 Create STATUS for Bar" {
		t.Errorf("Expected create message, got %q", msg)
	}
}

func TestRegister_Unique(t *testing.T) {
	r, store := newTestReporter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := r.Register(ctx, Project{Name: "Foo"}); err != nil {
			t.Fatalf("Register %d failed: %v", i, err)
		}
	}
	if n := strings.Count(store.Content(DefaultDashboardPath), "**Foo**"); n != 1 {
		t.Errorf("Expected exactly one Foo row, got %d", n)
	}
}

func TestRegister_RejectsTableMarkup(t *testing.T) {
	r, _ := newTestReporter(t)
	for _, name := range []string{"", "a|b", "**x**", "a\nb"} {
		_, err := r.Register(context.Background(), Project{Name: name})
		if !errors.Is(err, ErrInvalidName) {
			t.Errorf("Expected %q rejected with ErrInvalidName, got %v", name, err)
		}
		if document.IsStructural(err) {
			t.Errorf("Expected %q to be a caller error, not structural", name)
		}
	}
}

func TestUpdateStatus_InvalidName(t *testing.T) {
	r, store := newTestReporter(t)
	_, err := r.UpdateStatus(context.Background(), "a|b", "x", "", "")
	if !errors.Is(err, ErrInvalidName) {
		t.Errorf("Expected ErrInvalidName, got %v", err)
	}
	if document.IsStructural(err) {
		t.Errorf("Expected a caller error, got structural %v", err)
	}
	if store.Mutations() != 0 {
		t.Errorf("Expected no writes, got %d", store.Mutations())
	}
}

func TestRowFields_RejectLineBreaksAndPipes(t *testing.T) {
	tests := []struct {
		name   string
		status string
		link   string
		icon   string
	}{
		{"newline in status", "a\nb", "", ""},
		{"carriage return in status", "a\rb", "", ""},
		{"pipe in status", "a | b", "", ""},
		{"newline in link", "ok", "http://x\ny", ""},
		{"pipe in icon", "ok", "", "|"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, store := newTestReporter(t)
			_, err := r.UpdateStatus(context.Background(), "Foo", tt.status, tt.link, tt.icon)
			if !errors.Is(err, ErrInvalidField) {
				t.Errorf("Expected ErrInvalidField, got %v", err)
			}
			if store.Content(DefaultDashboardPath) != dashboard {
				t.Errorf("Expected dashboard untouched, got:\n%s", store.Content(DefaultDashboardPath))
			}

			_, err = r.Register(context.Background(), Project{Name: "Bar", Status: tt.status, Link: tt.link, Type: tt.icon})
			if !errors.Is(err, ErrInvalidField) {
				t.Errorf("Expected Register to reject with ErrInvalidField, got %v", err)
			}
			if store.Mutations() != 0 {
				t.Errorf("Expected no writes, got %d", store.Mutations())
			}
		})
	}
}

func TestLog_OrderAndMessage(t *testing.T) {
	r, store := newTestReporter(t)
	ctx := context.Background()
	if _, err := r.Register(ctx, Project{Name: "Bar"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := r.Log(ctx, "Bar", "first entry", "info"); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if _, err := r.Log(ctx, "Bar", "second entry that is rather long indeed", "WARN"); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	status := store.Content("projects/Bar/STATUS.md")
	first := strings.Index(status, "ℹ️ **info**: first entry")
	second := strings.Index(status, "⚠️ **WARN**: second entry")
	if first < 0 || second < 0 || second > first {
		t.Errorf("Expected second entry above first, got:\n%s", status)
	}
	if msg := store.LastMessage("projects/Bar/STATUS.md"); msg != "📝 Log: Bar - second entry that is rather lo..." {
		t.Errorf("Expected truncated log message, got %q", msg)
	}
}

func TestLog_KeepsLevelText(t *testing.T) {
	r, store := newTestReporter(t)
	ctx := context.Background()
	if _, err := r.Register(ctx, Project{Name: "Bar"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	tests := []struct {
		level string
		want  string
	}{
		{"Deploy", "✅ **Deploy**: shipped"},
		{"warn", "⚠️ **warn**: shipped"},
		{"", "ℹ️ **INFO**: shipped"},
	}
	for _, tt := range tests {
		if _, err := r.Log(ctx, "Bar", "shipped", tt.level); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
		if status := store.Content("projects/Bar/STATUS.md"); !strings.Contains(status, tt.want) {
			t.Errorf("Expected %q in status, got:\n%s", tt.want, status)
		}
	}
}

func TestLog_MissingMarker(t *testing.T) {
	r, store := newTestReporter(t)
	store.Put("projects/Foo/STATUS.md", "# Project Status: Foo\n")

	_, err := r.Log(context.Background(), "Foo", "x", "")
	if !errors.Is(err, document.ErrMissingMarker) {
		t.Fatalf("Expected ErrMissingMarker, got %v", err)
	}
	if store.Content("projects/Foo/STATUS.md") != "# Project Status: Foo\n" {
		t.Error("Expected status document unchanged")
	}
}

func TestLog_AbsentStatus(t *testing.T) {
	r, _ := newTestReporter(t)
	_, err := r.Log(context.Background(), "Ghost", "x", "")
	if !errors.Is(err, ledger.ErrDocumentAbsent) {
		t.Errorf("Expected ErrDocumentAbsent, got %v", err)
	}
}
