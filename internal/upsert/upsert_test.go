package upsert

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gurisko/hq/internal/document"
)

const dashboard = `# Command Center

| Type | Project | Link | Status |
| :--- | :--- | :--- | :--- |
| 🖥️ | **Foo** | (Local) | 🆕 Registered |

## 📝 Scratchpad
`

func TestUpdateRow_PreservesLink(t *testing.T) {
	got, _, err := UpdateRow(dashboard, RowUpdate{Name: "Foo", Status: "✅ Active", Icon: "☁️"})
	if err != nil {
		t.Fatalf("UpdateRow failed: %v", err)
	}
	if !strings.Contains(got, "| ☁️ | **Foo** | (Local) | ✅ Active |\n") {
		t.Errorf("Expected rewritten row with preserved link, got:\n%s", got)
	}
	if strings.Contains(got, "🆕 Registered") {
		t.Error("Expected old row replaced, not duplicated")
	}
}

func TestUpdateRow_NoChangeWhenIdentical(t *testing.T) {
	once, _, err := UpdateRow(dashboard, RowUpdate{Name: "Foo", Status: "✅ Active", Icon: "☁️"})
	if err != nil {
		t.Fatalf("UpdateRow failed: %v", err)
	}
	_, _, err = UpdateRow(once, RowUpdate{Name: "Foo", Status: "✅ Active", Icon: "☁️"})
	if !errors.Is(err, ErrNoChange) {
		t.Errorf("Expected ErrNoChange, got %v", err)
	}
}

func TestUpdateRow_FoldsLineBreaks(t *testing.T) {
	once, _, err := UpdateRow(dashboard, RowUpdate{Name: "Foo", Status: "a\nb"})
	if err != nil {
		t.Fatalf("UpdateRow failed: %v", err)
	}
	if once != strings.Replace(dashboard, "🆕 Registered", "a b", 1) {
		t.Errorf("Expected row on one line, got:\n%s", once)
	}

	twice, _, err := UpdateRow(once, RowUpdate{Name: "Foo", Status: "c"})
	if err != nil {
		t.Fatalf("UpdateRow failed: %v", err)
	}
	if twice != strings.Replace(dashboard, "🆕 Registered", "c", 1) {
		t.Errorf("Expected only the status cell to change, got:\n%s", twice)
	}
}

func TestUpdateRow_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{name: "unknown project", text: dashboard, want: document.ErrNotFound},
		{name: "malformed row", text: "| 🖥️ | **Nope** |\n", want: document.ErrMalformedRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := UpdateRow(tt.text, RowUpdate{Name: "Nope", Status: "x"})
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestUpdateRow_KeepsCRLF(t *testing.T) {
	text := "| a | **Foo** | (Local) | old |\r\n## Scratchpad\r\n"
	got, _, err := UpdateRow(text, RowUpdate{Name: "Foo", Status: "new"})
	if err != nil {
		t.Fatalf("UpdateRow failed: %v", err)
	}
	if want := "| a | **Foo** | (Local) | new |\r\n## Scratchpad\r\n"; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestInsertRow(t *testing.T) {
	row := document.Row{Icon: "🖥️", Name: "Bar", Link: "(Local)", Status: "🆕 Registered"}
	got, err := InsertRow(dashboard, row, document.DefaultSection)
	if err != nil {
		t.Fatalf("InsertRow failed: %v", err)
	}
	want := "| 🖥️ | **Foo** | (Local) | 🆕 Registered |\n| 🖥️ | **Bar** | (Local) | 🆕 Registered |\n\n## 📝 Scratchpad"
	if !strings.Contains(got, want) {
		t.Errorf("Expected row appended to the table, got:\n%s", got)
	}

	if _, err := InsertRow(got, row, document.DefaultSection); !errors.Is(err, ErrNoChange) {
		t.Errorf("Expected second insert to be ErrNoChange, got %v", err)
	}
}

func TestInsertRow_NoSection(t *testing.T) {
	text := "| Type | Project | Link | Status |\n| --- | --- | --- | --- |\n"
	_, err := InsertRow(text, document.Row{Name: "Foo"}, document.DefaultSection)
	if !errors.Is(err, document.ErrNoInsertionPoint) {
		t.Errorf("Expected ErrNoInsertionPoint, got %v", err)
	}
}

func TestAppendLog_NewestFirst(t *testing.T) {
	text := "# Status\n<!-- LOG_START -->\n<!-- LOG_END -->\n"
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	afterA, err := AppendLog(text, document.DefaultMarker, document.LogEntry{Time: ts, Level: "INFO", Message: "A"})
	if err != nil {
		t.Fatalf("AppendLog failed: %v", err)
	}
	afterB, err := AppendLog(afterA, document.DefaultMarker, document.LogEntry{Time: ts, Level: "INFO", Message: "B"})
	if err != nil {
		t.Fatalf("AppendLog failed: %v", err)
	}

	a := strings.Index(afterB, "**INFO**: A")
	b := strings.Index(afterB, "**INFO**: B")
	m := strings.Index(afterB, document.DefaultMarker)
	if !(m < b && b < a) {
		t.Errorf("Expected marker < B < A, got marker=%d B=%d A=%d in:\n%s", m, b, a, afterB)
	}
}

func TestAppendLog_DuplicatesAllowed(t *testing.T) {
	text := "<!-- LOG_START -->\n"
	entry := document.LogEntry{Time: time.Unix(0, 0).UTC(), Level: "INFO", Message: "same"}
	once, _ := AppendLog(text, document.DefaultMarker, entry)
	twice, err := AppendLog(once, document.DefaultMarker, entry)
	if err != nil {
		t.Fatalf("AppendLog failed: %v", err)
	}
	if n := strings.Count(twice, "**INFO**: same"); n != 2 {
		t.Errorf("Expected 2 identical entries, got %d", n)
	}
}

func TestAppendLog_MissingMarker(t *testing.T) {
	_, err := AppendLog("# Status\n", document.DefaultMarker, document.LogEntry{Message: "x"})
	if !errors.Is(err, document.ErrMissingMarker) {
		t.Errorf("Expected ErrMissingMarker, got %v", err)
	}
}

func entry(t *testing.T, fields map[string]any) document.Entry {
	t.Helper()
	e := document.Entry{}
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal %s: %v", k, err)
		}
		e[k] = raw
	}
	return e
}

func TestUpsertEntry_ReplacesProjects(t *testing.T) {
	arr := document.NewArray("workspaces")

	existed, err := UpsertEntry(arr, "name", entry(t, map[string]any{"name": "W", "projects": []string{"x"}, "keep": 1}))
	if err != nil || existed {
		t.Fatalf("Expected first upsert to append, got existed=%v err=%v", existed, err)
	}
	existed, err = UpsertEntry(arr, "name", entry(t, map[string]any{"name": "W", "projects": []string{"y"}}))
	if err != nil || !existed {
		t.Fatalf("Expected second upsert to merge, got existed=%v err=%v", existed, err)
	}

	if len(arr.Entries) != 1 {
		t.Fatalf("Expected exactly one entry, got %d", len(arr.Entries))
	}
	var projects []string
	if err := json.Unmarshal(arr.Entries[0]["projects"], &projects); err != nil {
		t.Fatalf("decode projects: %v", err)
	}
	if len(projects) != 1 || projects[0] != "y" {
		t.Errorf("Expected projects [y], got %v", projects)
	}
	if _, ok := arr.Entries[0]["keep"]; !ok {
		t.Error("Expected unrelated field preserved by shallow merge")
	}
}

func TestUpsertEntry_NoChange(t *testing.T) {
	arr := document.NewArray("workspaces")
	e := entry(t, map[string]any{"name": "W", "projects": []string{"x"}})
	if _, err := UpsertEntry(arr, "name", e); err != nil {
		t.Fatalf("UpsertEntry failed: %v", err)
	}
	if _, err := UpsertEntry(arr, "name", e); !errors.Is(err, ErrNoChange) {
		t.Errorf("Expected ErrNoChange, got %v", err)
	}
}

func TestUpsertEntry_RequiresKey(t *testing.T) {
	arr := document.NewArray("workspaces")
	_, err := UpsertEntry(arr, "name", entry(t, map[string]any{"location": "/w"}))
	if !errors.Is(err, document.ErrInvalidDocument) {
		t.Errorf("Expected ErrInvalidDocument, got %v", err)
	}
}

func TestReplaceDocument(t *testing.T) {
	if _, err := ReplaceDocument([]byte("a"), []byte("a")); !errors.Is(err, ErrNoChange) {
		t.Errorf("Expected ErrNoChange, got %v", err)
	}
	got, err := ReplaceDocument([]byte("a"), []byte("b"))
	if err != nil || string(got) != "b" {
		t.Errorf("Expected b, got %q, %v", got, err)
	}
}
