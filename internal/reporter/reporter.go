// Package reporter records project progress in the ledger: one row per
// project on the dashboard, and an activity log per project.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gurisko/hq/internal/document"
	"github.com/gurisko/hq/internal/ledger"
	"github.com/gurisko/hq/internal/upsert"
)

// Defaults of a freshly registered project
const (
	DefaultType          = "🖥️"
	DefaultLink          = "(Local)"
	DefaultInitialStatus = "🆕 Registered"
	DefaultStatusIcon    = "☁️"

	DefaultDashboardPath = "DASHBOARD.md"
	DefaultStatusPath    = "projects/%s/STATUS.md"
	DefaultTimezone      = "Asia/Taipei"

	logEnd = "<!-- LOG_END -->"
)

// Caller input errors. Neither is structural: the documents are untouched.
var (
	ErrInvalidName  = errors.New("invalid project name")
	ErrInvalidField = errors.New("invalid field")
)

// Project is a dashboard registration request
type Project struct {
	Name   string
	Type   string
	Link   string
	Status string
}

func (p Project) withDefaults() Project {
	if p.Type == "" {
		p.Type = DefaultType
	}
	if p.Link == "" {
		p.Link = DefaultLink
	}
	if p.Status == "" {
		p.Status = DefaultInitialStatus
	}
	return p
}

// Reporter writes dashboard rows and status logs
type Reporter struct {
	writer        *ledger.Writer
	dashboardPath string
	statusPath    string
	section       string
	marker        string
	loc           *time.Location
	now           func() time.Time
	logger        *log.Logger
}

// Option configures a Reporter
type Option func(*Reporter)

// WithDashboardPath overrides the dashboard document path
func WithDashboardPath(p string) Option {
	return func(r *Reporter) { r.dashboardPath = p }
}

// WithStatusPath overrides the status document pattern; %s is the project name
func WithStatusPath(pattern string) Option {
	return func(r *Reporter) { r.statusPath = pattern }
}

// WithSection sets the heading new dashboard rows go above
func WithSection(s string) Option {
	return func(r *Reporter) { r.section = s }
}

// WithMarker sets the log insertion marker
func WithMarker(m string) Option {
	return func(r *Reporter) { r.marker = m }
}

// WithLocation sets the zone timestamps are rendered in
func WithLocation(loc *time.Location) Option {
	return func(r *Reporter) { r.loc = loc }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(r *Reporter) { r.logger = l }
}

// New creates a Reporter. Timestamps default to DefaultTimezone, or UTC
// when the zone database is unavailable.
func New(writer *ledger.Writer, opts ...Option) *Reporter {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		loc = time.UTC
	}
	r := &Reporter{
		writer:        writer,
		dashboardPath: DefaultDashboardPath,
		statusPath:    DefaultStatusPath,
		section:       document.DefaultSection,
		marker:        document.DefaultMarker,
		loc:           loc,
		now:           time.Now,
		logger:        log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StatusPath returns the status document path of project
func (r *Reporter) StatusPath(project string) string {
	return fmt.Sprintf(r.statusPath, project)
}

// DashboardPath returns the dashboard document path
func (r *Reporter) DashboardPath() string {
	return r.dashboardPath
}

func (r *Reporter) timestamp() time.Time {
	return r.now().In(r.loc)
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.ContainsAny(name, "|\r\n") || strings.Contains(name, "**") {
		return fmt.Errorf("%w: %q cannot hold table markup", ErrInvalidName, name)
	}
	return nil
}

// validCells rejects values that would split a dashboard row
func validCells(cells map[string]string) error {
	for _, field := range []string{"type", "icon", "link", "status"} {
		if v, ok := cells[field]; ok && strings.ContainsAny(v, "|\r\n") {
			return fmt.Errorf("%w: %s %q cannot hold a pipe or line break", ErrInvalidField, field, v)
		}
	}
	return nil
}

// Registration holds the results of both writes Register performs
type Registration struct {
	Dashboard *ledger.Result
	Status    *ledger.Result
}

// Register adds the project's dashboard row, then creates its status
// document. The two writes are independent: an existing row does not stop
// a missing status document from being created.
func (r *Reporter) Register(ctx context.Context, p Project) (*Registration, error) {
	if err := validName(p.Name); err != nil {
		return nil, err
	}
	if err := validCells(map[string]string{"type": p.Type, "link": p.Link, "status": p.Status}); err != nil {
		return nil, err
	}
	p = p.withDefaults()
	row := document.Row{Icon: p.Type, Name: p.Name, Link: p.Link, Status: p.Status}

	dash, err := r.writer.Apply(ctx, r.dashboardPath, p.Name, func(current []byte, exists bool) ([]byte, string, error) {
		if !exists {
			return nil, "", ledger.ErrDocumentAbsent
		}
		next, err := upsert.InsertRow(string(current), row, r.section)
		if err != nil {
			return nil, "", err
		}
		return []byte(next), "🆕 Register: " + p.Name, nil
	})
	if err != nil {
		return nil, err
	}

	status, err := r.writer.Apply(ctx, r.StatusPath(p.Name), p.Name, func(_ []byte, exists bool) ([]byte, string, error) {
		if exists {
			return nil, "", upsert.ErrNoChange
		}
		return []byte(r.statusTemplate(p)), "🆕 Create STATUS for " + p.Name, nil
	})
	if err != nil {
		return &Registration{Dashboard: dash}, err
	}
	return &Registration{Dashboard: dash, Status: status}, nil
}

func (r *Reporter) statusTemplate(p Project) string {
	ts := r.timestamp()
	entry := document.LogEntry{Time: ts, Level: document.LevelInfo, Message: "Project registered in Command Center"}
	var b strings.Builder
	fmt.Fprintf(&b, "# Project Status: %s\n\n", p.Name)
	b.WriteString("## 📍 Summary\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| :--- | :--- |\n")
	fmt.Fprintf(&b, "| **Last Status** | %s |\n", p.Status)
	fmt.Fprintf(&b, "| **Last Updated** | %s |\n\n", ts.Format(document.TimestampLayout))
	b.WriteString("## 📝 Activity Log (Latest on Top)\n")
	b.WriteString(r.marker + "\n")
	b.WriteString(entry.String() + "\n")
	b.WriteString(logEnd + "\n\n")
	b.WriteString("## 📅 Todo List\n")
	b.WriteString("- [ ] Define objectives\n")
	b.WriteString("- [ ] Implementation\n")
	b.WriteString("- [ ] Review\n\n")
	b.WriteString("## 🛑 Blockers & Issues\n")
	b.WriteString("- None yet.\n")
	return b.String()
}

// UpdateStatus rewrites the project's dashboard row. An empty link keeps
// the current one; an empty icon means DefaultStatusIcon.
func (r *Reporter) UpdateStatus(ctx context.Context, name, status, link, icon string) (*ledger.Result, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if err := validCells(map[string]string{"icon": icon, "link": link, "status": status}); err != nil {
		return nil, err
	}
	if icon == "" {
		icon = DefaultStatusIcon
	}
	u := upsert.RowUpdate{Name: name, Status: status, Link: link, Icon: icon}

	return r.writer.Apply(ctx, r.dashboardPath, name, func(current []byte, exists bool) ([]byte, string, error) {
		if !exists {
			return nil, "", ledger.ErrDocumentAbsent
		}
		next, malformed, err := upsert.UpdateRow(string(current), u)
		for _, line := range malformed {
			r.logger.Warn("leaving malformed dashboard row untouched", "project", name, "line", line+1)
		}
		if err != nil {
			return nil, "", err
		}
		return []byte(next), "🤖 Status Update: " + name, nil
	})
}

// Log appends an entry to the project's activity log
func (r *Reporter) Log(ctx context.Context, name, message, level string) (*ledger.Result, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if level == "" {
		level = document.LevelInfo
	}
	entry := document.LogEntry{Time: r.timestamp(), Level: level, Message: message}

	return r.writer.Apply(ctx, r.StatusPath(name), name, func(current []byte, exists bool) ([]byte, string, error) {
		if !exists {
			return nil, "", ledger.ErrDocumentAbsent
		}
		next, err := upsert.AppendLog(string(current), r.marker, entry)
		if err != nil {
			return nil, "", err
		}
		return []byte(next), logMessage(name, message), nil
	})
}

func logMessage(name, message string) string {
	runes := []rune(message)
	if len(runes) > 30 {
		runes = runes[:30]
	}
	return fmt.Sprintf("📝 Log: %s - %s...", name, string(runes))
}
