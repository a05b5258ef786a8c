package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/gurisko/hq/internal/blobstore"
	"github.com/gurisko/hq/internal/document"
	"github.com/gurisko/hq/internal/ledger"
	"github.com/gurisko/hq/internal/registry"
	"github.com/gurisko/hq/internal/reporter"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)
	titleStyle = lipgloss.NewStyle().Bold(true)
)

// Outcome messages shown for a document write
const (
	msgNoChanges = "no changes"
	msgUpdated   = "updated"
	msgConflict  = "conflict, retry later"
	msgRepair    = "document needs manual repair"
	msgNotFound  = "not found"
	msgTimeout   = "timed out, retry later"
	msgInvalid   = "invalid input"
)

// describe maps the result of a write to the message shown to the user
func describe(res *ledger.Result, err error) string {
	switch {
	case err == nil && res != nil && res.Outcome == ledger.Unchanged:
		return msgNoChanges
	case err == nil:
		return msgUpdated
	case errors.Is(err, blobstore.ErrVersionConflict):
		return msgConflict
	case errors.Is(err, ledger.ErrTimeout):
		return msgTimeout
	case errors.Is(err, reporter.ErrInvalidName), errors.Is(err, reporter.ErrInvalidField):
		return msgInvalid
	case document.IsStructural(err):
		return msgRepair
	case errors.Is(err, document.ErrNotFound),
		errors.Is(err, ledger.ErrDocumentAbsent),
		errors.Is(err, blobstore.ErrNotFound),
		errors.Is(err, registry.ErrProjectNotFound),
		errors.Is(err, registry.ErrWorkspaceNotFound):
		return msgNotFound
	}
	return err.Error()
}

// report prints one line for a write and returns err unchanged so callers
// can propagate it to the exit status
func report(w io.Writer, label string, res *ledger.Result, err error) error {
	msg := describe(res, err)
	switch {
	case err != nil:
		fmt.Fprintf(w, "%s %s: %s\n", errStyle.Render("✗"), label, msg)
		if msg != err.Error() {
			fmt.Fprintln(w, dimStyle.Render("  "+err.Error()))
		}
	case msg == msgNoChanges:
		fmt.Fprintf(w, "%s %s: %s\n", dimStyle.Render("•"), label, msg)
	default:
		fmt.Fprintf(w, "%s %s: %s\n", okStyle.Render("✓"), label, msg)
	}
	return err
}
