package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gurisko/hq/internal/discovery"
	"github.com/gurisko/hq/internal/ledger"
	"github.com/gurisko/hq/internal/reporter"
	"github.com/gurisko/hq/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	addType     string
	addLink     string
	addStatus   string
	statusLink  string
	statusIcon  string
	logLevel    string
	progressPub bool
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Report project state to the command center dashboard",
}

func reporterFor(w *ledger.Writer) *reporter.Reporter {
	return reporter.New(w,
		reporter.WithDashboardPath(cfg.DashboardPath),
		reporter.WithStatusPath(cfg.StatusPath),
		reporter.WithSection(cfg.Section),
		reporter.WithMarker(cfg.Marker),
		reporter.WithLocation(cfg.Location()),
		reporter.WithLogger(logger),
	)
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a project row to the dashboard and create its status log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, closer, err := openWriter(cmd.Context(), cfg.Repo)
		if err != nil {
			return err
		}
		defer closer.Close()

		name := args[0]
		reg, err := reporterFor(w).Register(cmd.Context(), reporter.Project{Name: name, Type: addType, Link: addLink, Status: addStatus})
		out := cmd.OutOrStdout()
		if reg == nil {
			return report(out, "dashboard "+name, nil, err)
		}
		_ = report(out, "dashboard "+name, reg.Dashboard, nil)
		return report(out, "status log "+name, reg.Status, err)
	},
}

var projectStatusCmd = &cobra.Command{
	Use:   "status <name> <status>",
	Short: "Update a project's dashboard status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, closer, err := openWriter(cmd.Context(), cfg.Repo)
		if err != nil {
			return err
		}
		defer closer.Close()

		res, err := reporterFor(w).UpdateStatus(cmd.Context(), args[0], args[1], statusLink, statusIcon)
		return report(cmd.OutOrStdout(), "dashboard "+args[0], res, err)
	},
}

var projectLogCmd = &cobra.Command{
	Use:   "log <name> <message>",
	Short: "Append an entry to a project's activity log",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, closer, err := openWriter(cmd.Context(), cfg.Repo)
		if err != nil {
			return err
		}
		defer closer.Close()

		message := strings.Join(args[1:], " ")
		res, err := reporterFor(w).Log(cmd.Context(), args[0], message, logLevel)
		return report(cmd.OutOrStdout(), "status log "+args[0], res, err)
	},
}

var projectProgressCmd = &cobra.Command{
	Use:   "progress <name>",
	Short: "Show task completion from the project's TASKS.md",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspaceRoot()
		if err != nil {
			return err
		}
		name := args[0]
		pct, err := workspace.TaskProgress(filepath.Join(workspace.ProjectsDir(root), name))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d%%\n", titleStyle.Render(name), pct)
		if !progressPub {
			return nil
		}

		w, closer, err := openWriter(cmd.Context(), cfg.Repo)
		if err != nil {
			return err
		}
		defer closer.Close()
		res, err := reporterFor(w).UpdateStatus(cmd.Context(), name, fmt.Sprintf("🚧 %d%%", pct), "", "")
		return report(cmd.OutOrStdout(), "dashboard "+name, res, err)
	},
}

var projectSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Clone every dashboard project missing from this workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspaceRoot()
		if err != nil {
			return err
		}
		w, closer, err := openWriter(cmd.Context(), cfg.Repo)
		if err != nil {
			return err
		}
		defer closer.Close()

		doc, err := w.Fetch(cmd.Context(), cfg.DashboardPath)
		if err != nil {
			return report(cmd.OutOrStdout(), "dashboard", nil, err)
		}
		refs := discovery.Discover(string(doc.Content))
		out := cmd.OutOrStdout()
		if len(refs) == 0 {
			fmt.Fprintln(out, "No projects with a repository link")
			return nil
		}

		cwd, _ := os.Getwd()
		_ = cfg.ResolveToken(cwd)
		syncer := discovery.NewSyncer(discovery.GitCloner{Token: cfg.Token},
			discovery.WithConcurrency(cfg.Concurrency),
			discovery.WithLogger(logger),
		)

		dest := workspace.ProjectsDir(root)
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return fmt.Errorf("create projects dir: %w", err)
		}
		failed := 0
		for _, o := range syncer.BulkSync(cmd.Context(), refs, dest) {
			switch o.Status {
			case discovery.Succeeded:
				fmt.Fprintf(out, "%s %s: cloned\n", okStyle.Render("✓"), o.Name)
			case discovery.Skipped:
				fmt.Fprintf(out, "%s %s: already present\n", dimStyle.Render("•"), o.Name)
			default:
				failed++
				fmt.Fprintf(out, "%s %s: %s\n", errStyle.Render("✗"), o.Name, o.Reason)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d projects failed to sync", failed, len(refs))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.AddCommand(projectAddCmd, projectStatusCmd, projectLogCmd, projectProgressCmd, projectSyncCmd)

	projectAddCmd.Flags().StringVar(&addType, "type", reporter.DefaultType, "type icon")
	projectAddCmd.Flags().StringVar(&addLink, "link", reporter.DefaultLink, "repository link")
	projectAddCmd.Flags().StringVar(&addStatus, "status", reporter.DefaultInitialStatus, "initial status")

	projectStatusCmd.Flags().StringVar(&statusLink, "link", "", "new repository link (default: keep)")
	projectStatusCmd.Flags().StringVar(&statusIcon, "icon", reporter.DefaultStatusIcon, "type icon")

	projectLogCmd.Flags().StringVar(&logLevel, "level", "INFO", "entry level: INFO, WARN or SUCCESS")

	projectProgressCmd.Flags().BoolVar(&progressPub, "report", false, "also publish the percentage as the dashboard status")
}
