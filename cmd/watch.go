package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gurisko/hq/internal/watch"
	"github.com/gurisko/hq/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	watchName     string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-register the workspace whenever its projects change",
	Long: `Watch the workspace's projects directory and update this workspace's
registry entry each time a project directory is added, removed or renamed.
Combine with --log-file to keep a rotated log when running unattended.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspaceRoot()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		w, closer, err := openWriter(ctx, cfg.Repo)
		if err != nil {
			return err
		}
		defer closer.Close()
		reg := registryFor(w)

		name := watchName
		if name == "" {
			existing, err := reg.FindByLocation(ctx, root)
			if err != nil {
				return fmt.Errorf("workspace at %s is not registered, run 'hq register' or pass --name: %w", root, err)
			}
			name = existing.Name
		}

		watcher, err := watch.New(workspace.ProjectsDir(root), watch.WithDebounce(watchDebounce), watch.WithLogger(logger))
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Watching %s as %s\n", workspace.ProjectsDir(root), titleStyle.Render(name))
		logger.Info("watch started", "workspace", name, "root", root)
		err = watcher.Run(ctx, func(ctx context.Context) error {
			ws, err := currentWorkspace(root, name, "", "")
			if err != nil {
				return err
			}
			if existing, err := reg.FindByLocation(ctx, root); err == nil {
				ws.Description = existing.Description
			}
			res, err := reg.UpsertWorkspace(ctx, ws)
			if err != nil {
				return err
			}
			logger.Info("workspace re-registered", "workspace", name, "projects", len(ws.Projects), "outcome", res.Outcome)
			fmt.Fprintf(cmd.OutOrStdout(), "%s projects: %d (%s)\n", okStyle.Render("✓"), len(ws.Projects), describe(res, nil))
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchName, "name", "n", "", "workspace name (default: the name registered for this location)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "quiet period before re-registering")
}
