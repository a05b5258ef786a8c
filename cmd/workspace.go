package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gurisko/hq/internal/ledger"
	"github.com/gurisko/hq/internal/registry"
	"github.com/gurisko/hq/internal/workspace"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	regName        string
	regLocation    string
	regDescription string
	infoYAML       bool
	listJSON       bool
	skillsFrom     string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register this workspace in the command center registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		regName = strings.TrimSpace(regName)
		if regName == "" {
			return errors.New("--name is required")
		}
		root, err := workspaceRoot()
		if err != nil {
			return err
		}
		ws, err := currentWorkspace(root, regName, regLocation, regDescription)
		if err != nil {
			return err
		}

		w, closer, err := openWriter(cmd.Context(), cfg.Repo)
		if err != nil {
			return err
		}
		defer closer.Close()

		res, err := registryFor(w).UpsertWorkspace(cmd.Context(), ws)
		return report(cmd.OutOrStdout(), "workspace "+ws.Name, res, err)
	},
}

func registryFor(w *ledger.Writer) *registry.Synchronizer {
	return registry.New(w, registry.WithPath(cfg.RegistryPath), registry.WithLogger(logger))
}

// currentWorkspace describes root as a registry entry. An empty location
// means root itself.
func currentWorkspace(root, name, location, description string) (registry.Workspace, error) {
	if location == "" {
		location = root
	}
	projects, err := workspace.DetectProjects(root)
	if err != nil {
		return registry.Workspace{}, err
	}
	return registry.Workspace{
		Name:          name,
		Location:      location,
		Description:   description,
		RegisteredAt:  time.Now().In(cfg.Location()).Format(time.RFC3339),
		Machine:       workspace.CurrentMachine(),
		Projects:      projects,
		SkillsVersion: workspace.SkillsVersion(root),
	}, nil
}

var syncSkillsCmd = &cobra.Command{
	Use:   "sync-skills",
	Short: "Install or update the shared skills repository",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspaceRoot()
		if err != nil {
			return err
		}
		cwd, _ := os.Getwd()
		// a token is optional for public skills repositories
		_ = cfg.ResolveToken(cwd)

		target := workspace.SkillsDir(root)
		if skillsFrom != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Copying skills from %s to %s\n", skillsFrom, target)
			backup, err := workspace.InstallSkillsFrom(skillsFrom, target, time.Now())
			if err != nil {
				return err
			}
			if backup != "" {
				fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("  previous skills moved to "+backup))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s skills %s\n", okStyle.Render("✓"), workspace.SkillsInstalled)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Syncing skills to %s\n", target)
		res, err := workspace.SyncSkills(cmd.Context(), target, workspace.RepoURL(cfg.SkillsRepo), cfg.Token, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s skills %s (%s)\n", okStyle.Render("✓"), res, workspace.SkillsVersion(root))
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show information about the current workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspaceRoot()
		if err != nil {
			return err
		}
		info, err := workspace.Describe(root)
		if err != nil {
			return err
		}
		if infoYAML {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(info)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(info)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered workspaces",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, closer, err := openWriter(cmd.Context(), cfg.Repo)
		if err != nil {
			return err
		}
		defer closer.Close()

		workspaces, err := registryFor(w).ListWorkspaces(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if listJSON {
			if workspaces == nil {
				workspaces = []registry.Workspace{}
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(workspaces)
		}

		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Registered workspaces (%d)", len(workspaces))))
		for _, ws := range workspaces {
			host := ws.Machine.Hostname
			if host == "" {
				host = "unknown"
			}
			fmt.Fprintf(out, "\n  • %s\n", titleStyle.Render(ws.Name))
			fmt.Fprintf(out, "    location: %s\n", ws.Location)
			fmt.Fprintf(out, "    projects: %s\n", strings.Join(ws.Projects, ", "))
			fmt.Fprintf(out, "    machine:  %s\n", host)
		}
		return nil
	},
}

var findCmd = &cobra.Command{
	Use:   "find <project>",
	Short: "Find the workspace holding a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, closer, err := openWriter(cmd.Context(), cfg.Repo)
		if err != nil {
			return err
		}
		defer closer.Close()

		ref, err := registryFor(w).FindProject(cmd.Context(), args[0])
		if err != nil {
			return report(cmd.OutOrStdout(), "project "+args[0], nil, err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", okStyle.Render("✓"), titleStyle.Render(ref.ProjectName))
		fmt.Fprintf(out, "    workspace: %s\n", ref.WorkspaceName)
		fmt.Fprintf(out, "    location:  %s\n", ref.WorkspaceLocation)
		fmt.Fprintf(out, "    path:      %s\n", ref.ProjectPath)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the current workspace is registered",
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

		ws, err := registryFor(w).FindByLocation(cmd.Context(), root)
		if errors.Is(err, registry.ErrWorkspaceNotFound) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s workspace at %s is not registered\n", warnStyle.Render("!"), root)
			return err
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s registered as %s\n", okStyle.Render("✓"), titleStyle.Render(ws.Name))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd, syncSkillsCmd, infoCmd, listCmd, findCmd, verifyCmd)

	registerCmd.Flags().StringVarP(&regName, "name", "n", "", "workspace name (required)")
	registerCmd.Flags().StringVarP(&regLocation, "location", "l", "", "workspace location (default: workspace root)")
	registerCmd.Flags().StringVarP(&regDescription, "description", "d", "", "workspace description")
	_ = registerCmd.MarkFlagRequired("name")

	syncSkillsCmd.Flags().StringVar(&skillsFrom, "from", "", "copy skills from a local directory instead of the skills repository")
	infoCmd.Flags().BoolVar(&infoYAML, "yaml", false, "print YAML instead of JSON")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON")
}
