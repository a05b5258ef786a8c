package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/gurisko/hq/internal/config"
	"github.com/gurisko/hq/internal/logging"
	"github.com/gurisko/hq/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	v       = config.New()
	cfgFile string
	rootDir string
	cfg     *config.Config
	logger  = log.New(io.Discard)
	logSink io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "hq",
	Short: "HQ - command center for agent workspaces",
	Long: `HQ keeps a shared dashboard, per-project status logs and a workspace
registry in a versioned store, so several machines can report into one place.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		logger, logSink, err = logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logSink != nil {
			return logSink.Close()
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default $XDG_CONFIG_HOME/hq/config.yaml)")
	flags.StringVar(&rootDir, "root", "", "workspace root (default: nearest directory holding .agent)")
	flags.String("backend", "", "store backend: github, git, sqlite, postgres or redis")
	flags.String("repo", "", "command center repository (owner/name)")
	flags.String("branch", "", "branch to commit to")
	flags.String("timezone", "", "time zone for log timestamps")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-file", "", "write logs to a rotated file")

	for key, flag := range map[string]string{
		"backend":   "backend",
		"repo":      "repo",
		"branch":    "branch",
		"timezone":  "timezone",
		"log_level": "log-level",
		"log_file":  "log-file",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
}

// workspaceRoot returns --root or the workspace detected from the working
// directory
func workspaceRoot() (string, error) {
	if rootDir != "" {
		return filepath.Abs(rootDir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return workspace.DetectRoot(cwd), nil
}

func Execute() error {
	// Silence usage and errors to avoid cluttering output with Cobra defaults
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	return rootCmd.Execute()
}
