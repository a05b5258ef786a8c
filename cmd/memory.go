package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/gurisko/hq/internal/memory"
	"github.com/spf13/cobra"
)

var memoryDir string

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Sync agent memory files with the private data repository",
}

func newMemorySyncer(cmd *cobra.Command) (*memory.Syncer, io.Closer, error) {
	dir := memoryDir
	if dir == "" {
		root, err := workspaceRoot()
		if err != nil {
			return nil, nil, err
		}
		dir = filepath.Join(root, memory.RemoteDir)
	}
	w, closer, err := openWriter(cmd.Context(), cfg.MemoryStoreRepo())
	if err != nil {
		return nil, nil, err
	}
	return memory.NewSyncer(w, dir, logger), closer, nil
}

// printFileResults prints one line per file and returns an error when any
// file failed
func printFileResults(out io.Writer, results []memory.FileResult) error {
	failed := 0
	for _, r := range results {
		switch r.Action {
		case memory.Errored:
			failed++
			fmt.Fprintf(out, "%s %s: %v\n", errStyle.Render("✗"), r.File, r.Err)
		case memory.Unchanged:
			fmt.Fprintf(out, "%s %s: %s\n", dimStyle.Render("•"), r.File, msgNoChanges)
		case memory.Missing:
			fmt.Fprintf(out, "%s %s: %s\n", warnStyle.Render("!"), r.File, msgNotFound)
		default:
			fmt.Fprintf(out, "%s %s: %s\n", okStyle.Render("✓"), r.File, r.Action)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d memory file(s) failed", failed)
	}
	return nil
}

var memoryPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload local memory files",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closer, err := newMemorySyncer(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()
		return printFileResults(cmd.OutOrStdout(), s.Push(cmd.Context()))
	},
}

var memoryPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download memory files into the local memory directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, closer, err := newMemorySyncer(cmd)
		if err != nil {
			return err
		}
		defer closer.Close()
		return printFileResults(cmd.OutOrStdout(), s.Pull(cmd.Context()))
	},
}

func init() {
	rootCmd.AddCommand(memoryCmd)
	memoryCmd.AddCommand(memoryPushCmd, memoryPullCmd)
	memoryCmd.PersistentFlags().StringVar(&memoryDir, "dir", "", "local memory directory (default: <root>/memory)")
}
