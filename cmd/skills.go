package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/gurisko/hq/internal/workspace"
	"github.com/spf13/cobra"
)

var skillsJSON bool

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Inspect installed shared skills",
}

var skillsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed skills",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := workspaceRoot()
		if err != nil {
			return err
		}
		skills, err := workspace.ListSkills(workspace.SkillsDir(root))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if skillsJSON {
			if skills == nil {
				skills = []workspace.Skill{}
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(skills)
		}
		if len(skills) == 0 {
			fmt.Fprintln(out, "No skills installed (run 'hq sync-skills')")
			return nil
		}

		fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Skills %s", workspace.SkillsVersion(root))))
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDIR\tDESCRIPTION")
		for _, s := range skills {
			desc := s.Description
			if len(desc) > 60 {
				desc = desc[:57] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.Dir, desc)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(skillsCmd)
	skillsCmd.AddCommand(skillsListCmd)
	skillsListCmd.Flags().BoolVar(&skillsJSON, "json", false, "print JSON")
}
