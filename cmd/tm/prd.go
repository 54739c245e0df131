package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tmkit/taskmaster/internal/taskmgr"
	"github.com/tmkit/taskmaster/internal/ui"
)

var parsePRDCmd = &cobra.Command{
	Use:     "parse-prd [file]",
	Short:   "Generate tasks from a product requirements document",
	GroupID: GroupTasks,
	Long: `Have the AI break a PRD text file into tasks and write them to the tasks
file. --tasks-json reads an already analyzed JSON task array instead of
calling the AI.

An existing tasks file is kept unless --force (overwrite) or --append (add
the new tasks after the existing ones) is given.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := taskmgr.ParsePRDInput{}
		if len(args) == 1 {
			in.Input = absPath(args[0])
		}
		in.NumTasks, _ = cmd.Flags().GetInt("num-tasks")
		in.Force, _ = cmd.Flags().GetBool("force")
		in.Append, _ = cmd.Flags().GetBool("append")
		in.Output, _ = cmd.Flags().GetString("output")
		if in.Output != "" {
			in.Output = absPath(in.Output)
		}
		if tasksFile, _ := cmd.Flags().GetString("tasks-json"); tasksFile != "" {
			data, err := os.ReadFile(tasksFile) // #nosec G304 - user-specified input
			if err != nil {
				FatalError("reading %s: %v", tasksFile, err)
				return
			}
			in.Tasks = json.RawMessage(data)
		}

		res, err := mgr.ParsePRD(rootCtx, in)
		if err != nil {
			fail(err)
			return
		}
		if jsonOutput {
			outputJSON(res)
			return
		}
		printf("%s %s\n", ui.RenderPass(ui.IconPass), res.Message)
		for _, t := range res.Tasks {
			printf("  %3d  %s\n", t.ID, t.Title)
		}
	},
}

// absPath resolves p against the working directory; the manager resolves
// relative paths against the project root instead.
func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}

func init() {
	parsePRDCmd.Flags().IntP("num-tasks", "n", taskmgr.DefaultPRDTasks, "Approximate number of tasks to generate")
	parsePRDCmd.Flags().Bool("force", false, "Overwrite an existing tasks file")
	parsePRDCmd.Flags().Bool("append", false, "Append to an existing tasks file")
	parsePRDCmd.Flags().StringP("output", "o", "", "Tasks file to write (default: the group tasks file)")
	parsePRDCmd.Flags().String("tasks-json", "", "Read tasks from this JSON file instead of the AI")
	rootCmd.AddCommand(parsePRDCmd)
}
