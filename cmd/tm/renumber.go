package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/tmkit/taskmaster/internal/types"
	"github.com/tmkit/taskmaster/internal/ui"
)

var renumberCmd = &cobra.Command{
	Use:     "renumber",
	Short:   "Renumber tasks 1..N and subtasks 1..M",
	GroupID: GroupTasks,
	Long: `Give tasks the ids 1..N and each task's subtasks 1..M, rewriting every
dependency to match. Tasks are ordered by their current id unless
--keep-order is passed, in which case file order is used. References to ids
that do not exist are dropped with a warning.`,
	Run: func(cmd *cobra.Command, args []string) {
		keepOrder, _ := cmd.Flags().GetBool("keep-order")
		res, err := mgr.Renumber(rootCtx, keepOrder)
		if err != nil {
			fail(err)
			return
		}
		if jsonOutput {
			outputJSON(res)
			return
		}
		printf("%s %s\n", ui.RenderPass(ui.IconPass), res.Message)
		printRenumbered(res.Renumbered)
	},
}

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	Short:   "Move a legacy tasks file into the task group layout",
	GroupID: GroupSetup,
	Long: `Move tasks/tasks.json or .taskmaster/tasks/tasks.json to
.taskmaster/<group>/tasks/tasks.json and renumber it.`,
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		res, err := mgr.Migrate(rootCtx, force)
		if err != nil {
			fail(err)
			return
		}
		if jsonOutput {
			outputJSON(res)
			return
		}
		printf("%s Migrated %s -> %s\n", ui.RenderPass(ui.IconPass), res.From, res.To)
		printRenumbered(res.Renumbered)
	},
}

// sortedKeys orders "5" before "10" and "2.1" before "2.10".
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := types.ParseRef(keys[i])
		b, errB := types.ParseRef(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		if a.Task != b.Task {
			return a.Task < b.Task
		}
		return a.Subtask < b.Subtask
	})
	return keys
}

func init() {
	renumberCmd.Flags().Bool("keep-order", false, "Number tasks in file order instead of id order")
	rootCmd.AddCommand(renumberCmd)

	migrateCmd.Flags().Bool("force", false, "Overwrite an existing group tasks file")
	rootCmd.AddCommand(migrateCmd)
}
