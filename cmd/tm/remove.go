package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tmkit/taskmaster/internal/taskmgr"
	"github.com/tmkit/taskmaster/internal/ui"
)

var removeTaskCmd = &cobra.Command{
	Use:     "remove-task <ids>",
	Aliases: []string{"rm"},
	Short:   "Remove tasks or subtasks and close the id gaps",
	GroupID: GroupTasks,
	Long: `Remove one or more tasks (comma-separated). Later tasks move down to keep
ids contiguous and every dependency follows them. References to removed
tasks are dropped. A P.S id removes that subtask only.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		res, err := mgr.RemoveTasks(rootCtx, mustParseRefs(args[0]))
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

var removeSubtaskCmd = &cobra.Command{
	Use:     "remove-subtask <P.S>",
	Short:   "Remove a subtask",
	GroupID: GroupTasks,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		refs := mustParseRefs(args[0])
		for _, r := range refs {
			if !r.IsSubtask() {
				fail(&taskmgr.Error{Code: taskmgr.CodeInvalidTaskID,
					Err: fmt.Errorf("%s is not a subtask id; use remove-task for tasks", r)})
				return
			}
		}
		res, err := mgr.RemoveTasks(rootCtx, refs)
		if err != nil {
			fail(err)
			return
		}
		report(res, ui.RenderPass(ui.IconPass)+" "+res.Message)
	},
}

var clearSubtasksCmd = &cobra.Command{
	Use:     "clear-subtasks",
	Short:   "Remove every subtask from the given tasks",
	GroupID: GroupTasks,
	Run: func(cmd *cobra.Command, args []string) {
		ids, _ := cmd.Flags().GetString("id")
		all, _ := cmd.Flags().GetBool("all")
		if all {
			ids = "all"
		}
		results, err := mgr.ClearSubtasks(rootCtx, ids)
		if err != nil {
			fail(err)
			return
		}
		if jsonOutput {
			outputJSON(results)
			return
		}
		for _, r := range results {
			printf("%s %s\n", ui.RenderPass(ui.IconPass), r.Message)
		}
	},
}

// printRenumbered lists old -> new ids in id order.
func printRenumbered(moved map[string]string) {
	if len(moved) == 0 {
		return
	}
	printf("Renumbered:\n")
	for _, old := range sortedKeys(moved) {
		printf("  %s -> %s\n", old, moved[old])
	}
}

func init() {
	rootCmd.AddCommand(removeTaskCmd)
	rootCmd.AddCommand(removeSubtaskCmd)

	clearSubtasksCmd.Flags().String("id", "", "Comma-separated task ids")
	clearSubtasksCmd.Flags().Bool("all", false, "Clear subtasks from every task")
	rootCmd.AddCommand(clearSubtasksCmd)
}
