package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/tmkit/taskmaster/internal/timeparsing"
	"github.com/tmkit/taskmaster/internal/types"
	"github.com/tmkit/taskmaster/internal/ui"
)

var setStatusCmd = &cobra.Command{
	Use:     "set-status <ids> <status>",
	Aliases: []string{"status"},
	Short:   "Set the status of tasks or subtasks",
	GroupID: GroupTasks,
	Long: `Set the status of one or more tasks or subtasks (comma-separated, e.g.
"3,4.1"). Marking a task done also marks its subtasks done.

Known statuses: pending, in-progress, review, done, completed, deferred,
cancelled, blocked.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		res, err := mgr.SetStatus(rootCtx, args[0], types.Status(args[1]))
		if err != nil {
			fail(err)
			return
		}
		if jsonOutput {
			outputJSON(res)
			return
		}
		printf("%s %s\n", ui.RenderPass(ui.IconPass), res.Message)
		for _, c := range res.Updated {
			printf("  %s: %s -> %s\n", c.ID, ui.RenderStatus(c.OldStatus), ui.RenderStatus(c.NewStatus))
		}
	},
}

var addResultCmd = &cobra.Command{
	Use:     "add-result <id>",
	Short:   "Record the result of an action on a task or subtask",
	GroupID: GroupTasks,
	Long: `Append {action, updateTime, result} to the results of a task or subtask.

--at sets the time of the entry instead of now. It accepts RFC3339,
compact durations such as -2h or +1d, and phrases such as "yesterday 5pm".`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		action, _ := cmd.Flags().GetString("action")
		result, _ := cmd.Flags().GetString("result")
		atFlag, _ := cmd.Flags().GetString("at")

		var at time.Time
		if atFlag != "" {
			t, err := timeparsing.ParseRelativeTime(atFlag, time.Now())
			if err != nil {
				FatalError("invalid --at %q: %v", atFlag, err)
				return
			}
			at = t
		}

		res, err := mgr.AddResult(rootCtx, args[0], action, result, at)
		if err != nil {
			fail(err)
			return
		}
		report(res, ui.RenderPass(ui.IconPass)+" "+res.Message)
	},
}

func init() {
	rootCmd.AddCommand(setStatusCmd)

	addResultCmd.Flags().String("action", "", "What was done (required)")
	addResultCmd.Flags().String("result", "", "What came of it (required)")
	addResultCmd.Flags().String("at", "", "When it happened (default now)")
	rootCmd.AddCommand(addResultCmd)
}
