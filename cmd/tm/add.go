package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tmkit/taskmaster/internal/taskmgr"
	"github.com/tmkit/taskmaster/internal/types"
	"github.com/tmkit/taskmaster/internal/ui"
)

var addTaskCmd = &cobra.Command{
	Use:     "add-task",
	Aliases: []string{"add"},
	Short:   "Add a task manually or from an AI prompt",
	GroupID: GroupTasks,
	Long: `Add a task. Give --title and --description to add it as written, or
--prompt to have the AI draft it. --id inserts the task at that position and
moves every later task (and every reference to it) up by one.`,
	Run: func(cmd *cobra.Command, args []string) {
		interactive, _ := cmd.Flags().GetBool("interactive")
		in := taskmgr.AddTaskInput{}
		in.Prompt, _ = cmd.Flags().GetString("prompt")
		in.Title, _ = cmd.Flags().GetString("title")
		in.Description, _ = cmd.Flags().GetString("description")
		in.Details, _ = cmd.Flags().GetString("details")
		in.TestStrategy, _ = cmd.Flags().GetString("test-strategy")
		in.ID, _ = cmd.Flags().GetInt("id")
		priority, _ := cmd.Flags().GetString("priority")
		in.Priority = types.Priority(priority)
		executor, _ := cmd.Flags().GetString("executor")
		in.Executor = types.Executor(executor)
		assignees, _ := cmd.Flags().GetString("assignees")
		in.Assignees = splitList(assignees)
		depsFlag, _ := cmd.Flags().GetString("dependencies")

		if interactive {
			var ok bool
			in, depsFlag, ok = runAddTaskForm(in, depsFlag)
			if !ok {
				fmt.Fprintln(stderr, "Task creation cancelled.")
				return
			}
		}
		in.Dependencies = mustParseRefs(depsFlag)

		res, err := mgr.AddTask(rootCtx, in)
		if err != nil {
			fail(err)
			return
		}
		if jsonOutput {
			outputJSON(res)
			return
		}
		printf("%s Created task %d: %s\n", ui.RenderPass(ui.IconPass), res.NewTaskID, res.Task.Title)
		if res.Shifted > 0 {
			printf("  %d later task(s) moved up by one\n", res.Shifted)
		}
		if len(res.DroppedDependencies) > 0 {
			printf("  %s ignored missing dependencies: %s\n", ui.RenderWarn(ui.IconWarn), ui.FormatRefs(res.DroppedDependencies))
		}
	},
}

// runAddTaskForm asks for the manual fields, starting from what the flags
// already set. It returns false when the user cancels.
func runAddTaskForm(in taskmgr.AddTaskInput, depsInput string) (taskmgr.AddTaskInput, string, bool) {
	priority := string(in.Priority)
	if priority == "" {
		priority = string(types.PriorityMedium)
	}
	confirmed := true

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Description("Short summary of the task (required)").
				Value(&in.Title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title is required")
					}
					return nil
				}),
			huh.NewText().
				Title("Description").
				Description("What needs to be done (required)").
				CharLimit(5000).
				Value(&in.Description).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("description is required")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Priority").
				Options(
					huh.NewOption("High", string(types.PriorityHigh)),
					huh.NewOption("Medium (default)", string(types.PriorityMedium)),
					huh.NewOption("Low", string(types.PriorityLow)),
				).
				Value(&priority),
		),
		huh.NewGroup(
			huh.NewText().
				Title("Details").
				Description("Implementation notes (optional)").
				CharLimit(10000).
				Value(&in.Details),
			huh.NewText().
				Title("Test strategy").
				Description("How to verify the task (optional)").
				CharLimit(5000).
				Value(&in.TestStrategy),
			huh.NewInput().
				Title("Dependencies").
				Description("Comma-separated task ids (optional)").
				Placeholder("e.g., 3, 4.2").
				Value(&depsInput),
			huh.NewConfirm().
				Title("Create this task?").
				Affirmative("Create").
				Negative("Cancel").
				Value(&confirmed),
		),
	).WithTheme(huh.ThemeDracula())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return in, depsInput, false
		}
		FatalError("form error: %v", err)
	}
	in.Priority = types.Priority(priority)
	in.Prompt = ""
	return in, depsInput, confirmed
}

var addSubtaskCmd = &cobra.Command{
	Use:     "add-subtask",
	Short:   "Add a subtask to a task",
	GroupID: GroupTasks,
	Run: func(cmd *cobra.Command, args []string) {
		in := taskmgr.AddSubtaskInput{}
		in.Parent, _ = cmd.Flags().GetInt("parent")
		in.Title, _ = cmd.Flags().GetString("title")
		in.Description, _ = cmd.Flags().GetString("description")
		in.Details, _ = cmd.Flags().GetString("details")
		status, _ := cmd.Flags().GetString("status")
		in.Status = types.Status(status)
		depsFlag, _ := cmd.Flags().GetString("dependencies")
		in.Dependencies = mustParseRefs(depsFlag)

		ref, err := mgr.AddSubtask(rootCtx, in)
		if err != nil {
			fail(err)
			return
		}
		report(map[string]string{"subtaskId": ref.String()},
			fmt.Sprintf("%s Created subtask %s: %s", ui.RenderPass(ui.IconPass), ref, in.Title))
	},
}

// splitList splits a comma-separated flag, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// mustParseRefs parses a comma-separated id list, exiting on a bad id.
func mustParseRefs(s string) []types.Ref {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	refs, err := taskmgr.ParseIDList(s)
	if err != nil {
		fail(err)
	}
	return refs
}

func init() {
	addTaskCmd.Flags().StringP("prompt", "p", "", "Describe the task and let the AI draft it")
	addTaskCmd.Flags().StringP("title", "t", "", "Task title")
	addTaskCmd.Flags().StringP("description", "d", "", "Task description")
	addTaskCmd.Flags().String("details", "", "Implementation details")
	addTaskCmd.Flags().String("test-strategy", "", "How to verify the task")
	addTaskCmd.Flags().String("priority", "", "high, medium or low (default medium)")
	addTaskCmd.Flags().String("dependencies", "", "Comma-separated ids the task depends on")
	addTaskCmd.Flags().String("assignees", "", "Comma-separated assignees")
	addTaskCmd.Flags().String("executor", "", "agent or human")
	addTaskCmd.Flags().Int("id", 0, "Insert at this id, moving later tasks up")
	addTaskCmd.Flags().BoolP("interactive", "i", false, "Fill in the task with a form")
	rootCmd.AddCommand(addTaskCmd)

	addSubtaskCmd.Flags().Int("parent", 0, "Parent task id (required)")
	addSubtaskCmd.Flags().StringP("title", "t", "", "Subtask title (required)")
	addSubtaskCmd.Flags().StringP("description", "d", "", "Subtask description")
	addSubtaskCmd.Flags().String("details", "", "Implementation details")
	addSubtaskCmd.Flags().String("status", "", "Initial status (default pending)")
	addSubtaskCmd.Flags().String("dependencies", "", "Comma-separated ids the subtask depends on")
	rootCmd.AddCommand(addSubtaskCmd)
}
