package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tmkit/taskmaster/internal/taskmgr"
	"github.com/tmkit/taskmaster/internal/types"
	"github.com/tmkit/taskmaster/internal/ui"
)

var updateTaskCmd = &cobra.Command{
	Use:     "update-task <id>",
	Aliases: []string{"update"},
	Short:   "Update a task directly or with an AI prompt",
	GroupID: GroupTasks,
	Long: `Update a task. Field flags change fields as given. --prompt asks the AI to
rewrite the task with the new information; completed subtasks are kept.
Done tasks are locked against --prompt but can still be edited directly.

Metadata fields:
  --add-field key[=value]   add a text field (fails if key exists)
  --set-field key=value     set the value of an existing field
  --delete-field key        remove a field`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ref := mustParseID(args[0])
		if ref.IsSubtask() {
			FatalErrorWithHint(fmt.Sprintf("%s is a subtask id", ref), "Use 'tm update-subtask' for subtasks")
			return
		}
		in := taskmgr.UpdateTaskInput{ID: ref.Task}
		in.Prompt, _ = cmd.Flags().GetString("prompt")
		in.Attributes = attributesFromFlags(cmd)

		res, err := mgr.UpdateTask(rootCtx, in)
		if err != nil {
			fail(err)
			return
		}
		report(res, ui.RenderPass(ui.IconPass)+" "+res.Message)
	},
}

var updateSubtaskCmd = &cobra.Command{
	Use:     "update-subtask <P.S>",
	Short:   "Update a subtask or append timestamped notes to it",
	GroupID: GroupTasks,
	Long: `Update a subtask. --prompt has the AI write a note from the prompt and
appends it to the subtask details in an <info added on ...> block. Field
flags change fields as given.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := taskmgr.UpdateSubtaskInput{ID: mustParseID(args[0])}
		in.Prompt, _ = cmd.Flags().GetString("prompt")
		in.Attributes = attributesFromFlags(cmd)

		res, err := mgr.UpdateSubtask(rootCtx, in)
		if err != nil {
			fail(err)
			return
		}
		report(res, ui.RenderPass(ui.IconPass)+" "+res.Message)
	},
}

// attributesFromFlags collects the field flags shared by update-task and
// update-subtask. A flag that was not given leaves its field alone.
func attributesFromFlags(cmd *cobra.Command) taskmgr.Attributes {
	var a taskmgr.Attributes
	flags := cmd.Flags()
	a.Title, _ = flags.GetString("title")
	a.Description, _ = flags.GetString("description")
	a.Details, _ = flags.GetString("details")
	a.TestStrategy, _ = flags.GetString("test-strategy")
	status, _ := flags.GetString("status")
	a.Status = types.Status(status)
	executor, _ := flags.GetString("executor")
	a.Executor = types.Executor(executor)

	if flags.Lookup("priority") != nil {
		priority, _ := flags.GetString("priority")
		a.Priority = types.Priority(priority)
	}
	if flags.Changed("dependencies") {
		deps, _ := flags.GetString("dependencies")
		a.Dependencies = []types.Ref{}
		if deps != "" && deps != "none" {
			a.Dependencies = mustParseRefs(deps)
		}
	}
	if flags.Changed("assignees") {
		assignees, _ := flags.GetString("assignees")
		a.Assignees = splitList(assignees)
		if a.Assignees == nil {
			a.Assignees = []string{}
		}
	}
	if flags.Changed("verifications") {
		v, _ := flags.GetString("verifications")
		if !json.Valid([]byte(v)) {
			FatalError("--verifications must be a JSON array")
		}
		a.Verifications = json.RawMessage(v)
	}

	adds, _ := flags.GetStringArray("add-field")
	for _, f := range adds {
		key, value, hasValue := strings.Cut(f, "=")
		op := taskmgr.MetadataOp{Op: taskmgr.MetadataAdd, Key: key}
		if hasValue {
			op.Value = &value
		}
		a.Metadata = append(a.Metadata, op)
	}
	sets, _ := flags.GetStringArray("set-field")
	for _, f := range sets {
		key, value, ok := strings.Cut(f, "=")
		if !ok {
			FatalError("--set-field needs key=value, got %q", f)
		}
		a.Metadata = append(a.Metadata, taskmgr.MetadataOp{Op: taskmgr.MetadataSet, Key: key, Value: &value})
	}
	deletes, _ := flags.GetStringArray("delete-field")
	for _, key := range deletes {
		a.Metadata = append(a.Metadata, taskmgr.MetadataOp{Op: taskmgr.MetadataDelete, Key: key})
	}
	return a
}

func mustParseID(s string) types.Ref {
	ref, err := taskmgr.ParseID(s)
	if err != nil {
		fail(err)
	}
	return ref
}

func addAttributeFlags(cmd *cobra.Command, subtask bool) {
	cmd.Flags().StringP("prompt", "p", "", "New information for the AI to work in")
	cmd.Flags().StringP("title", "t", "", "New title")
	cmd.Flags().StringP("description", "d", "", "New description")
	cmd.Flags().String("details", "", "New details")
	cmd.Flags().String("test-strategy", "", "New test strategy")
	cmd.Flags().String("status", "", "New status")
	cmd.Flags().String("dependencies", "", "Replace dependencies (comma-separated ids, or none)")
	cmd.Flags().String("executor", "", "agent or human")
	cmd.Flags().String("verifications", "", `Replace verifications with a JSON array of {"description", "passed"}`)
	cmd.Flags().StringArray("add-field", nil, "Add a metadata field: key[=value] (repeatable)")
	cmd.Flags().StringArray("set-field", nil, "Set a metadata field value: key=value (repeatable)")
	cmd.Flags().StringArray("delete-field", nil, "Delete a metadata field by key (repeatable)")
	if !subtask {
		cmd.Flags().String("priority", "", "high, medium or low")
		cmd.Flags().String("assignees", "", "Replace assignees (comma-separated)")
	}
}

func init() {
	addAttributeFlags(updateTaskCmd, false)
	rootCmd.AddCommand(updateTaskCmd)

	addAttributeFlags(updateSubtaskCmd, true)
	rootCmd.AddCommand(updateSubtaskCmd)
}
