package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tmkit/taskmaster/internal/taskmgr"
	"github.com/tmkit/taskmaster/internal/types"
	"github.com/tmkit/taskmaster/internal/ui"
)

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show a task or subtask",
	GroupID: GroupViews,
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		noPager, _ := cmd.Flags().GetBool("no-pager")
		res, err := mgr.Show(rootCtx, mustParseID(args[0]))
		if err != nil {
			fail(err)
			return
		}
		if jsonOutput {
			outputJSON(res)
			return
		}
		if err := ui.ToPager(formatShow(res), ui.PagerOptions{NoPager: noPager, Out: stdout}); err != nil {
			FatalError("%v", err)
		}
	},
}

func formatShow(res *taskmgr.ShowResult) string {
	var b strings.Builder
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%-14s %s\n", name+":", value)
		}
	}
	section := func(name, body string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		fmt.Fprintf(&b, "\n%s\n%s\n", ui.RenderCategory(name), strings.TrimRight(ui.RenderMarkdown(body), "\n"))
	}

	if res.Subtask != nil {
		s := res.Subtask
		fmt.Fprintf(&b, "%s %s\n", ui.RenderBold("Subtask "+s.Ref(res.Parent.ID).String()+":"), s.Title)
		field("Parent", fmt.Sprintf("%d %s", res.Parent.ID, res.Parent.Title))
		field("Status", ui.StatusIcon(s.Status)+" "+ui.RenderStatus(s.Status))
		field("Dependencies", formatDeps(s.Dependencies, res.Blocking))
		field("Description", s.Description)
		section("Details", s.Details())
		return b.String()
	}

	t := res.Task
	fmt.Fprintf(&b, "%s %s\n", ui.RenderBold(fmt.Sprintf("Task %d:", t.ID)), t.Title)
	field("Status", ui.StatusIcon(t.Status)+" "+ui.RenderStatus(t.Status))
	field("Priority", ui.RenderPriority(t.Priority))
	field("Dependencies", formatDeps(t.Dependencies, res.Blocking))
	field("Description", t.Description)
	if assignees := t.Get("assignees").Array(); len(assignees) > 0 {
		names := make([]string, len(assignees))
		for i, a := range assignees {
			names[i] = a.String()
		}
		field("Assignees", strings.Join(names, ", "))
	}
	field("Executor", t.Get("executor").String())
	section("Details", t.Details())
	section("Test Strategy", t.TestStrategy())

	if len(t.Subtasks) > 0 {
		fmt.Fprintf(&b, "\n%s\n", ui.RenderCategory("Subtasks"))
		for _, s := range t.Subtasks {
			fmt.Fprintf(&b, "  %s %-6s %s\n", ui.StatusIcon(s.Status), s.Ref(t.ID), s.Title)
		}
	}
	if results := t.Get("results").Array(); len(results) > 0 {
		fmt.Fprintf(&b, "\n%s\n", ui.RenderCategory("Results"))
		for _, r := range results {
			fmt.Fprintf(&b, "  %s  %s: %s\n", ui.RenderMuted(r.Get("updateTime").String()),
				r.Get("action").String(), r.Get("result").String())
		}
	}
	return b.String()
}

// formatDeps marks dependencies that are not done yet.
func formatDeps(refs, blocking []types.Ref) string {
	if len(refs) == 0 {
		return ui.RenderMuted("None")
	}
	open := make(map[types.Ref]bool, len(blocking))
	for _, r := range blocking {
		open[r] = true
	}
	parts := make([]string, len(refs))
	for i, r := range refs {
		if open[r] {
			parts[i] = ui.RenderWarn(r.String() + " (not done)")
		} else {
			parts[i] = ui.RenderPass(r.String())
		}
	}
	return strings.Join(parts, ", ")
}

var nextCmd = &cobra.Command{
	Use:     "next",
	Short:   "Show the next task to work on",
	GroupID: GroupViews,
	Long: `Show the next task to work on: a pending subtask of a task already in
progress if there is one, otherwise the pending or in-progress task with all
dependencies done, by priority, then fewest dependencies, then id.`,
	Run: func(cmd *cobra.Command, args []string) {
		res, err := mgr.Next(rootCtx)
		if err != nil {
			fail(err)
			return
		}
		if jsonOutput {
			outputJSON(res)
			return
		}
		if res.Task == nil {
			printf("%s %s\n", ui.RenderInfoIcon(), res.Message)
			return
		}
		printf("%s\n", res.Message)
		if res.Subtask == nil {
			printf("  Priority: %s  Status: %s\n", ui.RenderPriority(res.Task.Priority), ui.RenderStatus(res.Task.Status))
			if res.Task.Description != "" {
				printf("  %s\n", ui.Truncate(res.Task.Description, 200))
			}
		}
		printf("\nStart it with: tm set-status %s in-progress\n", nextRef(res))
	},
}

func nextRef(res *taskmgr.NextResult) types.Ref {
	if res.Subtask != nil {
		return res.Subtask.Ref(res.Task.ID)
	}
	return res.Task.Ref()
}

func init() {
	showCmd.Flags().Bool("no-pager", false, "Print without a pager")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(nextCmd)
}
