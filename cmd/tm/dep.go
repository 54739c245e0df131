package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tmkit/taskmaster/internal/deps"
	"github.com/tmkit/taskmaster/internal/types"
	"github.com/tmkit/taskmaster/internal/ui"
)

var depCmd = &cobra.Command{
	Use:     "dep",
	Short:   "Manage dependencies",
	GroupID: GroupDeps,
}

var depAddCmd = &cobra.Command{
	Use:   "add <id> <depends-on-id>",
	Short: "Make a task or subtask depend on another",
	Long: `Add a dependency. Self-dependencies, unknown targets and edges that would
close a cycle are rejected.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		res, err := mgr.AddDependency(rootCtx, mustParseID(args[0]), mustParseID(args[1]))
		if err != nil {
			fail(err)
			return
		}
		report(res, ui.RenderPass(ui.IconPass)+" "+res.Message)
	},
}

var depRemoveCmd = &cobra.Command{
	Use:     "remove <id> <depends-on-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a dependency",
	Args:    cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		res, err := mgr.RemoveDependency(rootCtx, mustParseID(args[0]), mustParseID(args[1]))
		if err != nil {
			fail(err)
			return
		}
		report(res, ui.RenderPass(ui.IconPass)+" "+res.Message)
	},
}

var depValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Report self, missing, duplicate and circular dependencies",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := mgr.ValidateDependencies(rootCtx)
		if err != nil {
			fail(err)
			return
		}
		if jsonOutput {
			outputJSON(res)
			return
		}
		if res.Valid {
			printf("%s %s\n", ui.RenderPassIcon(), res.Message)
			return
		}
		printf("%s %s\n", ui.RenderFailIcon(), res.Message)
		printIssues(res.Issues)
		fmt.Fprintln(stderr, "Hint: run 'tm dep fix' to remove them")
		exitFunc(1)
	},
}

var depFixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Remove invalid dependencies and break cycles",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := mgr.FixDependencies(rootCtx)
		if err != nil {
			fail(err)
			return
		}
		if jsonOutput {
			outputJSON(res)
			return
		}
		printf("%s %s\n", ui.RenderPassIcon(), res.Message)
		printIssues(res.Fixed)
	},
}

func printIssues(issues []deps.Issue) {
	for _, i := range issues {
		line := "  - " + i.String()
		if len(i.Path) > 0 {
			line += " (" + ui.RenderMuted(formatPath(i.Path)) + ")"
		}
		printf("%s\n", line)
	}
}

func formatPath(path []types.Ref) string {
	parts := make([]string, 0, len(path)+1)
	for _, r := range path {
		parts = append(parts, r.String())
	}
	parts = append(parts, path[0].String())
	return strings.Join(parts, " -> ")
}

var depGraphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the dependency graph as a Mermaid flowchart",
	Run: func(cmd *cobra.Command, args []string) {
		subtasks, _ := cmd.Flags().GetBool("subtasks")
		doc, err := mgr.Load(rootCtx)
		if err != nil {
			fail(err)
			return
		}
		if err := deps.WriteMermaid(stdout, doc.SortedTasks(), subtasks); err != nil {
			FatalError("%v", err)
		}
	},
}

var depTreeCmd = &cobra.Command{
	Use:   "tree <id>",
	Short: "Show what a task depends on, transitively",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		maxDepth, _ := cmd.Flags().GetInt("max-depth")
		root := mustParseID(args[0])
		doc, err := mgr.Load(rootCtx)
		if err != nil {
			fail(err)
			return
		}
		if !doc.Exists(root) {
			FatalError("%s not found", root)
			return
		}
		r := deps.NewTreeRenderer(doc, maxDepth)
		r.StyleFunc = func(s types.Status, text string) string {
			switch {
			case s.IsDone():
				return ui.RenderPass(text)
			case s == types.StatusBlocked:
				return ui.RenderFail(text)
			case s == types.StatusInProgress:
				return ui.RenderWarn(text)
			}
			return text
		}
		r.MutedFunc = ui.RenderMuted
		if err := r.Render(stdout, root); err != nil {
			FatalError("%v", err)
		}
	},
}

func init() {
	depGraphCmd.Flags().Bool("subtasks", false, "Include subtasks as nodes")
	depTreeCmd.Flags().IntP("max-depth", "d", 50, "Maximum tree depth to display")

	depCmd.AddCommand(depAddCmd)
	depCmd.AddCommand(depRemoveCmd)
	depCmd.AddCommand(depValidateCmd)
	depCmd.AddCommand(depFixCmd)
	depCmd.AddCommand(depGraphCmd)
	depCmd.AddCommand(depTreeCmd)
	rootCmd.AddCommand(depCmd)
}
