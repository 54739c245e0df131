package main

import (
	"github.com/spf13/cobra"

	"github.com/tmkit/taskmaster/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:     "mcp",
	Short:   "Serve task operations as MCP tools over stdio",
	GroupID: GroupSetup,
	Long: `Run an MCP server on stdin/stdout. Every tool accepts projectRoot, tag
and file arguments; without them the project, group and tasks file of this
invocation are used. Logs go to stderr or log.file, never stdout.`,
	Run: func(cmd *cobra.Command, args []string) {
		s := mcpserver.New(managerOptions(), Version)
		if err := s.ServeStdio(); err != nil {
			FatalError("MCP server: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
