package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/tmkit/taskmaster/internal/taskmgr"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Create an empty tasks file in the current directory",
	GroupID: GroupSetup,
	Long: `Create .taskmaster/<group>/tasks/tasks.json with an empty task list.

The project root is the current directory unless --project is given. An
existing tasks file is left alone unless --force is passed.`,
	Run: func(cmd *cobra.Command, _ []string) {
		force, _ := cmd.Flags().GetBool("force")

		m := mgr
		if projectFlag == "" {
			cwd, err := os.Getwd()
			if err != nil {
				FatalError("cannot determine working directory: %v", err)
			}
			opts := managerOptions()
			opts.Root = cwd
			m = taskmgr.New(opts)
		}

		res, err := m.Init(rootCtx, force)
		if err != nil {
			fail(err)
			return
		}
		report(res, res.Message)
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite an existing tasks file")
	rootCmd.AddCommand(initCmd)
}
