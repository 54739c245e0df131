package main

import (
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version is the current version of tm (overridden by ldflags at build time).
	Version = "0.1.0"
	// Build can be set via ldflags at compile time.
	Build = "dev"
)

var versionCmd = &cobra.Command{
	Use:     "version",
	Short:   "Print version information",
	GroupID: GroupSetup,
	Run: func(cmd *cobra.Command, args []string) {
		if jsonOutput {
			outputJSON(map[string]string{
				"version":  Version,
				"build":    Build,
				"platform": runtime.GOOS + "/" + runtime.GOARCH,
			})
			return
		}
		printf("tm version %s (%s)\n", Version, Build)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
