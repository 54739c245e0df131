package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tmkit/taskmaster/internal/ai"
	"github.com/tmkit/taskmaster/internal/audit"
	"github.com/tmkit/taskmaster/internal/config"
	"github.com/tmkit/taskmaster/internal/logging"
	"github.com/tmkit/taskmaster/internal/store"
	"github.com/tmkit/taskmaster/internal/taskmgr"
	"github.com/tmkit/taskmaster/internal/telemetry"
)

// Command groups for help output.
const (
	GroupTasks = "tasks"
	GroupViews = "views"
	GroupDeps  = "deps"
	GroupSetup = "setup"
)

var (
	jsonOutput bool
	verbose    bool
	quiet      bool
	logLevel   string

	projectFlag string
	tagFlag     string
	fileFlag    string
)

// Set up by PersistentPreRun for the command being run.
var (
	rootCtx     context.Context
	logger      *logging.Logger
	logCloser   io.Closer
	projectRoot string
	mgr         *taskmgr.Manager
)

// Swapped by the script tests so commands can run in-process.
var (
	stdout   io.Writer = os.Stdout
	stderr   io.Writer = os.Stderr
	exitFunc           = os.Exit
)

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: GroupTasks, Title: "Working With Tasks:"},
		&cobra.Group{ID: GroupViews, Title: "Views:"},
		&cobra.Group{ID: GroupDeps, Title: "Dependencies:"},
		&cobra.Group{ID: GroupSetup, Title: "Setup & Configuration:"},
	)

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress everything but errors")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from log.level)")
	rootCmd.PersistentFlags().StringVar(&projectFlag, "project", "", "Project root (default: nearest directory with .taskmaster)")
	rootCmd.PersistentFlags().StringVar(&tagFlag, "tag", "", "Task group to work on (default from task-group)")
	rootCmd.PersistentFlags().StringVarP(&fileFlag, "file", "f", "", "Tasks file, relative to the project root")
}

var rootCmd = &cobra.Command{
	Use:           "tm",
	Short:         "tm - task tracking for humans and agents",
	Long:          `Track tasks, subtasks and their dependencies in a JSON tasks file, from the command line or over MCP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		rootCtx = cmd.Context()
		if rootCtx == nil {
			rootCtx = context.Background()
		}

		if err := config.Initialize(); err != nil {
			FatalError("failed to load config: %v", err)
		}
		// Flags beat config; config beats defaults.
		if cmd.Flags().Changed("json") {
			config.Set("json", jsonOutput)
		}
		jsonOutput = config.GetBool("json")

		var err error
		logger, logCloser, err = logging.New(loggingOptions())
		if err != nil {
			FatalError("%v", err)
		}

		if err := telemetry.Init(rootCtx, "tm", Version, telemetry.Options{
			Enabled:  config.GetBool("telemetry.enabled"),
			Stdout:   config.GetBool("telemetry.stdout"),
			Endpoint: config.GetString("telemetry.endpoint"),
			Writer:   stderr,
		}); err != nil {
			WarnError("telemetry disabled: %v", err)
		}

		projectRoot = resolveProjectRoot()
		mgr = taskmgr.New(managerOptions())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		telemetry.Shutdown(rootCtx)
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

func loggingOptions() logging.Options {
	opts := logging.DefaultOptions()
	opts.Level = config.GetString("log.level")
	opts.Format = config.GetString("log.format")
	opts.File = config.GetString("log.file")
	opts.MaxSizeMB = config.GetInt("log.max-size-mb")
	opts.MaxBackups = config.GetInt("log.max-backups")
	opts.Writer = stderr
	switch {
	case logLevel != "":
		opts.Level = logLevel
	case verbose:
		opts.Level = "debug"
	case quiet:
		opts.Level = "error"
	}
	return opts
}

func resolveProjectRoot() string {
	if projectFlag != "" {
		abs, err := filepath.Abs(projectFlag)
		if err != nil {
			FatalError("invalid --project: %v", err)
		}
		return store.NormalizeRoot(abs)
	}
	cwd, err := os.Getwd()
	if err != nil {
		FatalError("cannot determine working directory: %v", err)
	}
	if root := store.FindProjectRoot(cwd); root != "" {
		return root
	}
	return cwd
}

func taskGroup() string {
	if tagFlag != "" {
		return tagFlag
	}
	return config.GetString("task-group")
}

// managerOptions builds the Manager settings shared by every command and
// the MCP server. AI operations stay disabled without an API key.
func managerOptions() taskmgr.Options {
	group := taskGroup()
	tasksFile := fileFlag
	if tasksFile == "" {
		tasksFile = config.GetString("tasks-file")
	}
	opts := taskmgr.Options{
		Root:      projectRoot,
		Group:     group,
		TasksFile: tasksFile,
		Logger:    logger,
	}

	promptsFile := config.GetString("ai.prompts-file")
	if promptsFile != "" && !filepath.IsAbs(promptsFile) {
		promptsFile = filepath.Join(projectRoot, promptsFile)
	}
	prompts, err := ai.LoadPrompts(promptsFile)
	if err != nil {
		WarnError("using built-in prompts: %v", err)
	}
	opts.Prompts = &prompts

	apiKey := config.GetString("ai.api-key")
	if apiKey == "" {
		return opts
	}
	var auditLog *audit.Log
	if config.GetBool("ai.audit") {
		auditLog = audit.New(filepath.Join(store.GroupDir(projectRoot, group), audit.FileName))
	}
	gen, err := ai.NewAnthropic(ai.Options{
		APIKey:     apiKey,
		Model:      config.GetString("ai.model"),
		MaxTokens:  config.GetInt("ai.max-tokens"),
		MaxRetries: config.GetInt("ai.max-retries"),
		Timeout:    config.GetDuration("ai.timeout"),
		Audit:      auditLog,
		Logger:     logger,
	})
	if err != nil {
		WarnError("AI operations disabled: %v", err)
		return opts
	}
	opts.Generator = gen
	return opts
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		exitFunc(1)
	}
}
