package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tmkit/taskmaster/internal/store"
	"github.com/tmkit/taskmaster/internal/taskmgr"
	"github.com/tmkit/taskmaster/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	GroupID: GroupViews,
	Run: func(cmd *cobra.Command, args []string) {
		opts := taskmgr.ListOptions{}
		opts.Status, _ = cmd.Flags().GetString("status")
		opts.WithSubtasks, _ = cmd.Flags().GetBool("with-subtasks")
		watch, _ := cmd.Flags().GetBool("watch")
		allGroups, _ := cmd.Flags().GetBool("all-groups")

		switch {
		case allGroups && watch:
			FatalError("--watch and --all-groups cannot be combined")
		case allGroups:
			listAllGroups(rootCtx, opts)
		case watch:
			watchList(rootCtx, opts)
		default:
			res, err := mgr.List(rootCtx, opts)
			if err != nil {
				fail(err)
				return
			}
			if jsonOutput {
				outputJSON(res)
				return
			}
			displayList(res, opts.WithSubtasks)
		}
	},
}

func displayList(res *taskmgr.ListResult, subtasks bool) {
	if len(res.Tasks) == 0 {
		printf("No tasks found (filter: %s)\n", res.Filter)
		return
	}
	printf("%s\n", ui.TaskTable(res.Tasks, subtasks))
	s := res.Stats
	printf("Progress: %s  %d/%d tasks done", ui.ProgressBar(s.Done, s.Total, 30), s.Done, s.Total)
	if s.Subtasks > 0 {
		printf(", %d/%d subtasks done", s.SubsDone, s.Subtasks)
	}
	printf("\n")
}

// groupList is the listing of one task group.
type groupList struct {
	Group string `json:"group"`
	*taskmgr.ListResult
}

// listAllGroups loads every task group under the project concurrently and
// prints them in name order. Nothing is written.
func listAllGroups(ctx context.Context, opts taskmgr.ListOptions) {
	groups, err := store.Groups(projectRoot)
	if err != nil {
		FatalError("listing task groups: %v", err)
		return
	}
	base := managerOptions()
	results := make([]groupList, len(groups))
	g, gctx := errgroup.WithContext(ctx)
	for i, group := range groups {
		g.Go(func() error {
			o := base
			o.Group = group
			o.TasksFile = ""
			res, err := taskmgr.New(o).List(gctx, opts)
			if err != nil {
				return fmt.Errorf("group %s: %w", group, err)
			}
			results[i] = groupList{Group: group, ListResult: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fail(err)
		return
	}
	if jsonOutput {
		outputJSON(results)
		return
	}
	if len(results) == 0 {
		printf("No task groups found in %s\n", projectRoot)
		return
	}
	for _, r := range results {
		printf("%s\n", ui.RenderCategory(r.Group))
		displayList(r.ListResult, opts.WithSubtasks)
		printf("\n")
	}
}

// watchList redraws the listing whenever the tasks file changes, until
// interrupted.
func watchList(ctx context.Context, opts taskmgr.ListOptions) {
	loc, err := mgr.Locate()
	if err != nil {
		fail(&taskmgr.Error{Code: taskmgr.CodeTasksFileNotFound, Err: err})
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		FatalError("creating watcher: %v", err)
		return
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory: atomic saves replace the file.
	if err := watcher.Add(filepath.Dir(loc.Path)); err != nil {
		FatalError("watching %s: %v", filepath.Dir(loc.Path), err)
		return
	}

	refresh := func() {
		res, err := mgr.List(ctx, opts)
		if err != nil {
			fmt.Fprintf(stderr, "Error refreshing tasks: %v\n", err)
			return
		}
		if jsonOutput {
			outputJSON(res)
		} else {
			displayList(res, opts.WithSubtasks)
		}
		fmt.Fprintf(stderr, "\nWatching for changes... (Press Ctrl+C to exit)\n")
	}
	refresh()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var debounceTimer *time.Timer
	const debounceDelay = 300 * time.Millisecond
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigChan:
			fmt.Fprintf(stderr, "\nStopped watching.\n")
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(loc.Path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDelay, refresh)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(stderr, "Watcher error: %v\n", err)
		}
	}
}

func init() {
	listCmd.Flags().StringP("status", "s", "", "Comma-separated statuses to show")
	listCmd.Flags().Bool("with-subtasks", false, "Show subtasks under each task")
	listCmd.Flags().BoolP("watch", "w", false, "Redraw when the tasks file changes")
	listCmd.Flags().Bool("all-groups", false, "List every task group in the project")
	rootCmd.AddCommand(listCmd)
}
