package ui

import (
	"strings"
	"testing"

	"github.com/tmkit/taskmaster/internal/types"
)

func TestTaskTable(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	tasks := []types.Task{
		{ID: 1, Title: "Set up repo", Status: types.StatusDone, Priority: types.PriorityHigh},
		{
			ID: 2, Title: strings.Repeat("long title ", 10), Status: types.StatusPending,
			Dependencies: []types.Ref{types.TaskRef(1)},
			Subtasks: []types.Subtask{
				{ID: 1, Title: "first", Status: types.StatusInProgress},
				{ID: 2, Title: "second", Dependencies: []types.Ref{types.SubtaskRef(2, 1)}},
			},
		},
	}

	out := TaskTable(tasks, false)
	for _, want := range []string{"ID", "Set up repo", "done", "high", "None"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "2.1") {
		t.Errorf("subtasks shown without flag:\n%s", out)
	}
	if !strings.Contains(out, "...") {
		t.Errorf("long title not truncated:\n%s", out)
	}

	out = TaskTable(tasks, true)
	for _, want := range []string{"2.1", "2.2", "first", "in-progress"} {
		if !strings.Contains(out, want) {
			t.Errorf("table with subtasks missing %q:\n%s", want, out)
		}
	}
}

func TestFormatRefs(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	got := FormatRefs([]types.Ref{types.TaskRef(3), types.SubtaskRef(1, 10)})
	if got != "3, 1.10" {
		t.Errorf("FormatRefs = %q", got)
	}
	if !strings.Contains(FormatRefs(nil), "None") {
		t.Errorf("empty refs should render None")
	}
}

func TestStatusIcon(t *testing.T) {
	tests := map[types.Status]string{
		types.StatusDone:       IconPass,
		"Completed":            IconPass,
		types.StatusBlocked:    IconFail,
		types.StatusDeferred:   IconSkip,
		types.StatusPending:    "○",
		"something-custom":     "○",
		types.StatusInProgress: "►",
	}
	for status, want := range tests {
		if got := StatusIcon(status); got != want {
			t.Errorf("StatusIcon(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestProgressBar(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	if got := ProgressBar(1, 4, 8); !strings.HasSuffix(got, " 25%") {
		t.Errorf("ProgressBar = %q", got)
	}
	if got := ProgressBar(0, 0, 4); !strings.HasSuffix(got, " 0%") {
		t.Errorf("empty ProgressBar = %q", got)
	}
}
