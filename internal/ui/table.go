package ui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/tmkit/taskmaster/internal/types"
)

// Title widths in listings.
const (
	TaskTitleWidth    = 57
	SubtaskTitleWidth = 47
)

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// TaskTable renders tasks as a bordered table. With subtasks set, each
// task's subtasks follow it as indented rows.
func TaskTable(tasks []types.Task, subtasks bool) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(MutedStyle).
		Headers("ID", "Title", "Status", "Priority", "Dependencies").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, task := range tasks {
		t.Row(
			strconv.Itoa(task.ID),
			Truncate(task.Title, TaskTitleWidth),
			StatusIcon(task.Status)+" "+RenderStatus(task.Status),
			RenderPriority(task.Priority),
			FormatRefs(task.Dependencies),
		)
		if !subtasks {
			continue
		}
		for i, s := range task.Subtasks {
			branch := TreeChild
			if i == len(task.Subtasks)-1 {
				branch = TreeLast
			}
			t.Row(
				RenderMuted(branch+s.Ref(task.ID).String()),
				Truncate(s.Title, SubtaskTitleWidth),
				StatusIcon(s.Status)+" "+RenderStatus(s.Status),
				"",
				FormatRefs(s.Dependencies),
			)
		}
	}
	return t.Render()
}

// FormatRefs joins references for display, or "None" when there are none.
func FormatRefs(refs []types.Ref) string {
	if len(refs) == 0 {
		return RenderMuted("None")
	}
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

// ProgressBar renders done/total as a fixed-width bar with a percentage.
func ProgressBar(done, total, width int) string {
	if width <= 0 {
		width = 30
	}
	pct := 0
	filled := 0
	if total > 0 {
		pct = done * 100 / total
		filled = done * width / total
	}
	bar := PassStyle.Render(strings.Repeat("█", filled)) + MutedStyle.Render(strings.Repeat("░", width-filled))
	return bar + " " + strconv.Itoa(pct) + "%"
}
