package taskmgr

import (
	"context"
	"sort"
	"strings"

	"github.com/tmkit/taskmaster/internal/deps"
	"github.com/tmkit/taskmaster/internal/types"
)

// ListOptions filters List.
type ListOptions struct {
	// Status is a comma-separated list of statuses; empty keeps everything.
	Status string
	// WithSubtasks keeps subtasks in the returned tasks.
	WithSubtasks bool
}

// Stats summarizes a task list.
type Stats struct {
	Total      int                  `json:"total"`
	ByStatus   map[types.Status]int `json:"byStatus"`
	Done       int                  `json:"completed"`
	Percentage float64              `json:"completionPercentage"`
	Subtasks   int                  `json:"subtasks"`
	SubsDone   int                  `json:"subtasksCompleted"`
}

// ListResult is the filtered task list plus statistics over the whole file.
type ListResult struct {
	Tasks  []types.Task `json:"tasks"`
	Filter string       `json:"filter"`
	Stats  Stats        `json:"stats"`
}

// List returns tasks in id order, filtered by status.
func (m *Manager) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	doc, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	want := make(map[types.Status]bool)
	for _, s := range strings.Split(opts.Status, ",") {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			want[types.Status(s)] = true
		}
	}
	res := ListResult{Tasks: []types.Task{}, Filter: opts.Status, Stats: computeStats(doc.Tasks)}
	if res.Filter == "" {
		res.Filter = "all"
	}
	for _, t := range doc.SortedTasks() {
		if len(want) > 0 && !want[types.Status(strings.ToLower(string(t.Status)))] {
			continue
		}
		t = t.Clone()
		if !opts.WithSubtasks {
			t.Subtasks = nil
		}
		res.Tasks = append(res.Tasks, t)
	}
	return &res, nil
}

func computeStats(tasks []types.Task) Stats {
	s := Stats{Total: len(tasks), ByStatus: make(map[types.Status]int)}
	for _, t := range tasks {
		s.ByStatus[t.Status]++
		if t.Status.IsDone() {
			s.Done++
		}
		for _, st := range t.Subtasks {
			s.Subtasks++
			if st.Status.IsDone() {
				s.SubsDone++
			}
		}
	}
	if s.Total > 0 {
		s.Percentage = float64(s.Done) * 100 / float64(s.Total)
	}
	return s
}

// ShowResult is one task, or one subtask with its parent.
type ShowResult struct {
	Task    *types.Task    `json:"task,omitempty"`
	Subtask *types.Subtask `json:"subtask,omitempty"`
	Parent  *types.Task    `json:"parentTask,omitempty"`
	// Blocking lists dependencies that are not done yet.
	Blocking []types.Ref `json:"blockingDependencies"`
}

// Show returns the task or subtask id refers to.
func (m *Manager) Show(ctx context.Context, id types.Ref) (*ShowResult, error) {
	doc, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	res := ShowResult{Blocking: []types.Ref{}}
	var refs []types.Ref
	if id.IsSubtask() {
		ti, si, err := findSubtask(doc, id)
		if err != nil {
			return nil, err
		}
		parent := doc.Tasks[ti].Clone()
		sub := parent.Subtasks[si]
		res.Parent, res.Subtask = &parent, &sub
		refs = sub.Dependencies
	} else {
		ti, err := findTask(doc, id.Task)
		if err != nil {
			return nil, err
		}
		t := doc.Tasks[ti].Clone()
		res.Task = &t
		refs = t.Dependencies
	}
	for _, r := range refs {
		if !deps.Satisfied(doc, []types.Ref{r}) {
			res.Blocking = append(res.Blocking, r)
		}
	}
	return &res, nil
}

// NextResult is the task to work on next. Task is nil when nothing is
// ready.
type NextResult struct {
	Task    *types.Task    `json:"nextTask"`
	Subtask *types.Subtask `json:"nextSubtask,omitempty"`
	Message string         `json:"message"`
}

// Next picks the next piece of work. Inside an in-progress task, the first
// pending subtask whose dependencies are done wins. Otherwise it is the
// first pending or in-progress task with every dependency done, ordered by
// priority, then by fewer dependencies, then by id.
func (m *Manager) Next(ctx context.Context) (*NextResult, error) {
	doc, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	sorted := doc.SortedTasks()

	for _, t := range sorted {
		if t.Status != types.StatusInProgress {
			continue
		}
		for _, s := range t.Subtasks {
			if s.Status != types.StatusPending && s.Status != "" {
				continue
			}
			if deps.Satisfied(doc, s.Dependencies) {
				parent, sub := t.Clone(), s.Clone()
				return &NextResult{
					Task:    &parent,
					Subtask: &sub,
					Message: "Next subtask: " + sub.Ref(t.ID).String() + " " + sub.Title,
				}, nil
			}
		}
	}

	var ready []types.Task
	for _, t := range sorted {
		switch t.Status {
		case types.StatusPending, types.StatusInProgress, "":
		default:
			continue
		}
		if deps.Satisfied(doc, t.Dependencies) {
			ready = append(ready, t)
		}
	}
	if len(ready) == 0 {
		return &NextResult{Message: "No eligible tasks found: every pending task has unmet dependencies or all tasks are done"}, nil
	}
	sort.SliceStable(ready, func(i, j int) bool {
		a, b := ready[i], ready[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() < b.Priority.Rank()
		}
		if len(a.Dependencies) != len(b.Dependencies) {
			return len(a.Dependencies) < len(b.Dependencies)
		}
		return a.ID < b.ID
	})
	t := ready[0].Clone()
	return &NextResult{Task: &t, Message: "Next task: " + t.Ref().String() + " " + t.Title}, nil
}
