package taskmgr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tmkit/taskmaster/internal/taskid"
	"github.com/tmkit/taskmaster/internal/telemetry"
	"github.com/tmkit/taskmaster/internal/types"
)

// RemoveResult reports what RemoveTasks deleted and how ids moved.
type RemoveResult struct {
	RemovedTasks    []int             `json:"removedTasks"`
	RemovedSubtasks []string          `json:"removedSubtasks"`
	Renumbered      map[string]string `json:"renumbered,omitempty"`
	DroppedRefs     int               `json:"droppedReferences"`
	Message         string            `json:"message"`
}

// RemoveTasks deletes tasks and subtasks. Remaining tasks are compacted so
// ids stay contiguous, and every reference follows. Subtask removals do not
// renumber siblings; references to the removed subtasks are pruned.
func (m *Manager) RemoveTasks(ctx context.Context, ids []types.Ref) (*RemoveResult, error) {
	if len(ids) == 0 {
		return nil, errorf(CodeMissingArgument, "at least one task ID is required")
	}
	res := RemoveResult{RemovedTasks: []int{}, RemovedSubtasks: []string{}}
	err := m.mutate(ctx, "remove_task", func(ctx context.Context, doc *types.Document, op *telemetry.Op) (*types.Document, error) {
		removeTask := make(map[int]bool)
		removeSub := make(map[types.Ref]bool)
		for _, r := range ids {
			if r.IsSubtask() {
				if _, _, err := findSubtask(doc, r); err != nil {
					return nil, err
				}
				removeSub[r] = true
				continue
			}
			if _, err := findTask(doc, r.Task); err != nil {
				return nil, err
			}
			removeTask[r.Task] = true
		}

		var survivors []types.Task
		var removed []int
		for _, t := range doc.Tasks {
			if removeTask[t.ID] {
				removed = append(removed, t.ID)
				continue
			}
			nt := t.Clone()
			if len(removeSub) > 0 && len(t.Subtasks) > 0 {
				subs := nt.Subtasks[:0]
				for _, s := range nt.Subtasks {
					if removeSub[s.Ref(t.ID)] {
						res.RemovedSubtasks = append(res.RemovedSubtasks, s.Ref(t.ID).String())
						continue
					}
					subs = append(subs, s)
				}
				nt.Subtasks = subs
			}
			survivors = append(survivors, nt)
		}
		res.RemovedTasks = append(res.RemovedTasks, removed...)

		// Compact resolves against the survivors' subtasks, so it also drops
		// references to removed subtasks.
		var tasks []types.Task
		if len(removed) > 0 {
			c, err := m.engine.Compact(survivors, removed)
			if err != nil {
				return nil, wrap(CodeInternal, err)
			}
			op.Engine(ctx, "compact", c.Shifted, len(c.Dropped))
			tasks = c.Tasks
			res.DroppedRefs = len(c.Dropped)
			res.Renumbered = renumberedIDs(c.Mapping)
		} else {
			p := m.engine.Prune(survivors)
			op.Engine(ctx, "prune", 0, len(p.Dropped))
			tasks = p.Tasks
			res.DroppedRefs = len(p.Dropped)
		}

		var parts []string
		if len(res.RemovedTasks) > 0 {
			parts = append(parts, fmt.Sprintf("%d task(s)", len(res.RemovedTasks)))
		}
		if len(res.RemovedSubtasks) > 0 {
			parts = append(parts, fmt.Sprintf("%d subtask(s)", len(res.RemovedSubtasks)))
		}
		res.Message = "Successfully removed " + strings.Join(parts, " and ")
		return doc.WithTasks(tasks), nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info(res.Message)
	return &res, nil
}

// renumberedIDs lists the task ids that changed, old to new.
func renumberedIDs(m taskid.Mapping) map[string]string {
	out := make(map[string]string)
	for old, id := range m.Tasks {
		if old != id {
			out[strconv.Itoa(old)] = strconv.Itoa(id)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ClearResult is the per-task outcome of ClearSubtasks.
type ClearResult struct {
	TaskID          int    `json:"taskId"`
	TaskTitle       string `json:"taskTitle"`
	SubtasksCleared int    `json:"subtasksCleared"`
	Message         string `json:"message"`
}

// ClearSubtasks removes all subtasks from the listed tasks, or from every
// task when ids is "all". References elsewhere to the cleared subtasks are
// pruned.
func (m *Manager) ClearSubtasks(ctx context.Context, ids string) ([]ClearResult, error) {
	ids = strings.TrimSpace(ids)
	if ids == "" {
		return nil, errorf(CodeMissingArgument, "either task IDs or all must be specified")
	}
	var targets []int
	all := strings.EqualFold(ids, "all")
	if !all {
		refs, err := ParseIDList(ids)
		if err != nil {
			return nil, err
		}
		for _, r := range refs {
			if r.IsSubtask() {
				return nil, errorf(CodeInvalidTaskID, "%s is a subtask id; clear subtasks by parent task id", r)
			}
			targets = append(targets, r.Task)
		}
	}

	var results []ClearResult
	err := m.mutate(ctx, "clear_subtasks", func(ctx context.Context, doc *types.Document, op *telemetry.Op) (*types.Document, error) {
		if all {
			for _, t := range doc.Tasks {
				targets = append(targets, t.ID)
			}
		}
		tasks := append([]types.Task(nil), doc.Tasks...)
		for _, id := range targets {
			_, i, ok := types.NewDocument(tasks).Task(id)
			if !ok {
				m.log.Error(fmt.Sprintf("Task %d not found", id))
				continue
			}
			t := tasks[i]
			r := ClearResult{TaskID: t.ID, TaskTitle: t.Title, SubtasksCleared: len(t.Subtasks)}
			if len(t.Subtasks) == 0 {
				r.Message = fmt.Sprintf("Task %d has no subtasks to clear", t.ID)
				m.log.Info(r.Message)
				results = append(results, r)
				continue
			}
			nt := t.Clone()
			nt.Subtasks = []types.Subtask{}
			tasks[i] = nt
			r.Message = fmt.Sprintf("Cleared %d subtasks from task %d", r.SubtasksCleared, t.ID)
			m.log.Info(r.Message)
			results = append(results, r)
		}
		if len(results) == 0 {
			return nil, errorf(CodeClearSubtasks, "no tasks found to clear subtasks from")
		}
		p := m.engine.Prune(tasks)
		op.Engine(ctx, "prune", 0, len(p.Dropped))
		return doc.WithTasks(p.Tasks), nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
