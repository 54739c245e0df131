package taskid

import (
	"fmt"
	"sort"

	"github.com/tmkit/taskmaster/internal/types"
)

type renumberConfig struct {
	sortByID bool
}

// RenumberOption configures Renumber.
type RenumberOption func(*renumberConfig)

// WithSortByID controls whether tasks and subtasks are ordered by their
// current id before numbering (the default) or kept in slice order.
func WithSortByID(sort bool) RenumberOption {
	return func(c *renumberConfig) { c.sortByID = sort }
}

// Renumber assigns ids 1..N to tasks and 1..M to each task's subtasks, then
// rewrites every dependency through the resulting mapping. References that
// did not resolve before renumbering are dropped. Renumbering its own output
// is a no-op.
func (e *Engine) Renumber(tasks []types.Task, opts ...RenumberOption) Result {
	cfg := renumberConfig{sortByID: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	ordered := cloneTasks(tasks)
	if cfg.sortByID {
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	}

	m := newMapping(len(ordered))
	oldIDs := make([]int, len(ordered))
	oldSubIDs := make([][]int, len(ordered))
	shifted := 0
	for i := range ordered {
		t := &ordered[i]
		newID := i + 1
		oldIDs[i] = t.ID
		m.Tasks[t.ID] = newID
		if t.ID != newID {
			shifted++
		}

		if cfg.sortByID {
			sort.SliceStable(t.Subtasks, func(a, b int) bool { return t.Subtasks[a].ID < t.Subtasks[b].ID })
		}
		oldSubIDs[i] = make([]int, len(t.Subtasks))
		for j := range t.Subtasks {
			s := &t.Subtasks[j]
			oldSubIDs[i][j] = s.ID
			m.Subtasks[types.SubtaskRef(t.ID, s.ID)] = types.SubtaskRef(newID, j+1)
			s.ID = j + 1
		}
		t.ID = newID
	}

	dropped := e.rewriteAll(ordered, oldIDs, oldSubIDs, m, describeMissing)
	if shifted > 0 || len(dropped) > 0 {
		e.log.Info(fmt.Sprintf("Renumbered %d task(s), %d task id(s) changed, %d reference(s) dropped",
			len(ordered), shifted, len(dropped)))
	}
	return Result{Tasks: ordered, Mapping: m, Shifted: shifted, Dropped: dropped}
}
