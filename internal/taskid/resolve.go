package taskid

import (
	"fmt"

	"github.com/tmkit/taskmaster/internal/types"
)

// Resolve rewrites one dependency list through m. References missing from
// the mapping are dropped, each with a warning naming it. Relative order is
// kept.
func (e *Engine) Resolve(owner types.Ref, refs []types.Ref, m Mapping) ([]types.Ref, []Dropped) {
	return e.resolve(owner, refs, m, describeMissing)
}

func (e *Engine) resolve(owner types.Ref, refs []types.Ref, m Mapping, describe func(types.Ref) string) ([]types.Ref, []Dropped) {
	if len(refs) == 0 {
		if refs == nil {
			return nil, nil
		}
		return []types.Ref{}, nil
	}
	out := make([]types.Ref, 0, len(refs))
	var dropped []Dropped
	for _, r := range refs {
		nr, ok := m.Lookup(r)
		if !ok {
			e.log.Warn(fmt.Sprintf("Dependency reference to %s found and removed", describe(r)),
				"owner", owner.String(), "ref", r.String())
			dropped = append(dropped, Dropped{Owner: owner, Ref: r})
			continue
		}
		out = append(out, nr)
	}
	return out, dropped
}

func describeMissing(r types.Ref) string {
	if r.IsSubtask() {
		return "non-existent subtask " + r.String()
	}
	return "non-existent task " + r.String()
}

// rewriteAll applies resolve to every task and subtask dependency list.
// Owners are reported by their pre-transformation ids, which callers pass in
// oldIDs (parallel to tasks).
func (e *Engine) rewriteAll(tasks []types.Task, oldIDs []int, oldSubIDs [][]int, m Mapping, describe func(types.Ref) string) []Dropped {
	var dropped []Dropped
	for i := range tasks {
		owner := types.TaskRef(oldIDs[i])
		var d []Dropped
		tasks[i].Dependencies, d = e.resolve(owner, tasks[i].Dependencies, m, describe)
		dropped = append(dropped, d...)
		for j := range tasks[i].Subtasks {
			subOwner := types.SubtaskRef(oldIDs[i], oldSubIDs[i][j])
			tasks[i].Subtasks[j].Dependencies, d = e.resolve(subOwner, tasks[i].Subtasks[j].Dependencies, m, describe)
			dropped = append(dropped, d...)
		}
	}
	return dropped
}

// Prune drops every reference in tasks that does not resolve within tasks
// themselves. It renumbers nothing. Callers use it after deleting subtasks
// or when repairing a hand-edited document.
func (e *Engine) Prune(tasks []types.Task) Result {
	out := cloneTasks(tasks)
	m := IdentityMapping(out)
	oldIDs, oldSubIDs := idsOf(out)
	dropped := e.rewriteAll(out, oldIDs, oldSubIDs, m, describeMissing)
	return Result{Tasks: out, Mapping: m, Dropped: dropped}
}

// IdentityMapping maps every task and subtask in tasks to itself. Resolving
// through it keeps exactly the references that exist.
func IdentityMapping(tasks []types.Task) Mapping {
	m := newMapping(len(tasks))
	for _, t := range tasks {
		m.Tasks[t.ID] = t.ID
		for _, s := range t.Subtasks {
			m.Subtasks[s.Ref(t.ID)] = s.Ref(t.ID)
		}
	}
	return m
}

func idsOf(tasks []types.Task) ([]int, [][]int) {
	ids := make([]int, len(tasks))
	subIDs := make([][]int, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
		subIDs[i] = make([]int, len(t.Subtasks))
		for j, s := range t.Subtasks {
			subIDs[i][j] = s.ID
		}
	}
	return ids, subIDs
}

func cloneTasks(tasks []types.Task) []types.Task {
	out := make([]types.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
