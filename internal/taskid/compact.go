package taskid

import (
	"fmt"
	"sort"

	"github.com/tmkit/taskmaster/internal/types"
)

// Compact closes the gaps left by removed task ids. tasks holds the
// survivors only; removed lists the ids that were deleted.
//
// The mapping is the one produced by walking 1..max(existing, removed) and
// handing out sequential ids to every id not in removed. It is computed as
// a sorted merge: a surviving id moves down by the number of removed ids
// below it.
//
// A surviving task whose id is in removed, or below 1, has no place in that
// walk. Compact then fails with ErrInvariant and returns no tasks.
func (e *Engine) Compact(tasks []types.Task, removed []int) (Result, error) {
	gone := sortedUnique(removed)
	isGone := make(map[int]bool, len(gone))
	for _, id := range gone {
		isGone[id] = true
	}

	out := cloneTasks(tasks)
	m := newMapping(len(out))
	oldIDs, oldSubIDs := idsOf(out)
	shifted := 0
	for i := range out {
		t := &out[i]
		if t.ID < 1 || isGone[t.ID] {
			return Result{}, fmt.Errorf("%w: task %d was supposed to be removed but is still in the task list", ErrInvariant, t.ID)
		}
		newID := t.ID - sort.SearchInts(gone, t.ID)
		m.Tasks[t.ID] = newID
		for _, s := range t.Subtasks {
			m.Subtasks[s.Ref(t.ID)] = s.Ref(newID)
		}
		if newID != t.ID {
			shifted++
		}
		t.ID = newID
	}

	describe := func(r types.Ref) string {
		if isGone[r.Task] {
			if r.IsSubtask() {
				return "subtask " + r.String() + " of removed task"
			}
			return "removed task " + r.String()
		}
		return describeMissing(r)
	}
	dropped := e.rewriteAll(out, oldIDs, oldSubIDs, m, describe)

	if shifted > 0 {
		e.log.Info(fmt.Sprintf("Compacted task ids: %d task(s) renumbered after removing %d", shifted, len(gone)))
	}
	return Result{Tasks: out, Mapping: m, Shifted: shifted, Dropped: dropped}, nil
}

// sortedUnique returns the positive ids in ascending order without
// repeats. Ids below 1 never take part in the walk.
func sortedUnique(ids []int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id >= 1 {
			out = append(out, id)
		}
	}
	sort.Ints(out)
	n := 0
	for _, id := range out {
		if n > 0 && id == out[n-1] {
			continue
		}
		out[n] = id
		n++
	}
	return out[:n]
}
