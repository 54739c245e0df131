package taskid

import (
	"fmt"

	"github.com/tmkit/taskmaster/internal/types"
)

// InsertAt makes room for a new task at id pos. Tasks with id >= pos move up
// by one and every reference to them follows. Subtask ids are unchanged.
// A pos above the highest id shifts nothing. Shifting never drops a
// reference.
func (e *Engine) InsertAt(tasks []types.Task, pos int) (Result, error) {
	if pos < 1 {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidPosition, pos)
	}

	shift := func(id int) int {
		if id >= pos {
			return id + 1
		}
		return id
	}
	shiftRefs := func(refs []types.Ref) []types.Ref {
		if refs == nil {
			return nil
		}
		out := make([]types.Ref, len(refs))
		for i, r := range refs {
			r.Task = shift(r.Task)
			out[i] = r
		}
		return out
	}

	out := make([]types.Task, len(tasks))
	m := newMapping(len(tasks))
	shifted := 0
	for i, t := range tasks {
		nt := t.Clone()
		nt.ID = shift(t.ID)
		if nt.ID != t.ID {
			shifted++
		}
		m.Tasks[t.ID] = nt.ID
		nt.Dependencies = shiftRefs(t.Dependencies)
		for j, s := range t.Subtasks {
			nt.Subtasks[j].Dependencies = shiftRefs(s.Dependencies)
			m.Subtasks[s.Ref(t.ID)] = s.Ref(nt.ID)
		}
		out[i] = nt
	}

	if shifted > 0 {
		e.log.Info(fmt.Sprintf("Shifted %d task(s) to make room at id %d", shifted, pos))
	}
	return Result{Tasks: out, Mapping: m, Shifted: shifted}, nil
}
