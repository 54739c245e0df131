// Package taskid keeps task and subtask ids consistent with the dependency
// references that point at them.
//
// Every transformation takes a task slice and returns a new one. Inputs are
// never modified. References that no longer resolve after a transformation
// are dropped and reported, one warning per dropped reference, through the
// Logger the Engine was built with.
package taskid

import (
	"errors"

	"github.com/tmkit/taskmaster/internal/types"
)

var (
	// ErrInvariant marks a caller contract violation detected while
	// transforming ids. It is not a validation error: the input was
	// internally inconsistent.
	ErrInvariant = errors.New("task id invariant violated")

	// ErrInvalidPosition is returned for an insertion position below 1.
	ErrInvalidPosition = errors.New("invalid insertion position")
)

// Logger is the subset of *log.Logger (charmbracelet/log) the engine uses.
type Logger interface {
	Debug(msg interface{}, keyvals ...interface{})
	Info(msg interface{}, keyvals ...interface{})
	Warn(msg interface{}, keyvals ...interface{})
	Error(msg interface{}, keyvals ...interface{})
}

// Engine performs id transformations. The zero value is not usable; call New.
type Engine struct {
	log Logger
}

// New returns an Engine that reports through log. A nil log discards output.
func New(log Logger) *Engine {
	if log == nil {
		log = nopLogger{}
	}
	return &Engine{log: log}
}

// Mapping is the old-to-new id assignment of one transformation.
type Mapping struct {
	Tasks    map[int]int
	Subtasks map[types.Ref]types.Ref
}

func newMapping(n int) Mapping {
	return Mapping{
		Tasks:    make(map[int]int, n),
		Subtasks: make(map[types.Ref]types.Ref),
	}
}

// Lookup maps a reference through m.
func (m Mapping) Lookup(r types.Ref) (types.Ref, bool) {
	if r.IsSubtask() {
		nr, ok := m.Subtasks[types.SubtaskRef(r.Task, r.Subtask)]
		return nr, ok
	}
	id, ok := m.Tasks[r.Task]
	if !ok {
		return types.Ref{}, false
	}
	return types.TaskRef(id), true
}

// Dropped records a reference removed because it no longer resolves.
// Owner is the task or subtask that held it, by its id before the
// transformation.
type Dropped struct {
	Owner types.Ref
	Ref   types.Ref
}

// Result is the output of InsertAt, Renumber and Compact.
type Result struct {
	Tasks   []types.Task
	Mapping Mapping
	// Shifted counts tasks whose id changed.
	Shifted int
	Dropped []Dropped
}

type nopLogger struct{}

func (nopLogger) Debug(interface{}, ...interface{}) {}
func (nopLogger) Info(interface{}, ...interface{})  {}
func (nopLogger) Warn(interface{}, ...interface{})  {}
func (nopLogger) Error(interface{}, ...interface{}) {}
