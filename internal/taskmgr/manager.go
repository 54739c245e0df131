// Package taskmgr implements every task operation of the tm CLI and MCP
// server. Each mutating operation loads the tasks document, computes the new
// task list (through the taskid engine when ids move), validates it and
// saves it atomically. A failed step writes nothing.
package taskmgr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tmkit/taskmaster/internal/ai"
	"github.com/tmkit/taskmaster/internal/config"
	"github.com/tmkit/taskmaster/internal/logging"
	"github.com/tmkit/taskmaster/internal/store"
	"github.com/tmkit/taskmaster/internal/taskid"
	"github.com/tmkit/taskmaster/internal/telemetry"
	"github.com/tmkit/taskmaster/internal/types"
)

// Options configures New.
type Options struct {
	// Root is the project root. Paths inside .taskmaster are normalized away.
	Root string
	// Group selects .taskmaster/<group>/tasks/tasks.json.
	Group string
	// TasksFile overrides the tasks file location, relative to Root.
	TasksFile string
	Logger    *logging.Logger
	// Generator serves AI-backed operations. Nil disables them.
	Generator ai.Generator
	// Prompts defaults to ai.DefaultPrompts().
	Prompts *ai.Prompts
	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager runs task operations against one tasks file. Operations on the
// same Manager are serialized.
type Manager struct {
	mu sync.Mutex

	root      string
	group     string
	tasksFile string
	log       *logging.Logger
	engine    *taskid.Engine
	gen       ai.Generator
	prompts   ai.Prompts
	now       func() time.Time
}

// New returns a Manager for opts.
func New(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Group == "" {
		opts.Group = config.DefaultTaskGroup
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	prompts := ai.DefaultPrompts()
	if opts.Prompts != nil {
		prompts = *opts.Prompts
	}
	return &Manager{
		root:      store.NormalizeRoot(opts.Root),
		group:     opts.Group,
		tasksFile: opts.TasksFile,
		log:       opts.Logger,
		engine:    taskid.New(opts.Logger),
		gen:       opts.Generator,
		prompts:   prompts,
		now:       opts.Now,
	}
}

// Root returns the project root.
func (m *Manager) Root() string { return m.root }

// Group returns the task group.
func (m *Manager) Group() string { return m.group }

// Locate returns the tasks file the Manager reads. The error wraps
// store.ErrNotFound when no file exists yet; the returned path is then
// where a new file would go.
func (m *Manager) Locate() (store.Location, error) {
	return store.Resolve(m.root, m.group, m.tasksFile)
}

func (m *Manager) loadLocked() (*types.Document, store.Location, error) {
	loc, err := m.Locate()
	if err != nil {
		return nil, loc, errorf(CodeTasksFileNotFound, "tasks file not found: %s", loc.Path)
	}
	if loc.Legacy {
		m.log.Warn("Using a legacy tasks file location; run 'tm migrate' to move it", "path", loc.Path)
	}
	doc, err := store.Load(loc.Path)
	if err != nil {
		if errors.Is(err, store.ErrInvalid) {
			return nil, loc, wrap(CodeInvalidTasksFile, err)
		}
		return nil, loc, wrap(CodeInternal, err)
	}
	if !doc.HasTaskList() {
		return nil, loc, errorf(CodeInvalidTasksFile, "invalid or empty tasks file: %s has no tasks array", loc.Path)
	}
	return doc, loc, nil
}

// Load reads the current document.
func (m *Manager) Load(ctx context.Context) (*types.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, op := telemetry.StartOp(ctx, "load", attribute.String("tm.group", m.group))
	doc, _, err := m.loadLocked()
	if err == nil {
		op.Tasks(ctx, len(doc.Tasks))
	}
	op.End(ctx, err)
	return doc, err
}

// mutateFunc computes the new document. It must not modify doc.
type mutateFunc func(ctx context.Context, doc *types.Document, op *telemetry.Op) (*types.Document, error)

// mutate runs load, compute, validate and save as one serialized
// operation.
func (m *Manager) mutate(ctx context.Context, name string, fn mutateFunc) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, op := telemetry.StartOp(ctx, name, attribute.String("tm.group", m.group))
	defer func() { op.End(ctx, err) }()

	doc, loc, err := m.loadLocked()
	if err != nil {
		return err
	}
	next, err := fn(ctx, doc, op)
	if err != nil {
		return err
	}
	if err := m.save(loc.Path, next); err != nil {
		return err
	}
	op.Tasks(ctx, len(next.Tasks))
	return nil
}

// save checks the result against the document schema before writing it.
func (m *Manager) save(path string, doc *types.Document) error {
	data, err := doc.Encode()
	if err != nil {
		return wrap(CodeInternal, fmt.Errorf("encoding tasks: %w", err))
	}
	if _, err := store.Decode(data); err != nil {
		return wrap(CodeInternal, fmt.Errorf("refusing to write an invalid document: %w", err))
	}
	if err := store.Save(path, doc); err != nil {
		return wrap(CodeInternal, err)
	}
	m.log.Debug("saved tasks", "path", path, "tasks", len(doc.Tasks))
	return nil
}

// ParseID parses a task id ("5") or subtask id ("5.2") from user input.
func ParseID(s string) (types.Ref, error) {
	if s == "" {
		return types.Ref{}, errorf(CodeMissingArgument, "task ID is required")
	}
	r, err := types.ParseRef(s)
	if err != nil {
		return types.Ref{}, wrap(CodeInvalidTaskID, err)
	}
	return r, nil
}

// ParseIDList parses a comma-separated id list.
func ParseIDList(s string) ([]types.Ref, error) {
	refs, err := types.ParseRefList(s)
	if err != nil {
		return nil, wrap(CodeInvalidTaskID, err)
	}
	if len(refs) == 0 {
		return nil, errorf(CodeMissingArgument, "at least one task ID is required")
	}
	return refs, nil
}

// findTask returns the index of task id or a TASK_NOT_FOUND error.
func findTask(doc *types.Document, id int) (int, error) {
	_, i, ok := doc.Task(id)
	if !ok {
		return -1, errorf(CodeTaskNotFound, "task with ID %d not found", id)
	}
	return i, nil
}

// findSubtask returns the indexes of parent and subtask for r.
func findSubtask(doc *types.Document, r types.Ref) (int, int, error) {
	t, ti, ok := doc.Task(r.Task)
	if !ok {
		return -1, -1, errorf(CodeTaskNotFound, "parent task with ID %d not found", r.Task)
	}
	_, si, ok := t.Subtask(r.Subtask)
	if !ok {
		return -1, -1, errorf(CodeSubtaskNotFound, "subtask with ID %d not found in task %d", r.Subtask, r.Task)
	}
	return ti, si, nil
}

// replaceTask returns a copy of tasks with tasks[i] set to t.
func replaceTask(tasks []types.Task, i int, t types.Task) []types.Task {
	out := append([]types.Task(nil), tasks...)
	out[i] = t
	return out
}

func (m *Manager) timestamp() string {
	return m.now().UTC().Format(time.RFC3339)
}

func sortedByID(tasks []types.Task) []types.Task {
	return types.NewDocument(tasks).SortedTasks()
}
