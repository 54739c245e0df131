// Package teststore provides tasks-file fixtures for tests.
//
// Each Env is an isolated project directory holding
// .taskmaster/default/tasks/tasks.json. Helpers read the file back so tests
// can assert on what an operation actually persisted.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    env := teststore.NewEnv(t, teststore.Task(1, "first"), teststore.Task(2, "second", "1"))
//	    // run an operation against env.Root
//	    env.AssertIDs(1, 2)
//	}
package teststore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmkit/taskmaster/internal/config"
	"github.com/tmkit/taskmaster/internal/store"
	"github.com/tmkit/taskmaster/internal/types"
)

// Env is a temporary project with a tasks file.
type Env struct {
	t    testing.TB
	Root string
	Path string
}

// NewEnv creates a project whose tasks file holds tasks. Pass no tasks to
// get an empty task list.
func NewEnv(t testing.TB, tasks ...types.Task) *Env {
	t.Helper()
	env := Empty(t)
	env.Write(types.NewDocument(tasks))
	return env
}

// Empty creates a project with a .taskmaster directory and no tasks file.
func Empty(t testing.TB) *Env {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, config.DirName), 0o750); err != nil {
		t.Fatalf("teststore: failed to create project dir: %v", err)
	}
	return &Env{t: t, Root: root, Path: store.GroupTasksFile(root, config.DefaultTaskGroup)}
}

// FromJSON creates a project whose tasks file holds data verbatim.
func FromJSON(t testing.TB, data string) *Env {
	t.Helper()
	env := Empty(t)
	env.WriteRaw(data)
	return env
}

// Write replaces the tasks file with doc.
func (e *Env) Write(doc *types.Document) {
	e.t.Helper()
	require.NoError(e.t, store.Save(e.Path, doc))
}

// WriteRaw replaces the tasks file with data.
func (e *Env) WriteRaw(data string) {
	e.t.Helper()
	require.NoError(e.t, os.MkdirAll(filepath.Dir(e.Path), 0o750))
	require.NoError(e.t, os.WriteFile(e.Path, []byte(data), 0o600))
}

// Raw returns the tasks file contents.
func (e *Env) Raw() string {
	e.t.Helper()
	data, err := os.ReadFile(e.Path)
	require.NoError(e.t, err)
	return string(data)
}

// Load reads the tasks file back.
func (e *Env) Load() *types.Document {
	e.t.Helper()
	doc, err := store.Load(e.Path)
	require.NoError(e.t, err)
	return doc
}

// Task returns task id from the file, failing the test when it is missing.
func (e *Env) Task(id int) types.Task {
	e.t.Helper()
	t, _, ok := e.Load().Task(id)
	require.True(e.t, ok, "task %d not found", id)
	return t
}

// AssertIDs checks the task ids in file order.
func (e *Env) AssertIDs(ids ...int) {
	e.t.Helper()
	doc := e.Load()
	got := make([]int, len(doc.Tasks))
	for i, t := range doc.Tasks {
		got[i] = t.ID
	}
	if ids == nil {
		ids = []int{}
	}
	assert.Equal(e.t, ids, got)
}

// AssertDeps checks the dependencies of the task or subtask at ref.
func (e *Env) AssertDeps(ref string, want ...string) {
	e.t.Helper()
	r := types.MustParseRef(ref)
	t := e.Task(r.Task)
	deps := t.Dependencies
	if r.IsSubtask() {
		s, _, ok := t.Subtask(r.Subtask)
		require.True(e.t, ok, "subtask %s not found", ref)
		deps = s.Dependencies
	}
	got := make([]string, len(deps))
	for i, d := range deps {
		got[i] = d.String()
	}
	if want == nil {
		want = []string{}
	}
	assert.Equal(e.t, want, got, "dependencies of %s", ref)
}

// Task builds a pending task. deps are ids like "2" or "2.1".
func Task(id int, title string, deps ...string) types.Task {
	return types.Task{
		ID:           id,
		Title:        title,
		Description:  title,
		Status:       types.StatusPending,
		Priority:     types.PriorityMedium,
		Dependencies: refs(deps),
	}
}

// WithSubtasks returns t with subtasks appended.
func WithSubtasks(t types.Task, subs ...types.Subtask) types.Task {
	t = t.Clone()
	t.Subtasks = append(t.Subtasks, subs...)
	return t
}

// WithStatus returns t with its status set.
func WithStatus(t types.Task, status types.Status) types.Task {
	t = t.Clone()
	t.Status = status
	return t
}

// Subtask builds a pending subtask.
func Subtask(id int, title string, deps ...string) types.Subtask {
	return types.Subtask{
		ID:           id,
		Title:        title,
		Status:       types.StatusPending,
		Dependencies: refs(deps),
	}
}

func refs(ids []string) []types.Ref {
	out := make([]types.Ref, 0, len(ids))
	for _, id := range ids {
		out = append(out, types.MustParseRef(id))
	}
	return out
}

// MustJSON encodes v for fixtures, failing the test on error.
func MustJSON(t testing.TB, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
