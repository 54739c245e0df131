package taskmgr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmkit/taskmaster/internal/ai"
	"github.com/tmkit/taskmaster/internal/testutil/teststore"
	"github.com/tmkit/taskmaster/internal/types"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newManager(t *testing.T, env *teststore.Env, gen ai.Generator) *Manager {
	t.Helper()
	return New(Options{
		Root:      env.Root,
		Generator: gen,
		Now:       func() time.Time { return fixedNow },
	})
}

func requireCode(t *testing.T, err error, code Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, CodeOf(err), "error: %v", err)
}

func TestLoadMissingFile(t *testing.T) {
	env := teststore.Empty(t)
	_, err := newManager(t, env, nil).Load(context.Background())
	requireCode(t, err, CodeTasksFileNotFound)
}

func TestLoadInvalidFile(t *testing.T) {
	tests := map[string]string{
		"not json":      "{nope",
		"no tasks key":  `{"meta": {}}`,
		"bad id":        `{"tasks": [{"id": "x", "title": "a"}]}`,
		"bad reference": `{"tasks": [{"id": 1, "dependencies": ["1.x"]}]}`,
		"duplicate ids": `{"tasks": [{"id": 2, "title": "a"}, {"id": 2, "title": "b"}]}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			env := teststore.FromJSON(t, data)
			_, err := newManager(t, env, nil).Load(context.Background())
			requireCode(t, err, CodeInvalidTasksFile)
		})
	}
}

func TestLoadLegacyLocation(t *testing.T) {
	env := teststore.Empty(t)
	legacy := filepath.Join(env.Root, "tasks", "tasks.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(legacy), 0o750))
	require.NoError(t, os.WriteFile(legacy, []byte(`{"tasks": [{"id": 1, "title": "old"}]}`), 0o600))

	m := newManager(t, env, nil)
	doc, err := m.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Tasks, 1)

	loc, err := m.Locate()
	require.NoError(t, err)
	assert.True(t, loc.Legacy)
}

func TestMutationPreservesUnknownFields(t *testing.T) {
	env := teststore.FromJSON(t, `{
  "project": {"name": "demo"},
  "tasks": [
    {"id": 1, "title": "a", "status": "pending", "custom": {"x": [1, 2]}, "dependencies": []},
    {"id": 3, "title": "b", "status": "pending", "dependencies": [1]}
  ]
}`)
	_, err := newManager(t, env, nil).Renumber(context.Background(), false)
	require.NoError(t, err)

	doc := env.Load()
	assert.Equal(t, "demo", doc.Get("project.name").String())
	task1, _, _ := doc.Task(1)
	assert.Equal(t, int64(2), task1.Get("custom.x.1").Int())
	env.AssertIDs(1, 2)
	env.AssertDeps("2", "1")
}

func TestParseID(t *testing.T) {
	r, err := ParseID("5.2")
	require.NoError(t, err)
	assert.Equal(t, types.SubtaskRef(5, 2), r)

	_, err = ParseID("")
	requireCode(t, err, CodeMissingArgument)
	_, err = ParseID("five")
	requireCode(t, err, CodeInvalidTaskID)

	refs, err := ParseIDList("1, 2.3")
	require.NoError(t, err)
	assert.Equal(t, []types.Ref{types.TaskRef(1), types.SubtaskRef(2, 3)}, refs)
	_, err = ParseIDList(" ")
	requireCode(t, err, CodeMissingArgument)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeTaskLocked, CodeOf(errorf(CodeTaskLocked, "locked")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))

	inner := errorf(CodeTaskNotFound, "missing")
	assert.Same(t, inner, wrap(CodeInternal, inner), "wrap keeps an existing code")
}

func TestInit(t *testing.T) {
	env := teststore.Empty(t)
	m := newManager(t, env, nil)

	res, err := m.Init(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, env.Path, res.Path)
	env.AssertIDs()

	_, err = m.Init(context.Background(), false)
	requireCode(t, err, CodeFileExists)

	env.Write(types.NewDocument([]types.Task{teststore.Task(1, "kept")}))
	_, err = m.Init(context.Background(), true)
	require.NoError(t, err)
	env.AssertIDs()
}
