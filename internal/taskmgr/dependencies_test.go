package taskmgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmkit/taskmaster/internal/deps"
	"github.com/tmkit/taskmaster/internal/testutil/teststore"
	"github.com/tmkit/taskmaster/internal/types"
)

func TestAddAndRemoveDependency(t *testing.T) {
	env := teststore.NewEnv(t,
		teststore.Task(1, "one"),
		teststore.WithSubtasks(teststore.Task(2, "two", "1"), teststore.Subtask(1, "a")),
		teststore.Task(3, "three", "2"),
	)
	m := newManager(t, env, nil)
	ctx := context.Background()

	_, err := m.AddDependency(ctx, types.TaskRef(3), types.SubtaskRef(2, 1))
	require.NoError(t, err)
	env.AssertDeps("3", "2", "2.1")

	res, err := m.AddDependency(ctx, types.TaskRef(3), types.TaskRef(2))
	require.NoError(t, err)
	assert.Equal(t, "3 already depends on 2", res.Message)

	_, err = m.AddDependency(ctx, types.TaskRef(1), types.TaskRef(3))
	requireCode(t, err, CodeDependency)
	_, err = m.AddDependency(ctx, types.TaskRef(1), types.TaskRef(1))
	requireCode(t, err, CodeDependency)
	_, err = m.AddDependency(ctx, types.TaskRef(1), types.TaskRef(7))
	requireCode(t, err, CodeDependency)
	_, err = m.AddDependency(ctx, types.TaskRef(7), types.TaskRef(1))
	requireCode(t, err, CodeTaskNotFound)
	env.AssertDeps("1")

	_, err = m.RemoveDependency(ctx, types.TaskRef(3), types.TaskRef(2))
	require.NoError(t, err)
	env.AssertDeps("3", "2.1")

	res, err = m.RemoveDependency(ctx, types.TaskRef(3), types.TaskRef(2))
	require.NoError(t, err)
	assert.Equal(t, "3 does not depend on 2", res.Message)
}

func TestValidateAndFixDependencies(t *testing.T) {
	env := teststore.NewEnv(t,
		teststore.Task(1, "one", "1", "2"),
		teststore.Task(2, "two", "1", "9"),
		teststore.Task(3, "three", "2", "2"),
	)
	m := newManager(t, env, nil)
	ctx := context.Background()
	before := env.Raw()

	v, err := m.ValidateDependencies(ctx)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	var kinds []deps.IssueKind
	for _, is := range v.Issues {
		kinds = append(kinds, is.Kind)
	}
	assert.ElementsMatch(t, []deps.IssueKind{deps.IssueSelf, deps.IssueMissing, deps.IssueDuplicate, deps.IssueCycle}, kinds)
	assert.Equal(t, before, env.Raw(), "validation is read-only")

	fix, err := m.FixDependencies(ctx)
	require.NoError(t, err)
	assert.Len(t, fix.Fixed, 4)
	env.AssertDeps("1", "2")
	env.AssertDeps("2")
	env.AssertDeps("3", "2")

	v, err = m.ValidateDependencies(ctx)
	require.NoError(t, err)
	assert.True(t, v.Valid)

	again, err := m.FixDependencies(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Fixed)
}
