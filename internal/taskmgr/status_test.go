package taskmgr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmkit/taskmaster/internal/testutil/teststore"
	"github.com/tmkit/taskmaster/internal/types"
)

func TestSetStatus(t *testing.T) {
	env := teststore.NewEnv(t,
		teststore.WithSubtasks(teststore.Task(1, "one"), teststore.Subtask(1, "a"), doneSubtask(2, "b")),
		teststore.WithSubtasks(teststore.Task(2, "two"), teststore.Subtask(1, "c")),
	)
	m := newManager(t, env, nil)

	res, err := m.SetStatus(context.Background(), "1, 2.1", types.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, []StatusChange{
		{ID: "1", OldStatus: types.StatusPending, NewStatus: types.StatusDone},
		{ID: "1.1", OldStatus: types.StatusPending, NewStatus: types.StatusDone},
		{ID: "2.1", OldStatus: types.StatusPending, NewStatus: types.StatusDone},
	}, res.Updated)

	task1 := env.Task(1)
	assert.Equal(t, types.StatusDone, task1.Status)
	for _, s := range task1.Subtasks {
		assert.Equal(t, types.StatusDone, s.Status)
	}
	assert.Equal(t, types.StatusPending, env.Task(2).Status, "a subtask does not move its parent")
}

func TestSetStatusErrors(t *testing.T) {
	env := teststore.NewEnv(t, teststore.Task(1, "one"))
	m := newManager(t, env, nil)
	ctx := context.Background()

	_, err := m.SetStatus(ctx, "1", "")
	requireCode(t, err, CodeMissingArgument)
	_, err = m.SetStatus(ctx, "1,4", types.StatusDone)
	requireCode(t, err, CodeTaskNotFound)
	_, err = m.SetStatus(ctx, "1.3", types.StatusDone)
	requireCode(t, err, CodeSubtaskNotFound)
	assert.Equal(t, types.StatusPending, env.Task(1).Status)
}

func TestAddResult(t *testing.T) {
	env := teststore.NewEnv(t, teststore.WithSubtasks(teststore.Task(15, "one"), teststore.Subtask(2, "a")))
	m := newManager(t, env, nil)
	ctx := context.Background()

	out, err := m.AddResult(ctx, "15", "run tests", "all green", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "15", out.TaskID)
	assert.Equal(t, ResultEntry{Action: "run tests", UpdateTime: "2025-03-14T09:26:53Z", Result: "all green"}, out.ResultEntry)

	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	_, err = m.AddResult(ctx, "15", "deploy", "shipped", at)
	require.NoError(t, err)
	_, err = m.AddResult(ctx, "15.2", "review", "approved", time.Time{})
	require.NoError(t, err)

	task := env.Task(15)
	results := task.Get("results").Array()
	require.Len(t, results, 2)
	assert.Equal(t, "2025-01-02T02:04:05Z", results[1].Get("updateTime").String())
	s, _, _ := task.Subtask(2)
	assert.Equal(t, "approved", s.Get("results.0.result").String())
}

func TestAddResultErrors(t *testing.T) {
	env := teststore.NewEnv(t, teststore.Task(1, "one"))
	m := newManager(t, env, nil)
	ctx := context.Background()

	tests := []struct {
		id, action, result string
		code               Code
	}{
		{"", "a", "r", CodeMissingArgument},
		{"1", "", "r", CodeMissingArgument},
		{"1", "a", "", CodeMissingArgument},
		{"x", "a", "r", CodeInvalidTaskID},
		{"2", "a", "r", CodeTaskNotFound},
		{"1.1", "a", "r", CodeSubtaskNotFound},
	}
	for _, tt := range tests {
		_, err := m.AddResult(ctx, tt.id, tt.action, tt.result, time.Time{})
		requireCode(t, err, tt.code)
	}
}
