package deps

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmkit/taskmaster/internal/logging"
	"github.com/tmkit/taskmaster/internal/taskid"
	"github.com/tmkit/taskmaster/internal/types"
)

func task(id int, deps ...types.Ref) types.Task {
	return types.Task{ID: id, Title: "Task", Status: types.StatusPending, Dependencies: deps}
}

func tr(id int) types.Ref   { return types.TaskRef(id) }
func sr(p, s int) types.Ref { return types.SubtaskRef(p, s) }

func kinds(is []Issue) []IssueKind {
	out := make([]IssueKind, len(is))
	for i, x := range is {
		out[i] = x.Kind
	}
	return out
}

func TestValidate(t *testing.T) {
	tasks := []types.Task{
		task(1, tr(1)),
		task(2, tr(9), tr(1), tr(1)),
		task(3, tr(4)),
		task(4, tr(3)),
	}
	tasks[0].Subtasks = []types.Subtask{{ID: 1, Dependencies: []types.Ref{sr(1, 7)}}}

	issues := Validate(tasks)
	assert.Equal(t, []IssueKind{IssueSelf, IssueMissing, IssueMissing, IssueDuplicate, IssueCycle}, kinds(issues))
	assert.Equal(t, sr(1, 1), issues[1].Owner)
	assert.Equal(t, sr(1, 7), issues[1].Ref)
	assert.Equal(t, tr(9), issues[2].Ref)

	cycle := issues[4]
	assert.Equal(t, tr(4), cycle.Owner)
	assert.Equal(t, tr(3), cycle.Ref)
	assert.Equal(t, "circular dependency: 3 -> 4 -> 3", cycle.String())
}

func TestValidateClean(t *testing.T) {
	tasks := []types.Task{task(1), task(2, tr(1)), task(3, tr(1), tr(2))}
	tasks[2].Subtasks = []types.Subtask{{ID: 1}, {ID: 2, Dependencies: []types.Ref{sr(3, 1), tr(2)}}}
	assert.Empty(t, Validate(tasks))
}

func TestValidateDoesNotModify(t *testing.T) {
	tasks := []types.Task{task(1, tr(2)), task(2, tr(1))}
	Validate(tasks)
	assert.Equal(t, []types.Ref{tr(2)}, tasks[0].Dependencies)
	assert.Equal(t, []types.Ref{tr(1)}, tasks[1].Dependencies)
}

func TestFix(t *testing.T) {
	tasks := []types.Task{
		task(1, tr(1), tr(2)),
		task(2, tr(9), tr(3), tr(3)),
		task(3, tr(1)),
	}
	engine := taskid.New(logging.Discard())

	fixed, issues := Fix(engine, tasks)
	require.NotEmpty(t, issues)
	assert.Empty(t, Validate(fixed))

	assert.Equal(t, []types.Ref{tr(2)}, fixed[0].Dependencies)
	assert.Equal(t, []types.Ref{tr(3)}, fixed[1].Dependencies)
	assert.Empty(t, fixed[2].Dependencies)

	assert.Equal(t, []types.Ref{tr(1), tr(2)}, tasks[0].Dependencies, "input left alone")
}

func TestFixNothingToDo(t *testing.T) {
	tasks := []types.Task{task(1), task(2, tr(1))}
	fixed, issues := Fix(taskid.New(nil), tasks)
	assert.Nil(t, issues)
	assert.Equal(t, tasks, fixed)
}

func TestWouldCycle(t *testing.T) {
	tasks := []types.Task{task(1), task(2, tr(1)), task(3, tr(2))}
	tasks[0].Subtasks = []types.Subtask{{ID: 1, Dependencies: []types.Ref{tr(3)}}}

	assert.True(t, WouldCycle(tasks, tr(1), tr(3)))
	assert.True(t, WouldCycle(tasks, tr(1), tr(1)))
	assert.False(t, WouldCycle(tasks, tr(3), tr(1)))
	assert.True(t, WouldCycle(tasks, tr(3), sr(1, 1)))
	assert.True(t, WouldCycle(tasks, tr(2), tr(3)))
}

func TestSatisfied(t *testing.T) {
	doc := types.NewDocument([]types.Task{
		{ID: 1, Status: types.StatusDone, Subtasks: []types.Subtask{{ID: 1, Status: types.StatusCompleted}, {ID: 2}}},
		{ID: 2, Status: types.StatusPending},
	})
	assert.True(t, Satisfied(doc, nil))
	assert.True(t, Satisfied(doc, []types.Ref{tr(1), sr(1, 1)}))
	assert.False(t, Satisfied(doc, []types.Ref{tr(1), sr(1, 2)}))
	assert.False(t, Satisfied(doc, []types.Ref{tr(2)}))
	assert.False(t, Satisfied(doc, []types.Ref{tr(5)}))
	assert.False(t, Satisfied(doc, []types.Ref{sr(1, 9)}))
}

func TestWriteMermaid(t *testing.T) {
	tasks := []types.Task{
		{ID: 1, Title: `Say "hi"`, Status: types.StatusDone},
		{ID: 2, Title: "Two", Dependencies: []types.Ref{tr(1), tr(8)},
			Subtasks: []types.Subtask{{ID: 1, Title: "Sub", Dependencies: []types.Ref{sr(2, 9)}}}},
		{ID: 3, Title: "Three", Dependencies: []types.Ref{sr(2, 1)}},
	}

	var b strings.Builder
	require.NoError(t, WriteMermaid(&b, tasks, false))
	out := b.String()
	assert.True(t, strings.HasPrefix(out, "flowchart TD\n"))
	assert.Contains(t, out, `T1["☑ 1: Say \"hi\""]`)
	assert.Contains(t, out, "T1 --> T2")
	assert.Contains(t, out, "T2 --> T3")
	assert.NotContains(t, out, "T8")
	assert.NotContains(t, out, "T2_1")

	b.Reset()
	require.NoError(t, WriteMermaid(&b, tasks, true))
	out = b.String()
	assert.Contains(t, out, "T2_1 --> T3")
	assert.Contains(t, out, "T2 -.- T2_1")
	assert.NotContains(t, out, "T2_9")

	b.Reset()
	require.NoError(t, WriteMermaid(&b, nil, false))
	assert.Contains(t, b.String(), "No tasks")
}

func TestTreeRenderer(t *testing.T) {
	doc := types.NewDocument([]types.Task{
		{ID: 1, Title: "Base", Status: types.StatusDone},
		{ID: 2, Title: "Middle", Dependencies: []types.Ref{tr(1)}},
		{ID: 3, Title: "Top", Dependencies: []types.Ref{tr(2), tr(1), tr(7)}},
	})

	var b strings.Builder
	require.NoError(t, NewTreeRenderer(doc, 5).Render(&b, tr(3)))
	want := strings.Join([]string{
		"☐ 3: Top (pending)",
		"├── ☐ 2: Middle (pending)",
		"│   └── ☑ 1: Base (done)",
		"├── 1 (shown above)",
		"└── 7 (missing)",
		"",
	}, "\n")
	assert.Equal(t, want, b.String())

	b.Reset()
	require.NoError(t, NewTreeRenderer(doc, 0).Render(&b, tr(3)))
	assert.Equal(t, "☐ 3: Top (pending) …\n", b.String())
}
