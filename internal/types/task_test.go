package types

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRoundTripPreservesPayload(t *testing.T) {
	in := `{"id":1,"title":"A","zeta":{"b":1,"a":[1.50,2]},"dependencies":[2,"3.1",1.10],"details":"x<y"}`

	task, err := DecodeTask([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, 1, task.ID)
	assert.Equal(t, []Ref{TaskRef(2), SubtaskRef(3, 1), SubtaskRef(1, 10)}, task.Dependencies)
	assert.Equal(t, "x<y", task.Details())

	task.ID = 7
	out, err := task.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t,
		`{"id":7,"title":"A","zeta":{"b":1,"a":[1.50,2]},"dependencies":[2,3.1,1.10],"details":"x<y"}`,
		string(out))
}

func TestTaskUnchangedRoundTripIsIdentical(t *testing.T) {
	in := `{"id":3,"title":"T","description":"d","status":"pending","priority":"high","dependencies":[1],"subtasks":[{"id":1,"title":"s","dependencies":[],"verifications":[{"description":"v","passed":false}]}],"metadata":{"mcp":["fs"]}}`
	task, err := DecodeTask([]byte(in))
	require.NoError(t, err)
	out, err := task.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestTaskWithoutDependenciesKeyStaysWithout(t *testing.T) {
	in := `{"id":1,"title":"T","subtasks":[{"id":1,"title":"s"}]}`
	task, err := DecodeTask([]byte(in))
	require.NoError(t, err)

	out, err := task.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, in, string(out))

	task.ID = 2
	out, err = task.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"id":2,"title":"T","subtasks":[{"id":1,"title":"s"}]}`, string(out))

	task.Dependencies = []Ref{TaskRef(1)}
	out, err = task.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"id":2,"title":"T","subtasks":[{"id":1,"title":"s"}],"dependencies":[1]}`, string(out))

	// A key that existed is kept, emptied, once every dependency is gone.
	withDeps, err := DecodeTask(out)
	require.NoError(t, err)
	withDeps.Dependencies = nil
	out, err = withDeps.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"id":2,"title":"T","subtasks":[{"id":1,"title":"s"}],"dependencies":[]}`, string(out))
}

func TestNewTaskEncoding(t *testing.T) {
	task := Task{ID: 4, Title: "New", Status: StatusPending, Priority: PriorityMedium}
	out, err := task.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"id":4,"title":"New","status":"pending","priority":"medium","dependencies":[]}`, string(out))

	task.Subtasks = []Subtask{}
	out, err = task.MarshalJSON()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(out), `"subtasks":[]}`), string(out))
}

func TestTaskDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `{`},
		{"not object", `[1]`},
		{"missing id", `{"title":"x"}`},
		{"string id", `{"id":"1"}`},
		{"fractional id", `{"id":1.5}`},
		{"zero id", `{"id":0}`},
		{"bad dependency", `{"id":1,"dependencies":["x"]}`},
		{"dependencies not array", `{"id":1,"dependencies":3}`},
		{"bad subtask", `{"id":1,"subtasks":[{"id":-2}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeTask([]byte(tt.in)); err == nil {
				t.Fatalf("DecodeTask(%s) succeeded, want error", tt.in)
			}
		})
	}
}

func TestTaskPayloadEdits(t *testing.T) {
	task, err := DecodeTask([]byte(`{"id":1,"title":"A","dependencies":[],"details":"old"}`))
	require.NoError(t, err)

	edited, err := task.Set("details", "new")
	require.NoError(t, err)
	assert.Equal(t, "new", edited.Details())
	assert.Equal(t, "old", task.Details(), "Set must not modify the receiver")

	edited, err = edited.SetRaw("results", []byte(`[{"action":"a"}]`))
	require.NoError(t, err)
	assert.Equal(t, "a", edited.Get("results.0.action").String())

	edited, err = edited.Delete("details")
	require.NoError(t, err)
	assert.False(t, edited.Get("details").Exists())

	_, err = task.Set("dependencies", []int{1})
	assert.True(t, errors.Is(err, ErrKnownField))

	_, err = task.SetRaw("x", []byte(`{`))
	assert.Error(t, err)
}

func TestSubtaskPriorityIsPayload(t *testing.T) {
	s := Subtask{ID: 1, Title: "s"}
	s2, err := s.Set("priority", "high")
	require.NoError(t, err)
	assert.Equal(t, "high", s2.Get("priority").String())
}

func TestCloneSharesNothing(t *testing.T) {
	task := Task{
		ID:           1,
		Dependencies: []Ref{TaskRef(2)},
		Subtasks:     []Subtask{{ID: 1, Dependencies: []Ref{TaskRef(3)}}},
	}
	c := task.Clone()
	c.Dependencies[0] = TaskRef(9)
	c.Subtasks[0].Dependencies[0] = TaskRef(9)
	assert.Equal(t, TaskRef(2), task.Dependencies[0])
	assert.Equal(t, TaskRef(3), task.Subtasks[0].Dependencies[0])
}
