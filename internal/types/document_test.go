package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "meta": {"projectName": "demo", "version": 2},
  "tasks": [
    {"id": 2, "title": "Second", "status": "done", "dependencies": [1]},
    {"id": 1, "title": "First", "status": "pending", "dependencies": [],
     "subtasks": [{"id": 1, "title": "sub", "dependencies": []}]}
  ]
}`

func TestDocumentDecodeEncode(t *testing.T) {
	doc, err := DecodeDocument([]byte(sampleDoc))
	require.NoError(t, err)
	require.True(t, doc.HasTaskList())
	require.Len(t, doc.Tasks, 2)
	assert.Equal(t, 2, doc.MaxID())

	task, idx, ok := doc.Task(1)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "First", task.Title)

	assert.True(t, doc.Exists(SubtaskRef(1, 1)))
	assert.False(t, doc.Exists(SubtaskRef(1, 2)))
	assert.False(t, doc.Exists(TaskRef(3)))

	out, err := doc.Encode()
	require.NoError(t, err)
	back, err := DecodeDocument(out)
	require.NoError(t, err)
	assert.Equal(t, "demo", back.Get("meta.projectName").String())
	assert.Equal(t, int64(2), back.Get("meta.version").Int())
	require.Len(t, back.Tasks, 2)
	assert.Equal(t, "\n", string(out[len(out)-1:]))
}

func TestDocumentWithoutTasks(t *testing.T) {
	doc, err := DecodeDocument([]byte(`{"meta":{}}`))
	require.NoError(t, err)
	assert.False(t, doc.HasTaskList())

	out, err := doc.WithTasks([]Task{{ID: 1, Title: "x"}}).Encode()
	require.NoError(t, err)
	back, err := DecodeDocument(out)
	require.NoError(t, err)
	assert.True(t, back.HasTaskList())
	assert.True(t, back.Get("meta").Exists())
}

func TestDocumentRejectsBadTasks(t *testing.T) {
	_, err := DecodeDocument([]byte(`{"tasks": {}}`))
	assert.Error(t, err)
	_, err = DecodeDocument([]byte(`{"tasks": [{"id": "a"}]}`))
	assert.Error(t, err)
}

func TestSortedTasks(t *testing.T) {
	doc := NewDocument([]Task{{ID: 3}, {ID: 1}, {ID: 2}})
	sorted := doc.SortedTasks()
	assert.Equal(t, []int{1, 2, 3}, []int{sorted[0].ID, sorted[1].ID, sorted[2].ID})
	assert.Equal(t, 3, doc.Tasks[0].ID)
}

func TestRefSet(t *testing.T) {
	doc := NewDocument([]Task{{ID: 1, Subtasks: []Subtask{{ID: 2}}}, {ID: 4}})
	set := doc.RefSet()
	assert.Len(t, set, 3)
	assert.True(t, set[SubtaskRef(1, 2)])
	assert.True(t, set[TaskRef(4)])
}
