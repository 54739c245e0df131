package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Document is one tasks.json file: an object holding a "tasks" array plus
// whatever else the project keeps there (usually "metadata").
type Document struct {
	Tasks []Task

	raw      rawObject
	hasTasks bool
}

// NewDocument returns a document holding tasks and nothing else.
func NewDocument(tasks []Task) *Document {
	return &Document{Tasks: tasks, hasTasks: true}
}

// HasTaskList reports whether the decoded object carried a "tasks" array.
func (d *Document) HasTaskList() bool {
	return d.hasTasks || d.Tasks != nil
}

// WithTasks returns a copy of d with its task list replaced. Top-level keys
// other than "tasks" are carried over.
func (d *Document) WithTasks(tasks []Task) *Document {
	return &Document{Tasks: tasks, raw: d.raw, hasTasks: true}
}

// Get reads a top-level document field by gjson path.
func (d *Document) Get(path string) gjson.Result {
	return d.raw.get(path)
}

// SetRaw returns a copy of d with a top-level field set to JSON value.
func (d *Document) SetRaw(path string, value []byte) (*Document, error) {
	raw, err := d.raw.setRaw(map[string]bool{"tasks": true}, path, value)
	if err != nil {
		return d, err
	}
	return &Document{Tasks: d.Tasks, raw: raw, hasTasks: d.hasTasks}, nil
}

// Task returns the task with the given id and its index.
func (d *Document) Task(id int) (Task, int, bool) {
	for i, t := range d.Tasks {
		if t.ID == id {
			return t, i, true
		}
	}
	return Task{}, -1, false
}

// MaxID returns the highest task id, or 0 for an empty document.
func (d *Document) MaxID() int {
	max := 0
	for _, t := range d.Tasks {
		if t.ID > max {
			max = t.ID
		}
	}
	return max
}

// Exists reports whether r resolves to a task or subtask in d.
func (d *Document) Exists(r Ref) bool {
	t, _, ok := d.Task(r.Task)
	if !ok {
		return false
	}
	if !r.IsSubtask() {
		return true
	}
	_, _, ok = t.Subtask(r.Subtask)
	return ok
}

// RefSet returns every reference that currently resolves in d.
func (d *Document) RefSet() map[Ref]bool {
	set := make(map[Ref]bool)
	for _, t := range d.Tasks {
		set[t.Ref()] = true
		for _, s := range t.Subtasks {
			set[s.Ref(t.ID)] = true
		}
	}
	return set
}

// SortedTasks returns the tasks ordered by id without touching d.
func (d *Document) SortedTasks() []Task {
	out := append([]Task(nil), d.Tasks...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MarshalJSON writes the task list into the original object.
func (d *Document) MarshalJSON() ([]byte, error) {
	tasks := d.Tasks
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := marshalCompact(tasks)
	if err != nil {
		return nil, fmt.Errorf("encode tasks: %w", err)
	}
	return sjson.SetRawBytes(d.raw.base(), "tasks", data)
}

// UnmarshalJSON decodes a document. A missing "tasks" key is accepted and
// reported through HasTaskList.
func (d *Document) UnmarshalJSON(data []byte) error {
	obj, err := parseObject(data, "tasks document")
	if err != nil {
		return err
	}
	res := obj.Get("tasks")
	doc := Document{raw: append(rawObject(nil), data...)}
	if res.Exists() && res.Type != gjson.Null {
		if !res.IsArray() {
			return fmt.Errorf("tasks must be an array")
		}
		items := res.Array()
		doc.Tasks = make([]Task, 0, len(items))
		doc.hasTasks = true
		for i, item := range items {
			var t Task
			if err := t.UnmarshalJSON([]byte(item.Raw)); err != nil {
				return fmt.Errorf("tasks[%d]: %w", i, err)
			}
			doc.Tasks = append(doc.Tasks, t)
		}
	}
	*d = doc
	return nil
}

// Encode renders d as two-space indented JSON with a trailing newline.
func (d *Document) Encode() ([]byte, error) {
	data, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// DecodeDocument parses a tasks document.
func DecodeDocument(data []byte) (*Document, error) {
	var d Document
	if err := d.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &d, nil
}

// DecodeTask parses a single task object, e.g. one returned by a model.
func DecodeTask(data []byte) (Task, error) {
	var t Task
	err := t.UnmarshalJSON(data)
	return t, err
}

// marshalCompact encodes v without HTML escaping so that task text
// containing <, > or & round-trips unchanged.
func marshalCompact(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
