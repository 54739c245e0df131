// Package types defines the task document model for the tm task tracker.
//
// Tasks and subtasks decode the fields the tool reasons about (id, title,
// status, dependencies, subtasks) into struct fields. Every other key stays
// in the original JSON object and is written back byte for byte, in its
// original position, when the task is encoded again.
package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrKnownField is returned when a raw field edit targets a decoded field.
var ErrKnownField = errors.New("field is managed by the task model")

var (
	knownTaskKeys = map[string]bool{
		"id": true, "title": true, "description": true, "status": true,
		"priority": true, "dependencies": true, "subtasks": true,
	}
	knownSubtaskKeys = map[string]bool{
		"id": true, "title": true, "description": true, "status": true,
		"dependencies": true,
	}
)

// Task is a top-level unit of work.
type Task struct {
	ID           int
	Title        string
	Description  string
	Status       Status
	Priority     Priority
	Dependencies []Ref
	Subtasks     []Subtask

	raw rawObject
}

// Subtask is owned by exactly one Task. Its ID is unique only within that
// parent.
type Subtask struct {
	ID           int
	Title        string
	Description  string
	Status       Status
	Dependencies []Ref

	raw rawObject
}

// Ref returns the reference other tasks use to depend on t.
func (t Task) Ref() Ref { return TaskRef(t.ID) }

// Ref returns the reference to s as a child of parent.
func (s Subtask) Ref(parent int) Ref { return SubtaskRef(parent, s.ID) }

// Clone returns a copy of t that shares no slices with it.
func (t Task) Clone() Task {
	c := t
	c.Dependencies = cloneRefs(t.Dependencies)
	if t.Subtasks != nil {
		c.Subtasks = make([]Subtask, len(t.Subtasks))
		for i, s := range t.Subtasks {
			c.Subtasks[i] = s.Clone()
		}
	}
	return c
}

// Clone returns a copy of s that shares no slices with it.
func (s Subtask) Clone() Subtask {
	c := s
	c.Dependencies = cloneRefs(s.Dependencies)
	return c
}

// Subtask returns the subtask with the given id and its index.
func (t Task) Subtask(id int) (Subtask, int, bool) {
	for i, s := range t.Subtasks {
		if s.ID == id {
			return s, i, true
		}
	}
	return Subtask{}, -1, false
}

// MaxSubtaskID returns the highest subtask id, or 0 when there are none.
func (t Task) MaxSubtaskID() int {
	max := 0
	for _, s := range t.Subtasks {
		if s.ID > max {
			max = s.ID
		}
	}
	return max
}

// Get reads a payload field by gjson path, e.g. "details" or
// "metadata.fields". Decoded fields must be read from the struct instead.
func (t Task) Get(path string) gjson.Result { return t.raw.get(path) }

// Get reads a payload field by gjson path.
func (s Subtask) Get(path string) gjson.Result { return s.raw.get(path) }

// Details returns the free-form implementation notes.
func (t Task) Details() string { return t.raw.get("details").String() }

// Details returns the free-form implementation notes.
func (s Subtask) Details() string { return s.raw.get("details").String() }

// TestStrategy returns the verification approach text.
func (t Task) TestStrategy() string { return t.raw.get("testStrategy").String() }

// Set returns a copy of t with the payload field at path set to value.
func (t Task) Set(path string, value interface{}) (Task, error) {
	raw, err := t.raw.set(knownTaskKeys, path, value)
	if err != nil {
		return t, err
	}
	t.raw = raw
	return t, nil
}

// SetRaw is Set for a value that is already JSON.
func (t Task) SetRaw(path string, value []byte) (Task, error) {
	raw, err := t.raw.setRaw(knownTaskKeys, path, value)
	if err != nil {
		return t, err
	}
	t.raw = raw
	return t, nil
}

// Delete returns a copy of t without the payload field at path.
func (t Task) Delete(path string) (Task, error) {
	raw, err := t.raw.delete(knownTaskKeys, path)
	if err != nil {
		return t, err
	}
	t.raw = raw
	return t, nil
}

// Set returns a copy of s with the payload field at path set to value.
func (s Subtask) Set(path string, value interface{}) (Subtask, error) {
	raw, err := s.raw.set(knownSubtaskKeys, path, value)
	if err != nil {
		return s, err
	}
	s.raw = raw
	return s, nil
}

// SetRaw is Set for a value that is already JSON.
func (s Subtask) SetRaw(path string, value []byte) (Subtask, error) {
	raw, err := s.raw.setRaw(knownSubtaskKeys, path, value)
	if err != nil {
		return s, err
	}
	s.raw = raw
	return s, nil
}

// Delete returns a copy of s without the payload field at path.
func (s Subtask) Delete(path string) (Subtask, error) {
	raw, err := s.raw.delete(knownSubtaskKeys, path)
	if err != nil {
		return s, err
	}
	s.raw = raw
	return s, nil
}

// MarshalJSON writes the decoded fields over the original object so that
// untouched keys keep their bytes and order.
func (t Task) MarshalJSON() ([]byte, error) {
	e := newEncoder(t.raw)
	e.set("id", t.ID, true)
	e.set("title", t.Title, t.Title != "")
	e.set("description", t.Description, t.Description != "")
	e.set("status", string(t.Status), t.Status != "")
	e.set("priority", string(t.Priority), t.Priority != "")
	e.setRefs("dependencies", t.Dependencies, len(t.Dependencies) > 0 || e.fresh)
	if t.Subtasks != nil || e.has("subtasks") {
		subs := t.Subtasks
		if subs == nil {
			subs = []Subtask{}
		}
		e.setJSON("subtasks", subs)
	}
	return e.bytes()
}

// UnmarshalJSON decodes a task object. Malformed ids and references are
// rejected here so nothing downstream sees them.
func (t *Task) UnmarshalJSON(data []byte) error {
	obj, err := parseObject(data, "task")
	if err != nil {
		return err
	}
	id, err := parseID(obj.Get("id"))
	if err != nil {
		return fmt.Errorf("task id: %w", err)
	}
	deps, err := parseRefs(obj.Get("dependencies"))
	if err != nil {
		return fmt.Errorf("task %d dependencies: %w", id, err)
	}
	var subs []Subtask
	if res := obj.Get("subtasks"); res.Exists() && res.Type != gjson.Null {
		if !res.IsArray() {
			return fmt.Errorf("task %d: subtasks must be an array", id)
		}
		subs = make([]Subtask, 0, len(res.Array()))
		for _, item := range res.Array() {
			var s Subtask
			if err := s.UnmarshalJSON([]byte(item.Raw)); err != nil {
				return fmt.Errorf("task %d: %w", id, err)
			}
			subs = append(subs, s)
		}
	}
	*t = Task{
		ID:           id,
		Title:        obj.Get("title").String(),
		Description:  obj.Get("description").String(),
		Status:       Status(obj.Get("status").String()),
		Priority:     Priority(obj.Get("priority").String()),
		Dependencies: deps,
		Subtasks:     subs,
		raw:          append(rawObject(nil), data...),
	}
	return nil
}

// MarshalJSON writes the decoded fields over the original object.
func (s Subtask) MarshalJSON() ([]byte, error) {
	e := newEncoder(s.raw)
	e.set("id", s.ID, true)
	e.set("title", s.Title, s.Title != "")
	e.set("description", s.Description, s.Description != "")
	e.set("status", string(s.Status), s.Status != "")
	e.setRefs("dependencies", s.Dependencies, len(s.Dependencies) > 0 || e.fresh)
	return e.bytes()
}

// UnmarshalJSON decodes a subtask object.
func (s *Subtask) UnmarshalJSON(data []byte) error {
	obj, err := parseObject(data, "subtask")
	if err != nil {
		return err
	}
	id, err := parseID(obj.Get("id"))
	if err != nil {
		return fmt.Errorf("subtask id: %w", err)
	}
	deps, err := parseRefs(obj.Get("dependencies"))
	if err != nil {
		return fmt.Errorf("subtask %d dependencies: %w", id, err)
	}
	*s = Subtask{
		ID:           id,
		Title:        obj.Get("title").String(),
		Description:  obj.Get("description").String(),
		Status:       Status(obj.Get("status").String()),
		Dependencies: deps,
		raw:          append(rawObject(nil), data...),
	}
	return nil
}

// rawObject is the JSON object a task or subtask was decoded from. It is
// never modified in place; edits return a new slice.
type rawObject []byte

func (o rawObject) get(path string) gjson.Result {
	if len(o) == 0 {
		return gjson.Result{}
	}
	return gjson.GetBytes(o, path)
}

func (o rawObject) base() []byte {
	if len(o) == 0 {
		return []byte("{}")
	}
	return append([]byte(nil), o...)
}

func (o rawObject) set(known map[string]bool, path string, value interface{}) (rawObject, error) {
	if err := checkPayloadPath(known, path); err != nil {
		return o, err
	}
	out, err := sjson.SetBytes(o.base(), path, value)
	return out, err
}

func (o rawObject) setRaw(known map[string]bool, path string, value []byte) (rawObject, error) {
	if err := checkPayloadPath(known, path); err != nil {
		return o, err
	}
	if !gjson.ValidBytes(value) {
		return o, fmt.Errorf("value for %s is not valid JSON", path)
	}
	out, err := sjson.SetRawBytes(o.base(), path, value)
	return out, err
}

func (o rawObject) delete(known map[string]bool, path string) (rawObject, error) {
	if err := checkPayloadPath(known, path); err != nil {
		return o, err
	}
	if !o.get(path).Exists() {
		return o, nil
	}
	out, err := sjson.DeleteBytes(o.base(), path)
	return out, err
}

func checkPayloadPath(known map[string]bool, path string) error {
	top, _, _ := strings.Cut(path, ".")
	if top == "" {
		return fmt.Errorf("empty field path")
	}
	if known[top] {
		return fmt.Errorf("%w: %s", ErrKnownField, top)
	}
	return nil
}

type encoder struct {
	out   []byte
	fresh bool
	err   error
}

func newEncoder(raw rawObject) *encoder {
	return &encoder{out: raw.base(), fresh: len(raw) == 0}
}

func (e *encoder) has(key string) bool {
	return gjson.GetBytes(e.out, key).Exists()
}

// set writes key when always is true or when the original object already
// carried it. Callers pass "value is non-empty" as always.
func (e *encoder) set(key string, v interface{}, always bool) {
	if e.err != nil {
		return
	}
	if !always && !e.has(key) {
		return
	}
	e.out, e.err = sjson.SetBytes(e.out, key, v)
}

func (e *encoder) setRefs(key string, refs []Ref, always bool) {
	if refs == nil {
		refs = []Ref{}
	}
	if !always && len(refs) == 0 && !e.has(key) {
		return
	}
	e.setJSON(key, refs)
}

func (e *encoder) setJSON(key string, v interface{}) {
	if e.err != nil {
		return
	}
	data, err := marshalCompact(v)
	if err != nil {
		e.err = fmt.Errorf("encode %s: %w", key, err)
		return
	}
	e.out, e.err = sjson.SetRawBytes(e.out, key, data)
}

func (e *encoder) bytes() ([]byte, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.out, nil
}

func parseObject(data []byte, what string) (gjson.Result, error) {
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("%s is not valid JSON", what)
	}
	obj := gjson.ParseBytes(data)
	if !obj.IsObject() {
		return gjson.Result{}, fmt.Errorf("%s must be a JSON object", what)
	}
	return obj, nil
}

func parseID(res gjson.Result) (int, error) {
	if !res.Exists() {
		return 0, fmt.Errorf("missing")
	}
	if res.Type != gjson.Number {
		return 0, fmt.Errorf("%s is not an integer", res.Raw)
	}
	id, err := strconv.Atoi(res.Raw)
	if err != nil {
		return 0, fmt.Errorf("%s is not an integer", res.Raw)
	}
	if id < 1 {
		return 0, fmt.Errorf("%d is not positive", id)
	}
	return id, nil
}

func parseRefs(res gjson.Result) ([]Ref, error) {
	if !res.Exists() || res.Type == gjson.Null {
		return nil, nil
	}
	if !res.IsArray() {
		return nil, fmt.Errorf("must be an array")
	}
	items := res.Array()
	refs := make([]Ref, 0, len(items))
	for _, item := range items {
		r, err := refFromResult(item)
		if err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, nil
}

func cloneRefs(refs []Ref) []Ref {
	if refs == nil {
		return nil
	}
	out := make([]Ref, len(refs))
	copy(out, refs)
	return out
}
