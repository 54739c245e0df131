package taskmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/tmkit/taskmaster/internal/ai"
	"github.com/tmkit/taskmaster/internal/schema"
	"github.com/tmkit/taskmaster/internal/taskid"
	"github.com/tmkit/taskmaster/internal/telemetry"
	"github.com/tmkit/taskmaster/internal/types"
)

// Attributes are direct field updates. Empty strings and nil slices leave
// a field unchanged.
type Attributes struct {
	Title        string
	Description  string
	Details      string
	TestStrategy string
	Priority     types.Priority
	Status       types.Status
	Dependencies []types.Ref
	Assignees    []string
	Executor     types.Executor
	// Verifications replaces the verifications array; it must be a JSON
	// array of {description, passed}.
	Verifications json.RawMessage
	Metadata      []MetadataOp
}

func (a Attributes) empty() bool {
	return a.Title == "" && a.Description == "" && a.Details == "" && a.TestStrategy == "" &&
		a.Priority == "" && a.Status == "" && a.Dependencies == nil && a.Assignees == nil &&
		a.Executor == "" && len(a.Verifications) == 0 && len(a.Metadata) == 0
}

// UpdateTaskInput selects a task and what to change. Prompt asks the model
// to rewrite the task; Attributes are applied afterwards.
type UpdateTaskInput struct {
	ID     int
	Prompt string
	Attributes
}

// UpdateTaskResult reports the updated task.
type UpdateTaskResult struct {
	TaskID  int        `json:"taskId"`
	Task    types.Task `json:"updatedTask"`
	Message string     `json:"message"`
}

// UpdateTask rewrites one task. Done and completed tasks are locked
// against prompt-driven updates.
func (m *Manager) UpdateTask(ctx context.Context, in UpdateTaskInput) (*UpdateTaskResult, error) {
	if in.ID < 1 {
		return nil, errorf(CodeInvalidTaskID, "invalid task ID %d: must be a positive integer", in.ID)
	}
	if strings.TrimSpace(in.Prompt) == "" && in.Attributes.empty() {
		return nil, errorf(CodeMissingArgument, "no updates specified: provide a prompt or at least one field")
	}

	var res UpdateTaskResult
	err := m.mutate(ctx, "update_task", func(ctx context.Context, doc *types.Document, op *telemetry.Op) (*types.Document, error) {
		i, err := findTask(doc, in.ID)
		if err != nil {
			return nil, err
		}
		task := doc.Tasks[i].Clone()

		if strings.TrimSpace(in.Prompt) != "" {
			if task.Status.IsDone() {
				return nil, errorf(CodeTaskLocked, "task %d is already marked as done and cannot be updated", task.ID)
			}
			task, err = m.rewriteTask(ctx, task, in.Prompt)
			if err != nil {
				return nil, err
			}
		}

		task, err = applyTaskAttributes(task, in.Attributes)
		if err != nil {
			return nil, err
		}
		tasks := replaceTask(doc.Tasks, i, task)
		if err := checkDependencies(tasks, task.Ref(), in.Attributes.Dependencies); err != nil {
			return nil, err
		}

		task = m.pruneTask(tasks, i)
		res.TaskID = task.ID
		res.Task = task
		res.Message = fmt.Sprintf("Successfully updated task %d", task.ID)
		return doc.WithTasks(replaceTask(tasks, i, task)), nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info(res.Message)
	return &res, nil
}

// rewriteTask asks the model for a new version of task. The id is forced
// back to the original and completed subtasks are restored if the model
// changed or dropped them.
func (m *Manager) rewriteTask(ctx context.Context, task types.Task, prompt string) (types.Task, error) {
	current, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return task, wrap(CodeInternal, err)
	}
	raw, err := m.generateJSON(ctx, ai.KindUpdateTask, ai.UpdateTaskData{Prompt: prompt, TaskJSON: string(current)},
		fmt.Sprint(task.ID), schema.UpdatedTask)
	if err != nil {
		return task, err
	}
	if got := gjson.GetBytes(raw, "id").Int(); got != int64(task.ID) {
		m.log.Warn(fmt.Sprintf("AI changed task ID from %d to %d; restoring the original ID", task.ID, got))
		raw, err = sjson.SetBytes(raw, "id", task.ID)
		if err != nil {
			return task, wrap(CodeInternal, err)
		}
	}
	updated, err := types.DecodeTask(raw)
	if err != nil {
		return task, wrap(CodeInvalidAIResponse, fmt.Errorf("AI returned an unusable task: %w", err))
	}

	// Keep payload the model did not echo back: results, metadata and the like.
	merged := task.Clone()
	merged.Title = updated.Title
	merged.Description = updated.Description
	merged.Status = updated.Status
	if updated.Priority != "" {
		merged.Priority = updated.Priority
	}
	merged.Dependencies = updated.Dependencies
	var setErr error
	gjson.ParseBytes(raw).ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case "id", "title", "description", "status", "priority", "dependencies", "subtasks":
			return true
		}
		merged, setErr = merged.SetRaw(key.String(), []byte(value.Raw))
		return setErr == nil
	})
	if setErr != nil {
		return task, wrap(CodeInternal, setErr)
	}
	if gjson.GetBytes(raw, "subtasks").Exists() {
		merged.Subtasks = m.keepCompletedSubtasks(task, updated.Subtasks)
	}
	return merged, nil
}

func (m *Manager) keepCompletedSubtasks(orig types.Task, proposed []types.Subtask) []types.Subtask {
	out := make([]types.Subtask, 0, len(proposed))
	used := make(map[int]bool)
	done := make(map[int]types.Subtask)
	for _, s := range orig.Subtasks {
		if s.Status.IsDone() {
			done[s.ID] = s
		}
	}
	next := orig.MaxSubtaskID()
	for _, s := range proposed {
		if d, ok := done[s.ID]; ok {
			if !used[s.ID] {
				out = append(out, d)
				used[s.ID] = true
			}
			continue
		}
		if used[s.ID] {
			next++
			m.log.Warn(fmt.Sprintf("AI reused subtask ID %d; assigning %d", s.ID, next))
			s.ID = next
		}
		if s.ID > next {
			next = s.ID
		}
		used[s.ID] = true
		out = append(out, s)
	}
	for _, s := range orig.Subtasks {
		if _, ok := done[s.ID]; ok && !used[s.ID] {
			m.log.Warn(fmt.Sprintf("AI removed completed subtask %d.%d; restoring it", orig.ID, s.ID))
			out = append(out, s)
			used[s.ID] = true
		}
	}
	return out
}

// checkDependencies rejects directly supplied dependencies that point at
// the owner itself or at nothing.
func checkDependencies(tasks []types.Task, owner types.Ref, deps []types.Ref) error {
	doc := types.NewDocument(tasks)
	for _, d := range deps {
		if d == owner {
			return errorf(CodeDependency, "%s cannot depend on itself", owner)
		}
		if !doc.Exists(d) {
			return errorf(CodeDependency, "dependency %s of %s does not exist", d, owner)
		}
	}
	return nil
}

// pruneTask drops the references of tasks[i] and its subtasks that do not
// resolve, leaving other tasks alone.
func (m *Manager) pruneTask(tasks []types.Task, i int) types.Task {
	mapping := taskid.IdentityMapping(tasks)
	t := tasks[i].Clone()
	t.Dependencies, _ = m.engine.Resolve(t.Ref(), t.Dependencies, mapping)
	for j, s := range t.Subtasks {
		t.Subtasks[j].Dependencies, _ = m.engine.Resolve(s.Ref(t.ID), s.Dependencies, mapping)
	}
	return t
}

func applyTaskAttributes(t types.Task, a Attributes) (types.Task, error) {
	if a.Title != "" {
		t.Title = a.Title
	}
	if a.Description != "" {
		t.Description = a.Description
	}
	if a.Status != "" {
		t.Status = a.Status
	}
	if a.Priority != "" {
		if !a.Priority.IsValid() {
			return t, errorf(CodeInvalidInput, "invalid priority %q: must be high, medium or low", a.Priority)
		}
		t.Priority = a.Priority
	}
	if a.Dependencies != nil {
		t.Dependencies = append([]types.Ref{}, a.Dependencies...)
	}
	var err error
	t, err = applyPayload(t, a)
	if err != nil {
		return t, err
	}
	return applyMetadataOps(t, t.Ref().String(), a.Metadata)
}

// applyPayload sets the attributes that live in the opaque payload.
func applyPayload[T payload[T]](item T, a Attributes) (T, error) {
	set := func(key string, v interface{}) error {
		data, err := json.Marshal(v)
		if err != nil {
			return wrap(CodeInternal, err)
		}
		item, err = item.SetRaw(key, data)
		if err != nil {
			return wrap(CodeInternal, err)
		}
		return nil
	}
	if a.Details != "" {
		if err := set("details", a.Details); err != nil {
			return item, err
		}
	}
	if a.TestStrategy != "" {
		if err := set("testStrategy", a.TestStrategy); err != nil {
			return item, err
		}
	}
	if a.Assignees != nil {
		if err := set("assignees", a.Assignees); err != nil {
			return item, err
		}
	}
	if a.Executor != "" {
		if a.Executor != types.ExecutorAgent && a.Executor != types.ExecutorHuman {
			return item, errorf(CodeInvalidInput, "invalid executor %q: must be agent or human", a.Executor)
		}
		if err := set("executor", string(a.Executor)); err != nil {
			return item, err
		}
	}
	if len(a.Verifications) > 0 {
		v := gjson.ParseBytes(a.Verifications)
		if !gjson.ValidBytes(a.Verifications) || !v.IsArray() {
			return item, errorf(CodeInvalidInput, "verifications must be a JSON array")
		}
		for _, e := range v.Array() {
			if !e.Get("description").Exists() || !e.Get("passed").IsBool() {
				return item, errorf(CodeInvalidInput, "each verification needs a description and a boolean passed")
			}
		}
		var err error
		item, err = item.SetRaw("verifications", a.Verifications)
		if err != nil {
			return item, wrap(CodeInternal, err)
		}
	}
	return item, nil
}

// UpdateSubtaskInput selects a subtask and what to change. Prompt appends a
// timestamped, AI-written note to the subtask details.
type UpdateSubtaskInput struct {
	ID     types.Ref
	Prompt string
	Attributes
}

// UpdateSubtaskResult reports the updated subtask.
type UpdateSubtaskResult struct {
	SubtaskID string        `json:"subtaskId"`
	Subtask   types.Subtask `json:"updatedSubtask"`
	Message   string        `json:"message"`
}

// UpdateSubtask edits one subtask.
func (m *Manager) UpdateSubtask(ctx context.Context, in UpdateSubtaskInput) (*UpdateSubtaskResult, error) {
	if !in.ID.IsSubtask() {
		return nil, errorf(CodeInvalidTaskID, "invalid subtask ID %q: expected parentId.subtaskId", in.ID.String())
	}
	if strings.TrimSpace(in.Prompt) == "" && in.Attributes.empty() {
		return nil, errorf(CodeMissingArgument, "no updates specified: provide a prompt or at least one field")
	}
	if in.Priority != "" || in.Assignees != nil {
		return nil, errorf(CodeInvalidInput, "subtasks have no priority or assignees")
	}

	var res UpdateSubtaskResult
	err := m.mutate(ctx, "update_subtask", func(ctx context.Context, doc *types.Document, op *telemetry.Op) (*types.Document, error) {
		ti, si, err := findSubtask(doc, in.ID)
		if err != nil {
			return nil, err
		}
		parent := doc.Tasks[ti].Clone()
		sub := parent.Subtasks[si]

		if strings.TrimSpace(in.Prompt) != "" {
			text, err := m.generate(ctx, ai.KindUpdateSubtask, ai.UpdateSubtaskData{
				Prompt:      in.Prompt,
				SubtaskID:   in.ID.String(),
				ParentTitle: parent.Title,
				Title:       sub.Title,
				Details:     sub.Details(),
			}, in.ID.String())
			if err != nil {
				return nil, err
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return nil, errorf(CodeInvalidAIResponse, "AI returned an empty update for subtask %s", in.ID)
			}
			stamp := m.timestamp()
			note := fmt.Sprintf("<info added on %s>\n%s\n</info added on %s>", stamp, text, stamp)
			details := sub.Details()
			if details != "" {
				details += "\n\n"
			}
			sub, err = sub.Set("details", details+note)
			if err != nil {
				return nil, wrap(CodeInternal, err)
			}
		}

		if in.Title != "" {
			sub.Title = in.Title
		}
		if in.Description != "" {
			sub.Description = in.Description
		}
		if in.Status != "" {
			sub.Status = in.Status
		}
		if in.Dependencies != nil {
			sub.Dependencies = append([]types.Ref{}, in.Dependencies...)
		}
		sub, err = applyPayload(sub, in.Attributes)
		if err != nil {
			return nil, err
		}
		sub, err = applyMetadataOps(sub, in.ID.String(), in.Metadata)
		if err != nil {
			return nil, err
		}
		parent.Subtasks[si] = sub
		tasks := replaceTask(doc.Tasks, ti, parent)
		if err := checkDependencies(tasks, in.ID, in.Dependencies); err != nil {
			return nil, err
		}

		res.SubtaskID = in.ID.String()
		res.Subtask = sub
		res.Message = fmt.Sprintf("Successfully updated subtask %s", in.ID)
		return doc.WithTasks(tasks), nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info(res.Message)
	return &res, nil
}
