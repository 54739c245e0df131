package taskmgr

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/tmkit/taskmaster/internal/ai"
	"github.com/tmkit/taskmaster/internal/schema"
	"github.com/tmkit/taskmaster/internal/telemetry"
	"github.com/tmkit/taskmaster/internal/types"
)

// AddTaskInput describes a new task. Either Prompt or Title and Description
// must be set; manual fields win over generated ones.
type AddTaskInput struct {
	Prompt       string
	Title        string
	Description  string
	Details      string
	TestStrategy string
	Priority     types.Priority
	Dependencies []types.Ref
	Assignees    []string
	Executor     types.Executor
	// ID inserts the task at this id, shifting later tasks up. Zero appends.
	ID int
}

// AddTaskResult reports the created task.
type AddTaskResult struct {
	NewTaskID           int         `json:"newTaskId"`
	Task                types.Task  `json:"task"`
	Shifted             int         `json:"shifted"`
	DroppedDependencies []types.Ref `json:"droppedDependencies,omitempty"`
	Message             string      `json:"message"`
}

// AddTask creates a task, from the manual fields or from an AI prompt.
func (m *Manager) AddTask(ctx context.Context, in AddTaskInput) (*AddTaskResult, error) {
	manual := in.Title != "" || in.Description != ""
	switch {
	case !manual && strings.TrimSpace(in.Prompt) == "":
		return nil, errorf(CodeMissingArgument, "either a prompt or a title and description is required")
	case manual && (in.Title == "" || in.Description == ""):
		return nil, errorf(CodeMissingArgument, "manual task creation requires both a title and a description")
	case in.ID < 0:
		return nil, errorf(CodeInvalidPosition, "invalid task position %d: must be a positive integer", in.ID)
	}
	executor := in.Executor
	if executor == "" {
		executor = types.ExecutorAgent
	}
	if executor != types.ExecutorAgent && executor != types.ExecutorHuman {
		return nil, errorf(CodeInvalidInput, "invalid executor %q: must be agent or human", executor)
	}
	priority := in.Priority
	if priority != "" && !priority.IsValid() {
		m.log.Warn(fmt.Sprintf("Invalid priority %q, using default medium", priority))
		priority = ""
	}

	var res AddTaskResult
	err := m.mutate(ctx, "add_task", func(ctx context.Context, doc *types.Document, op *telemetry.Op) (*types.Document, error) {
		tasks := doc.Tasks
		newID := doc.MaxID() + 1
		deps := in.Dependencies
		if in.ID > 0 {
			newID = in.ID
			if _, _, taken := doc.Task(in.ID); taken {
				r, err := m.engine.InsertAt(tasks, in.ID)
				if err != nil {
					return nil, wrap(CodeInvalidPosition, err)
				}
				op.Engine(ctx, "insert", r.Shifted, 0)
				tasks = r.Tasks
				res.Shifted = r.Shifted
				deps = make([]types.Ref, 0, len(in.Dependencies))
				for _, d := range in.Dependencies {
					nd, ok := r.Mapping.Lookup(d)
					if !ok {
						m.log.Warn(fmt.Sprintf("Dependency %s does not exist, removing it from task %d", d, newID))
						res.DroppedDependencies = append(res.DroppedDependencies, d)
						continue
					}
					deps = append(deps, nd)
				}
			}
		}

		fields := struct {
			title, description, details, testStrategy string
			priority                                  types.Priority
			deps                                      []types.Ref
		}{in.Title, in.Description, in.Details, in.TestStrategy, priority, deps}

		if !manual {
			depNames := make([]string, len(deps))
			for i, d := range deps {
				depNames[i] = d.String()
			}
			raw, err := m.generateJSON(ctx, ai.KindAddTask, ai.AddTaskData{
				Prompt:       in.Prompt,
				NewID:        newID,
				Dependencies: depNames,
				Context:      taskContext(tasks),
			}, fmt.Sprint(newID), schema.AITask)
			if err != nil {
				return nil, err
			}
			gen := gjson.ParseBytes(raw)
			fields.title = gen.Get("title").String()
			fields.description = gen.Get("description").String()
			fields.details = gen.Get("details").String()
			fields.testStrategy = gen.Get("testStrategy").String()
			if fields.priority == "" {
				if p := types.Priority(gen.Get("priority").String()); p.IsValid() {
					fields.priority = p
				}
			}
			if len(in.Dependencies) == 0 {
				for _, d := range gen.Get("dependencies").Array() {
					if r, err := types.ParseRef(d.Raw); err == nil {
						fields.deps = append(fields.deps, r)
					}
				}
			}
		}
		if fields.priority == "" {
			fields.priority = types.PriorityMedium
		}

		probe := types.NewDocument(tasks)
		kept := make([]types.Ref, 0, len(fields.deps))
		seen := make(map[types.Ref]bool)
		for _, d := range fields.deps {
			if seen[d] {
				continue
			}
			seen[d] = true
			if !probe.Exists(d) {
				m.log.Warn(fmt.Sprintf("Dependency %s does not exist, removing it from task %d", d, newID))
				res.DroppedDependencies = append(res.DroppedDependencies, d)
				continue
			}
			kept = append(kept, d)
		}

		assignees := in.Assignees
		if assignees == nil {
			assignees = []string{}
		}
		task, err := buildTask(
			field{"id", newID},
			field{"title", fields.title},
			field{"description", fields.description},
			field{"details", fields.details},
			field{"testStrategy", fields.testStrategy},
			field{"status", string(types.StatusPending)},
			field{"dependencies", kept},
			field{"priority", string(fields.priority)},
			field{"assignees", assignees},
			field{"executor", string(executor)},
			field{"subtasks", rawJSON("[]")},
		)
		if err != nil {
			return nil, wrap(CodeInternal, err)
		}

		out := make([]types.Task, 0, len(tasks)+1)
		out = append(out, tasks...)
		out = append(out, task)
		res.NewTaskID = newID
		res.Task = task
		res.Message = fmt.Sprintf("Successfully added new task #%d", newID)
		return doc.WithTasks(sortedByID(out)), nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info(res.Message)
	return &res, nil
}

// taskContext lists existing tasks for the add-task prompt.
func taskContext(tasks []types.Task) string {
	var b strings.Builder
	for _, t := range tasks {
		fmt.Fprintf(&b, "- Task %d: %s (%s)\n", t.ID, ai.Truncate(t.Title, 80), t.Status)
	}
	return b.String()
}

// AddSubtaskInput describes a new subtask.
type AddSubtaskInput struct {
	Parent       int
	Title        string
	Description  string
	Details      string
	Status       types.Status
	Dependencies []types.Ref
}

// AddSubtask appends a subtask to Parent with the next free subtask id.
func (m *Manager) AddSubtask(ctx context.Context, in AddSubtaskInput) (types.Ref, error) {
	if in.Parent < 1 {
		return types.Ref{}, errorf(CodeMissingArgument, "parent task ID is required")
	}
	if in.Title == "" {
		return types.Ref{}, errorf(CodeMissingArgument, "subtask title is required")
	}
	status := in.Status
	if status == "" {
		status = types.StatusPending
	}

	var ref types.Ref
	err := m.mutate(ctx, "add_subtask", func(ctx context.Context, doc *types.Document, op *telemetry.Op) (*types.Document, error) {
		i, err := findTask(doc, in.Parent)
		if err != nil {
			return nil, err
		}
		parent := doc.Tasks[i].Clone()
		ref = types.SubtaskRef(parent.ID, parent.MaxSubtaskID()+1)
		for _, d := range in.Dependencies {
			if d == ref || !doc.Exists(d) {
				return nil, errorf(CodeDependency, "dependency %s does not exist", d)
			}
		}
		sub, err := buildSubtask(
			field{"id", ref.Subtask},
			field{"title", in.Title},
			field{"description", in.Description},
			field{"details", in.Details},
			field{"status", string(status)},
			field{"dependencies", in.Dependencies},
		)
		if err != nil {
			return nil, wrap(CodeInternal, err)
		}
		parent.Subtasks = append(parent.Subtasks, sub)
		return doc.WithTasks(replaceTask(doc.Tasks, i, parent)), nil
	})
	if err != nil {
		return types.Ref{}, err
	}
	m.log.Info(fmt.Sprintf("Added subtask %s", ref))
	return ref, nil
}
