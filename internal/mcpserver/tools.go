package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tmkit/taskmaster/internal/taskmgr"
	"github.com/tmkit/taskmaster/internal/types"
)

type tool struct {
	def    mcp.Tool
	handle handlerFunc
}

// location adds the arguments that pick the tasks file.
func location() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("projectRoot", mcp.Description("Absolute path of the project root. Defaults to the server's project.")),
		mcp.WithString("tag", mcp.Description("Task group under .taskmaster/. Defaults to the configured group.")),
		mcp.WithString("file", mcp.Description("Tasks file path relative to the project root. Overrides tag.")),
	}
}

func newTool(name, desc string, opts ...mcp.ToolOption) mcp.Tool {
	all := append([]mcp.ToolOption{mcp.WithDescription(desc)}, opts...)
	return mcp.NewTool(name, append(all, location()...)...)
}

func attributeOptions(subtask bool) []mcp.ToolOption {
	opts := []mcp.ToolOption{
		mcp.WithString("prompt", mcp.Description("Instructions for an AI-assisted update.")),
		mcp.WithString("title", mcp.Description("New title.")),
		mcp.WithString("description", mcp.Description("New description.")),
		mcp.WithString("details", mcp.Description("New implementation details.")),
		mcp.WithString("testStrategy", mcp.Description("New test strategy.")),
		mcp.WithString("status", mcp.Description("New status.")),
		mcp.WithString("dependencies", mcp.Description("Replacement dependency list, e.g. \"1, 2.3\".")),
		mcp.WithString("executor", mcp.Description("agent or human."), mcp.Enum("agent", "human")),
		mcp.WithArray("verifications", mcp.Description("Replacement verifications: [{description, passed}]."),
			mcp.Items(map[string]interface{}{"type": "object"})),
		mcp.WithArray("metadata", mcp.Description("Metadata field operations: [{op: add|set|delete, key, label, type, description, required, enum, value}]."),
			mcp.Items(map[string]interface{}{"type": "object"})),
	}
	if !subtask {
		opts = append(opts,
			mcp.WithString("priority", mcp.Description("high, medium or low."), mcp.Enum("high", "medium", "low")),
			mcp.WithArray("assignees", mcp.Description("Replacement assignee list."), mcp.Items(map[string]interface{}{"type": "string"})),
		)
	}
	return opts
}

func attributesArg(req mcp.CallToolRequest) (taskmgr.Attributes, error) {
	a := taskmgr.Attributes{
		Title:        req.GetString("title", ""),
		Description:  req.GetString("description", ""),
		Details:      req.GetString("details", ""),
		TestStrategy: req.GetString("testStrategy", ""),
		Priority:     types.Priority(req.GetString("priority", "")),
		Status:       types.Status(req.GetString("status", "")),
		Executor:     types.Executor(req.GetString("executor", "")),
	}
	var err error
	if a.Dependencies, err = refsArg(req, "dependencies"); err != nil {
		return a, err
	}
	if a.Assignees, err = stringsArg(req, "assignees"); err != nil {
		return a, err
	}
	if a.Verifications, err = rawArg(req, "verifications"); err != nil {
		return a, err
	}
	if _, err = decodeArg(req, "metadata", &a.Metadata); err != nil {
		return a, err
	}
	return a, nil
}

func (s *Server) tools() []tool {
	return []tool{
		{
			def: newTool("add_task", "Add a task from a prompt or from a title and description. With id, insert it at that position and shift later tasks.",
				mcp.WithString("prompt", mcp.Description("What the task should accomplish; the AI writes the task.")),
				mcp.WithString("title", mcp.Description("Task title (manual creation).")),
				mcp.WithString("description", mcp.Description("Task description (manual creation).")),
				mcp.WithString("details", mcp.Description("Implementation details.")),
				mcp.WithString("testStrategy", mcp.Description("Test strategy.")),
				mcp.WithString("priority", mcp.Description("high, medium or low."), mcp.Enum("high", "medium", "low")),
				mcp.WithString("dependencies", mcp.Description("Comma-separated ids this task depends on.")),
				mcp.WithArray("assignees", mcp.Description("Assignees."), mcp.Items(map[string]interface{}{"type": "string"})),
				mcp.WithString("executor", mcp.Description("agent (default) or human."), mcp.Enum("agent", "human")),
				mcp.WithNumber("id", mcp.Description("Position to insert at. Omit to append.")),
			),
			handle: func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error) {
				in := taskmgr.AddTaskInput{
					Prompt:       req.GetString("prompt", ""),
					Title:        req.GetString("title", ""),
					Description:  req.GetString("description", ""),
					Details:      req.GetString("details", ""),
					TestStrategy: req.GetString("testStrategy", ""),
					Priority:     types.Priority(req.GetString("priority", "")),
					Executor:     types.Executor(req.GetString("executor", "")),
					ID:           req.GetInt("id", 0),
				}
				var err error
				if in.Dependencies, err = refsArg(req, "dependencies"); err != nil {
					return nil, err
				}
				if in.Assignees, err = stringsArg(req, "assignees"); err != nil {
					return nil, err
				}
				return m.AddTask(ctx, in)
			},
		},
		{
			def: newTool("remove_task", "Remove tasks or subtasks. Remaining task ids are compacted and references follow.",
				mcp.WithString("id", mcp.Required(), mcp.Description("Comma-separated task or subtask ids, e.g. \"5\" or \"5,6.2\".")),
			),
			handle: func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error) {
				refs, err := taskmgr.ParseIDList(idArg(req, "id"))
				if err != nil {
					return nil, err
				}
				return m.RemoveTasks(ctx, refs)
			},
		},
		{
			def: newTool("clear_subtasks", "Remove all subtasks from the given tasks, or from every task.",
				mcp.WithString("id", mcp.Description("Comma-separated task ids.")),
				mcp.WithBoolean("all", mcp.Description("Clear subtasks from every task.")),
			),
			handle: func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error) {
				ids := idArg(req, "id")
				if req.GetBool("all", false) {
					ids = "all"
				}
				if ids == "" {
					return nil, missing("either id or all")
				}
				results, err := m.ClearSubtasks(ctx, ids)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"results": results}, nil
			},
		},
		{
			def: newTool("add_subtask", "Append a subtask to a task with the next free subtask id.",
				mcp.WithString("id", mcp.Required(), mcp.Description("Parent task id.")),
				mcp.WithString("title", mcp.Required(), mcp.Description("Subtask title.")),
				mcp.WithString("description", mcp.Description("Subtask description.")),
				mcp.WithString("details", mcp.Description("Implementation details.")),
				mcp.WithString("status", mcp.Description("Initial status. Defaults to pending.")),
				mcp.WithString("dependencies", mcp.Description("Comma-separated ids, e.g. \"2, 4.1\".")),
			),
			handle: func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error) {
				parent, err := taskmgr.ParseID(idArg(req, "id"))
				if err != nil {
					return nil, err
				}
				if parent.IsSubtask() {
					return nil, &taskmgr.Error{Code: taskmgr.CodeInvalidTaskID, Err: fmt.Errorf("parent %s must be a task id", parent)}
				}
				in := taskmgr.AddSubtaskInput{
					Parent:      parent.Task,
					Title:       req.GetString("title", ""),
					Description: req.GetString("description", ""),
					Details:     req.GetString("details", ""),
					Status:      types.Status(req.GetString("status", "")),
				}
				if in.Dependencies, err = refsArg(req, "dependencies"); err != nil {
					return nil, err
				}
				ref, err := m.AddSubtask(ctx, in)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"id": ref.String(), "message": fmt.Sprintf("Added subtask %s", ref)}, nil
			},
		},
		{
			def: newTool("renumber_tasks", "Renumber tasks to 1..N and subtasks to 1..M, rewriting every dependency.",
				mcp.WithBoolean("keepOrder", mcp.Description("Number tasks in file order instead of by current id.")),
			),
			handle: func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error) {
				return m.Renumber(ctx, req.GetBool("keepOrder", false))
			},
		},
		{
			def: newTool("add_result", "Append an {action, updateTime, result} entry to a task or subtask.",
				mcp.WithString("id", mcp.Required(), mcp.Description("Task id (\"15\") or subtask id (\"15.2\").")),
				mcp.WithString("action", mcp.Required(), mcp.Description("What was done.")),
				mcp.WithString("result", mcp.Required(), mcp.Description("What came of it.")),
				mcp.WithString("updateTime", mcp.Description("RFC3339 time of the entry. Defaults to now.")),
			),
			handle: func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error) {
				var at time.Time
				if v := req.GetString("updateTime", ""); v != "" {
					t, err := time.Parse(time.RFC3339, v)
					if err != nil {
						return nil, &taskmgr.Error{Code: taskmgr.CodeInvalidInput, Err: err}
					}
					at = t
				}
				return m.AddResult(ctx, idArg(req, "id"), req.GetString("action", ""), req.GetString("result", ""), at)
			},
		},
		{
			def: newTool("update_task", "Update a task directly or with an AI prompt. Tasks marked done cannot be updated by prompt.",
				append([]mcp.ToolOption{mcp.WithString("id", mcp.Required(), mcp.Description("Task id."))}, attributeOptions(false)...)...,
			),
			handle: func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error) {
				ref, err := taskmgr.ParseID(idArg(req, "id"))
				if err != nil {
					return nil, err
				}
				if ref.IsSubtask() {
					return nil, &taskmgr.Error{Code: taskmgr.CodeInvalidTaskID, Err: fmt.Errorf("%s is a subtask id; use update_subtask", ref)}
				}
				attrs, err := attributesArg(req)
				if err != nil {
					return nil, err
				}
				return m.UpdateTask(ctx, taskmgr.UpdateTaskInput{ID: ref.Task, Prompt: req.GetString("prompt", ""), Attributes: attrs})
			},
		},
		{
			def: newTool("update_subtask", "Update a subtask directly, or append AI-written notes to its details.",
				append([]mcp.ToolOption{mcp.WithString("id", mcp.Required(), mcp.Description("Subtask id, e.g. \"5.2\"."))}, attributeOptions(true)...)...,
			),
			handle: func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error) {
				ref, err := taskmgr.ParseID(idArg(req, "id"))
				if err != nil {
					return nil, err
				}
				attrs, err := attributesArg(req)
				if err != nil {
					return nil, err
				}
				return m.UpdateSubtask(ctx, taskmgr.UpdateSubtaskInput{ID: ref, Prompt: req.GetString("prompt", ""), Attributes: attrs})
			},
		},
		{
			def: newTool("set_task_status", "Set the status of tasks or subtasks. Marking a task done marks its subtasks done.",
				mcp.WithString("id", mcp.Required(), mcp.Description("Comma-separated task or subtask ids.")),
				mcp.WithString("status", mcp.Required(), mcp.Description("New status, e.g. pending, in-progress, done.")),
			),
			handle: func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error) {
				return m.SetStatus(ctx, idArg(req, "id"), types.Status(req.GetString("status", "")))
			},
		},
		{
			def: newTool("get_tasks", "List tasks, optionally filtered by status.",
				mcp.WithString("status", mcp.Description("Comma-separated statuses to keep.")),
				mcp.WithBoolean("withSubtasks", mcp.Description("Include subtasks.")),
			),
			handle: func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error) {
				return m.List(ctx, taskmgr.ListOptions{Status: req.GetString("status", ""), WithSubtasks: req.GetBool("withSubtasks", false)})
			},
		},
		{
			def: newTool("get_task", "Show one task or subtask.",
				mcp.WithString("id", mcp.Required(), mcp.Description("Task or subtask id.")),
			),
			handle: func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error) {
				ref, err := taskmgr.ParseID(idArg(req, "id"))
				if err != nil {
					return nil, err
				}
				return m.Show(ctx, ref)
			},
		},
		{
			def: newTool("next_task", "Find the next task to work on: pending, dependencies done, highest priority first."),
			handle: func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error) {
				return m.Next(ctx)
			},
		},
		{
			def: newTool("add_dependency", "Make a task or subtask depend on another. Cycles are rejected.",
				mcp.WithString("id", mcp.Required(), mcp.Description("The dependent task or subtask.")),
				mcp.WithString("dependsOn", mcp.Required(), mcp.Description("The task or subtask it depends on.")),
			),
			handle: func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error) {
				id, dep, err := edgeArgs(req)
				if err != nil {
					return nil, err
				}
				return m.AddDependency(ctx, id, dep)
			},
		},
		{
			def: newTool("remove_dependency", "Remove a dependency edge.",
				mcp.WithString("id", mcp.Required(), mcp.Description("The dependent task or subtask.")),
				mcp.WithString("dependsOn", mcp.Required(), mcp.Description("The dependency to remove.")),
			),
			handle: func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error) {
				id, dep, err := edgeArgs(req)
				if err != nil {
					return nil, err
				}
				return m.RemoveDependency(ctx, id, dep)
			},
		},
		{
			def: newTool("validate_dependencies", "Report self references, missing targets, duplicates and cycles without changing anything."),
			handle: func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error) {
				return m.ValidateDependencies(ctx)
			},
		},
		{
			def: newTool("fix_dependencies", "Remove every dependency problem validate_dependencies reports."),
			handle: func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error) {
				return m.FixDependencies(ctx)
			},
		},
		{
			def: newTool("parse_prd", "Generate tasks from a PRD text file, or write a provided task array.",
				mcp.WithString("input", mcp.Description("PRD file path relative to the project root.")),
				mcp.WithString("output", mcp.Description("Tasks file to write, relative to the project root.")),
				mcp.WithNumber("numTasks", mcp.Description("Approximate number of tasks to generate.")),
				mcp.WithBoolean("force", mcp.Description("Overwrite an existing tasks file.")),
				mcp.WithBoolean("append", mcp.Description("Append to an existing tasks file.")),
				mcp.WithArray("tasks", mcp.Description("Pre-analyzed tasks [{id, title, description, ...}] to use instead of the AI."),
					mcp.Items(map[string]interface{}{"type": "object"})),
			),
			handle: func(ctx context.Context, m *taskmgr.Manager, req mcp.CallToolRequest) (interface{}, error) {
				tasks, err := rawArg(req, "tasks")
				if err != nil {
					return nil, err
				}
				return m.ParsePRD(ctx, taskmgr.ParsePRDInput{
					Input:    req.GetString("input", ""),
					Output:   req.GetString("output", ""),
					NumTasks: req.GetInt("numTasks", 0),
					Force:    req.GetBool("force", false),
					Append:   req.GetBool("append", false),
					Tasks:    tasks,
				})
			},
		},
	}
}

func edgeArgs(req mcp.CallToolRequest) (types.Ref, types.Ref, error) {
	id, err := taskmgr.ParseID(idArg(req, "id"))
	if err != nil {
		return types.Ref{}, types.Ref{}, err
	}
	dep, err := taskmgr.ParseID(idArg(req, "dependsOn"))
	if err != nil {
		return types.Ref{}, types.Ref{}, err
	}
	return id, dep, nil
}
