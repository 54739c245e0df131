package ai

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"github.com/BurntSushi/toml"
)

// Template is a system/user prompt pair. Both are text/template sources.
type Template struct {
	System string `toml:"system"`
	User   string `toml:"user"`
}

// Prompts holds the template for each AI-backed operation.
type Prompts struct {
	AddTask       Template `toml:"add_task"`
	UpdateTask    Template `toml:"update_task"`
	UpdateSubtask Template `toml:"update_subtask"`
	ParsePRD      Template `toml:"parse_prd"`
}

// For returns the template for kind.
func (p Prompts) For(kind Kind) (Template, error) {
	switch kind {
	case KindAddTask:
		return p.AddTask, nil
	case KindUpdateTask:
		return p.UpdateTask, nil
	case KindUpdateSubtask:
		return p.UpdateSubtask, nil
	case KindParsePRD:
		return p.ParsePRD, nil
	}
	return Template{}, fmt.Errorf("no prompt for %q", kind)
}

// Render executes both halves of t with data.
func (t Template) Render(data interface{}) (system, user string, err error) {
	system, err = render("system", t.System, data)
	if err != nil {
		return "", "", err
	}
	user, err = render("user", t.User, data)
	if err != nil {
		return "", "", err
	}
	return system, user, nil
}

func render(name, src string, data interface{}) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s template: %w", name, err)
	}
	return buf.String(), nil
}

// LoadPrompts returns the built-in prompts with any templates from the TOML
// file at path laid over them. Only non-empty fields override. A missing
// file is not an error.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 - configured prompts file
	if os.IsNotExist(err) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read prompts file: %w", err)
	}

	var user Prompts
	if err := toml.Unmarshal(data, &user); err != nil {
		return p, fmt.Errorf("parse prompts file %s: %w", path, err)
	}
	overlay(&p.AddTask, user.AddTask)
	overlay(&p.UpdateTask, user.UpdateTask)
	overlay(&p.UpdateSubtask, user.UpdateSubtask)
	overlay(&p.ParsePRD, user.ParsePRD)

	for _, t := range []Template{p.AddTask, p.UpdateTask, p.UpdateSubtask, p.ParsePRD} {
		if _, err := template.New("check").Parse(t.System); err != nil {
			return p, fmt.Errorf("prompts file %s: %w", path, err)
		}
		if _, err := template.New("check").Parse(t.User); err != nil {
			return p, fmt.Errorf("prompts file %s: %w", path, err)
		}
	}
	return p, nil
}

func overlay(dst *Template, src Template) {
	if src.System != "" {
		dst.System = src.System
	}
	if src.User != "" {
		dst.User = src.User
	}
}

// AddTaskData feeds the add-task template.
type AddTaskData struct {
	Prompt       string
	NewID        int
	Dependencies []string
	// Context is a compact listing of existing tasks.
	Context string
}

// UpdateTaskData feeds the update-task template.
type UpdateTaskData struct {
	Prompt   string
	TaskJSON string
}

// UpdateSubtaskData feeds the update-subtask template.
type UpdateSubtaskData struct {
	Prompt      string
	SubtaskID   string
	ParentTitle string
	Title       string
	Details     string
}

// ParsePRDData feeds the parse-prd template.
type ParsePRDData struct {
	PRD        string
	SourceFile string
	NumTasks   int
	NextID     int
}

// DefaultPrompts returns the built-in templates.
func DefaultPrompts() Prompts {
	return Prompts{
		AddTask: Template{
			System: `You are a helpful assistant that creates well-structured tasks for a software development project.
Generate a single new task based on the user's description.
Respond with a single JSON object and nothing else, with these fields:
title, description, details, testStrategy, dependencies (array of task ids), priority (high, medium or low).`,
			User: `Create a comprehensive new task (Task #{{.NewID}}) for a software development project based on this description: "{{.Prompt}}"
{{if .Dependencies}}
This task depends on: {{range $i, $d := .Dependencies}}{{if $i}}, {{end}}{{$d}}{{end}}
{{end}}{{if .Context}}
Existing tasks:
{{.Context}}
{{end}}
Return only the JSON object.`,
		},
		UpdateTask: Template{
			System: `You are an AI assistant helping to update a software development task based on new context.
You will be given a task and a prompt describing changes or new implementation details.
Update the task to reflect these changes while preserving its structure.

Guidelines:
1. Never change the title of the task.
2. Keep the same id, status and dependencies unless the prompt says otherwise.
3. Update the description, details and test strategy to reflect the new information.
4. Change only what the prompt requires.
5. Preserve all subtasks with status "done" or "completed" exactly as they are.
6. If completed work must change, add a new subtask instead of editing the completed one.
7. New subtasks must have ids that do not conflict with existing ones.
8. Return one complete JSON object representing the updated task.`,
			User: `Here is the task to update:
{{.TaskJSON}}

Please update this task based on the following new context:
{{.Prompt}}

IMPORTANT: subtasks with "status": "done" or "status": "completed" must be preserved exactly as is.

Return only the updated task as a valid JSON object.`,
		},
		UpdateSubtask: Template{
			System: `You are an AI assistant helping to record implementation progress on a subtask.
Given the subtask and a note from the developer, write a concise, factual paragraph to append to the subtask details.
Respond with plain text only. Do not repeat existing details and do not use JSON.`,
			User: `Subtask {{.SubtaskID}}: {{.Title}} (part of "{{.ParentTitle}}")
{{if .Details}}
Current details:
{{.Details}}
{{end}}
New information to add:
{{.Prompt}}`,
		},
		ParsePRD: Template{
			System: `You are an AI assistant that breaks a Product Requirements Document into development tasks.
Produce about {{.NumTasks}} tasks, numbered sequentially from {{.NextID}}, ordered so that dependencies come first.
Each task has: id, title, description, details, testStrategy, priority (high, medium or low), dependencies (ids of earlier tasks in this list), status "pending".
Respond with a single JSON object:
{"tasks": [...], "metadata": {"projectName": "...", "totalTasks": N, "sourceFile": "{{.SourceFile}}", "generatedAt": "YYYY-MM-DD"}}`,
			User: `Here is the Product Requirements Document from {{.SourceFile}}:

{{.PRD}}

Return only the JSON object.`,
		},
	}
}
