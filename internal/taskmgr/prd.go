package taskmgr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tmkit/taskmaster/internal/ai"
	"github.com/tmkit/taskmaster/internal/schema"
	"github.com/tmkit/taskmaster/internal/store"
	"github.com/tmkit/taskmaster/internal/taskid"
	"github.com/tmkit/taskmaster/internal/telemetry"
	"github.com/tmkit/taskmaster/internal/types"
)

// DefaultPRDTasks is how many tasks parse-prd asks for by default.
const DefaultPRDTasks = 10

// ParsePRDInput configures ParsePRD.
type ParsePRDInput struct {
	// Input is the PRD text file, relative to the project root.
	Input string
	// Output overrides the tasks file written, relative to the project root.
	Output   string
	NumTasks int
	// Force overwrites an existing tasks file.
	Force bool
	// Append adds the new tasks after the existing ones.
	Append bool
	// Tasks is a pre-analyzed task array used instead of calling the AI.
	Tasks json.RawMessage
}

// ParsePRDResult reports what ParsePRD wrote.
type ParsePRDResult struct {
	OutputPath     string       `json:"outputPath"`
	TasksGenerated int          `json:"tasksGenerated"`
	Appended       bool         `json:"appended"`
	Tasks          []types.Task `json:"tasks"`
	Message        string       `json:"message"`
}

// ParsePRD turns a PRD into tasks and writes them to the tasks file.
func (m *Manager) ParsePRD(ctx context.Context, in ParsePRDInput) (res *ParsePRDResult, err error) {
	if in.Force && in.Append {
		return nil, errorf(CodeInvalidInput, "--force and --append cannot be used together")
	}
	if in.Input == "" && len(in.Tasks) == 0 {
		return nil, errorf(CodeMissingArgument, "a PRD input file or a tasks array is required")
	}
	if in.NumTasks <= 0 {
		in.NumTasks = DefaultPRDTasks
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ctx, op := telemetry.StartOp(ctx, "parse_prd", attribute.String("tm.group", m.group))
	defer func() { op.End(ctx, err) }()

	path, existing, err := m.prdTarget(in)
	if err != nil {
		return nil, err
	}
	nextID := 1
	if existing != nil && in.Append {
		nextID = existing.MaxID() + 1
	}

	var generated []byte
	if len(in.Tasks) > 0 {
		if err := schema.Validate(schema.ProvidedTasks, in.Tasks); err != nil {
			return nil, wrap(CodeInvalidInput, fmt.Errorf("provided tasks are invalid: %w", err))
		}
		generated = in.Tasks
		m.log.Info(fmt.Sprintf("Using %d provided task(s)", len(gjson.ParseBytes(in.Tasks).Array())))
	} else {
		src := in.Input
		if !filepath.IsAbs(src) {
			src = filepath.Join(m.root, src)
		}
		prd, readErr := os.ReadFile(src) // #nosec G304 - user-selected PRD
		if readErr != nil {
			if os.IsNotExist(readErr) {
				return nil, errorf(CodeInvalidInput, "PRD file not found: %s", src)
			}
			return nil, wrap(CodeInternal, readErr)
		}
		if strings.TrimSpace(string(prd)) == "" {
			return nil, errorf(CodeInvalidInput, "PRD file %s is empty", src)
		}
		raw, err := m.generateJSON(ctx, ai.KindParsePRD, ai.ParsePRDData{
			PRD:        string(prd),
			SourceFile: filepath.Base(src),
			NumTasks:   in.NumTasks,
			NextID:     nextID,
		}, "", schema.PRDResponse)
		if err != nil {
			return nil, err
		}
		generated = []byte(gjson.GetBytes(raw, "tasks").Raw)
	}

	tasks, err := m.decodeGenerated(generated)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, errorf(CodeInvalidAIResponse, "no tasks were generated")
	}

	r := m.engine.Renumber(tasks, taskid.WithSortByID(false))
	op.Engine(ctx, "renumber", r.Shifted, len(r.Dropped))
	tasks = m.dropForwardRefs(r.Tasks)

	doc := types.NewDocument(nil)
	appended := false
	if existing != nil && in.Append {
		tasks = m.offsetTasks(tasks, nextID-1)
		all := append(append([]types.Task(nil), existing.Tasks...), tasks...)
		final := m.engine.Renumber(all)
		op.Engine(ctx, "renumber", final.Shifted, len(final.Dropped))
		doc = existing.WithTasks(final.Tasks)
		tasks = final.Tasks[len(existing.Tasks):]
		appended = true
	} else {
		doc = doc.WithTasks(tasks)
	}

	if err := m.save(path, doc); err != nil {
		return nil, err
	}
	op.Tasks(ctx, len(doc.Tasks))

	res = &ParsePRDResult{
		OutputPath:     path,
		TasksGenerated: len(tasks),
		Appended:       appended,
		Tasks:          tasks,
	}
	if appended {
		res.Message = fmt.Sprintf("Successfully appended %d new task(s) to %s", len(tasks), path)
	} else {
		res.Message = fmt.Sprintf("Successfully generated %d task(s) in %s", len(tasks), path)
	}
	m.log.Info(res.Message)
	return res, nil
}

// prdTarget picks the file ParsePRD writes and loads it when appending.
func (m *Manager) prdTarget(in ParsePRDInput) (string, *types.Document, error) {
	explicit := in.Output
	if explicit == "" {
		explicit = m.tasksFile
	}
	loc, err := store.Resolve(m.root, m.group, explicit)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", nil, wrap(CodeInternal, err)
	}
	if loc.Legacy {
		// New output always goes to the group location.
		loc = store.Location{Path: store.GroupTasksFile(m.root, m.group), Exists: false}
		if _, statErr := os.Stat(loc.Path); statErr == nil {
			loc.Exists = true
		}
	}
	if !loc.Exists {
		return loc.Path, nil, nil
	}
	switch {
	case in.Append:
		doc, err := store.Load(loc.Path)
		if err != nil {
			if errors.Is(err, store.ErrInvalid) {
				return "", nil, wrap(CodeInvalidTasksFile, err)
			}
			return "", nil, wrap(CodeInternal, err)
		}
		return loc.Path, doc, nil
	case in.Force:
		m.log.Warn("Overwriting existing tasks file", "path", loc.Path)
		return loc.Path, nil, nil
	default:
		return "", nil, errorf(CodeFileExists, "tasks file %s already exists; use --force to overwrite or --append to add to it", loc.Path)
	}
}

// decodeGenerated turns generated task objects into tasks, filling in
// status, dependencies and subtasks when the model left them out.
func (m *Manager) decodeGenerated(data []byte) ([]types.Task, error) {
	items := gjson.ParseBytes(data).Array()
	tasks := make([]types.Task, 0, len(items))
	for i, item := range items {
		raw := []byte(item.Raw)
		var err error
		for _, def := range []struct{ key, value string }{
			{"status", `"pending"`},
			{"dependencies", `[]`},
			{"priority", `"medium"`},
			{"subtasks", `[]`},
		} {
			if !item.Get(def.key).Exists() {
				raw, err = sjson.SetRawBytes(raw, def.key, []byte(def.value))
				if err != nil {
					return nil, wrap(CodeInternal, err)
				}
			}
		}
		t, err := types.DecodeTask(raw)
		if err != nil {
			return nil, wrap(CodeInvalidAIResponse, fmt.Errorf("generated task %d: %w", i, err))
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// dropForwardRefs removes task dependencies on the same or a later task.
// Generated lists are ordered so that work only depends on what came
// before it.
func (m *Manager) dropForwardRefs(tasks []types.Task) []types.Task {
	for i := range tasks {
		t := &tasks[i]
		kept := t.Dependencies[:0:0]
		for _, d := range t.Dependencies {
			if d.Task >= t.ID {
				m.log.Warn(fmt.Sprintf("Dropping dependency %s of generated task %d: it does not come earlier", d, t.ID))
				continue
			}
			kept = append(kept, d)
		}
		if t.Dependencies != nil {
			t.Dependencies = kept
		}
	}
	return tasks
}

// offsetTasks moves every id in tasks up by offset, references included.
func (m *Manager) offsetTasks(tasks []types.Task, offset int) []types.Task {
	if offset == 0 {
		return tasks
	}
	mapping := taskid.Mapping{Tasks: make(map[int]int), Subtasks: make(map[types.Ref]types.Ref)}
	for _, t := range tasks {
		mapping.Tasks[t.ID] = t.ID + offset
		for _, s := range t.Subtasks {
			mapping.Subtasks[s.Ref(t.ID)] = s.Ref(t.ID + offset)
		}
	}
	out := make([]types.Task, len(tasks))
	for i, t := range tasks {
		nt := t.Clone()
		nt.Dependencies, _ = m.engine.Resolve(t.Ref(), t.Dependencies, mapping)
		for j, s := range t.Subtasks {
			nt.Subtasks[j].Dependencies, _ = m.engine.Resolve(s.Ref(t.ID), s.Dependencies, mapping)
		}
		nt.ID = t.ID + offset
		out[i] = nt
	}
	return out
}
