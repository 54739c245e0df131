package taskmgr

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tmkit/taskmaster/internal/store"
	"github.com/tmkit/taskmaster/internal/taskid"
	"github.com/tmkit/taskmaster/internal/telemetry"
	"github.com/tmkit/taskmaster/internal/types"
)

// RenumberResult reports a renumbering.
type RenumberResult struct {
	Tasks       int               `json:"tasks"`
	Changed     int               `json:"changed"`
	Renumbered  map[string]string `json:"renumbered,omitempty"`
	DroppedRefs int               `json:"droppedReferences"`
	Message     string            `json:"message"`
}

// Renumber assigns ids 1..N to tasks and 1..M to each task's subtasks.
// With keepOrder the current array order decides the new ids instead of
// the current ids.
func (m *Manager) Renumber(ctx context.Context, keepOrder bool) (*RenumberResult, error) {
	var res RenumberResult
	err := m.mutate(ctx, "renumber_tasks", func(ctx context.Context, doc *types.Document, op *telemetry.Op) (*types.Document, error) {
		r := m.engine.Renumber(doc.Tasks, taskid.WithSortByID(!keepOrder))
		op.Engine(ctx, "renumber", r.Shifted, len(r.Dropped))
		res = renumberResult(r)
		return doc.WithTasks(r.Tasks), nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func renumberResult(r taskid.Result) RenumberResult {
	res := RenumberResult{
		Tasks:       len(r.Tasks),
		Changed:     r.Shifted,
		Renumbered:  renumberedIDs(r.Mapping),
		DroppedRefs: len(r.Dropped),
	}
	if r.Shifted == 0 && len(r.Dropped) == 0 {
		res.Message = "Task ids are already sequential"
	} else {
		res.Message = fmt.Sprintf("Renumbered %d task(s); %d id(s) changed, %d reference(s) dropped",
			res.Tasks, res.Changed, res.DroppedRefs)
	}
	return res
}

// MigrateResult reports a migration.
type MigrateResult struct {
	From string `json:"from"`
	To   string `json:"to"`
	RenumberResult
}

// Migrate moves a legacy tasks file (tasks/tasks.json or
// .taskmaster/tasks/tasks.json) into the task group directory and
// renumbers it. An existing group file is only replaced with force.
func (m *Manager) Migrate(ctx context.Context, force bool) (res *MigrateResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx, op := telemetry.StartOp(ctx, "migrate", attribute.String("tm.group", m.group))
	defer func() { op.End(ctx, err) }()

	var from string
	for _, p := range store.LegacyTasksFiles(m.root) {
		if _, statErr := os.Stat(p); statErr == nil {
			from = p
			break
		}
	}
	if from == "" {
		return nil, errorf(CodeTasksFileNotFound, "no legacy tasks file found in %s", m.root)
	}
	to := store.GroupTasksFile(m.root, m.group)
	if to == from {
		return nil, errorf(CodeInvalidInput, "%s is already the tasks file of group %q", from, m.group)
	}
	if _, statErr := os.Stat(to); statErr == nil && !force {
		return nil, errorf(CodeFileExists, "%s already exists; use --force to overwrite", to)
	}

	doc, err := store.Load(from)
	if err != nil {
		if errors.Is(err, store.ErrInvalid) {
			return nil, wrap(CodeInvalidTasksFile, err)
		}
		return nil, wrap(CodeInternal, err)
	}
	r := m.engine.Renumber(doc.Tasks)
	op.Engine(ctx, "renumber", r.Shifted, len(r.Dropped))
	next := doc.WithTasks(r.Tasks)
	if err := m.save(to, next); err != nil {
		return nil, err
	}
	if err := os.Remove(from); err != nil {
		m.log.Warn("Migrated tasks but could not remove the legacy file", "path", from, "err", err)
	}
	op.Tasks(ctx, len(next.Tasks))
	m.log.Info(fmt.Sprintf("Migrated %s to %s", from, to))
	return &MigrateResult{From: from, To: to, RenumberResult: renumberResult(r)}, nil
}
