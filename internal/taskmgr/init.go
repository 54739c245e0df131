package taskmgr

import (
	"context"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tmkit/taskmaster/internal/store"
	"github.com/tmkit/taskmaster/internal/telemetry"
	"github.com/tmkit/taskmaster/internal/types"
)

// InitResult reports a created tasks file.
type InitResult struct {
	Path    string `json:"path"`
	Group   string `json:"group"`
	Message string `json:"message"`
}

// Init writes an empty tasks file for the Manager's group. An existing file
// is only replaced with force.
func (m *Manager) Init(ctx context.Context, force bool) (res *InitResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ctx, op := telemetry.StartOp(ctx, "init", attribute.String("tm.group", m.group))
	defer func() { op.End(ctx, err) }()

	path := store.GroupTasksFile(m.root, m.group)
	if m.tasksFile != "" {
		loc, _ := m.Locate()
		path = loc.Path
	}
	if _, statErr := os.Stat(path); statErr == nil && !force {
		return nil, errorf(CodeFileExists, "%s already exists; use --force to overwrite", path)
	}
	if err := m.save(path, types.NewDocument(nil)); err != nil {
		return nil, err
	}
	return &InitResult{
		Path:    path,
		Group:   m.group,
		Message: fmt.Sprintf("Initialized task group %q at %s", m.group, path),
	}, nil
}
