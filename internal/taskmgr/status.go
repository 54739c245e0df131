package taskmgr

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmkit/taskmaster/internal/telemetry"
	"github.com/tmkit/taskmaster/internal/types"
)

// StatusChange is one entry of a SetStatus result.
type StatusChange struct {
	ID        string       `json:"id"`
	OldStatus types.Status `json:"oldStatus"`
	NewStatus types.Status `json:"newStatus"`
}

// SetStatusResult reports every status that changed.
type SetStatusResult struct {
	Updated []StatusChange `json:"updatedTasks"`
	Message string         `json:"message"`
}

// SetStatus sets the status of each listed task or subtask. Marking a task
// done also marks its subtasks done.
func (m *Manager) SetStatus(ctx context.Context, ids string, status types.Status) (*SetStatusResult, error) {
	status = types.Status(strings.TrimSpace(string(status)))
	if status == "" {
		return nil, errorf(CodeMissingArgument, "status is required")
	}
	if !status.IsKnown() {
		m.log.Warn(fmt.Sprintf("Status %q is not a built-in status", status))
	}
	refs, err := ParseIDList(ids)
	if err != nil {
		return nil, err
	}

	res := SetStatusResult{Updated: []StatusChange{}}
	err = m.mutate(ctx, "set_task_status", func(ctx context.Context, doc *types.Document, op *telemetry.Op) (*types.Document, error) {
		tasks := append([]types.Task(nil), doc.Tasks...)
		for _, r := range refs {
			if r.IsSubtask() {
				next := types.NewDocument(tasks)
				ti, si, err := findSubtask(next, r)
				if err != nil {
					return nil, err
				}
				t := tasks[ti].Clone()
				res.Updated = append(res.Updated, StatusChange{r.String(), t.Subtasks[si].Status, status})
				t.Subtasks[si].Status = status
				tasks[ti] = t
				continue
			}
			ti, err := findTask(types.NewDocument(tasks), r.Task)
			if err != nil {
				return nil, err
			}
			t := tasks[ti].Clone()
			res.Updated = append(res.Updated, StatusChange{r.String(), t.Status, status})
			t.Status = status
			if status.IsDone() {
				for i, s := range t.Subtasks {
					if !s.Status.IsDone() {
						res.Updated = append(res.Updated, StatusChange{s.Ref(t.ID).String(), s.Status, status})
						t.Subtasks[i].Status = status
					}
				}
			}
			tasks[ti] = t
		}
		res.Message = fmt.Sprintf("Successfully updated %d item(s) to %q", len(res.Updated), status)
		return doc.WithTasks(tasks), nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info(res.Message)
	return &res, nil
}
