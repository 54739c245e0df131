package taskmgr

import (
	"context"
	"fmt"

	"github.com/tmkit/taskmaster/internal/deps"
	"github.com/tmkit/taskmaster/internal/telemetry"
	"github.com/tmkit/taskmaster/internal/types"
)

// DependencyResult reports an added or removed edge.
type DependencyResult struct {
	ID           string `json:"id"`
	DependencyID string `json:"dependencyId"`
	Message      string `json:"message"`
}

// withDependencies returns a copy of tasks where the dependency list of
// owner is replaced by edit(current).
func withDependencies(doc *types.Document, owner types.Ref, edit func([]types.Ref) ([]types.Ref, error)) ([]types.Task, error) {
	if owner.IsSubtask() {
		ti, si, err := findSubtask(doc, owner)
		if err != nil {
			return nil, err
		}
		t := doc.Tasks[ti].Clone()
		next, err := edit(t.Subtasks[si].Dependencies)
		if err != nil {
			return nil, err
		}
		t.Subtasks[si].Dependencies = next
		return replaceTask(doc.Tasks, ti, t), nil
	}
	ti, err := findTask(doc, owner.Task)
	if err != nil {
		return nil, err
	}
	t := doc.Tasks[ti].Clone()
	next, err := edit(t.Dependencies)
	if err != nil {
		return nil, err
	}
	t.Dependencies = next
	return replaceTask(doc.Tasks, ti, t), nil
}

// AddDependency makes id depend on dependsOn. Self references, unknown
// targets and edges that would close a cycle are rejected. Adding an
// existing edge is a no-op.
func (m *Manager) AddDependency(ctx context.Context, id, dependsOn types.Ref) (*DependencyResult, error) {
	if id == dependsOn {
		return nil, errorf(CodeDependency, "%s cannot depend on itself", id)
	}
	res := DependencyResult{ID: id.String(), DependencyID: dependsOn.String()}
	err := m.mutate(ctx, "add_dependency", func(ctx context.Context, doc *types.Document, op *telemetry.Op) (*types.Document, error) {
		if !doc.Exists(dependsOn) {
			return nil, errorf(CodeDependency, "dependency target %s does not exist", dependsOn)
		}
		if deps.WouldCycle(doc.Tasks, id, dependsOn) {
			return nil, errorf(CodeDependency, "adding %s -> %s would create a circular dependency", id, dependsOn)
		}
		tasks, err := withDependencies(doc, id, func(cur []types.Ref) ([]types.Ref, error) {
			for _, r := range cur {
				if r == dependsOn {
					res.Message = fmt.Sprintf("%s already depends on %s", id, dependsOn)
					return cur, nil
				}
			}
			return append(append([]types.Ref{}, cur...), dependsOn), nil
		})
		if err != nil {
			return nil, err
		}
		if res.Message == "" {
			res.Message = fmt.Sprintf("Successfully added dependency: %s now depends on %s", id, dependsOn)
		}
		return doc.WithTasks(tasks), nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info(res.Message)
	return &res, nil
}

// RemoveDependency drops the edge id -> dependsOn. Removing an edge that
// is not there is a no-op.
func (m *Manager) RemoveDependency(ctx context.Context, id, dependsOn types.Ref) (*DependencyResult, error) {
	res := DependencyResult{ID: id.String(), DependencyID: dependsOn.String()}
	err := m.mutate(ctx, "remove_dependency", func(ctx context.Context, doc *types.Document, op *telemetry.Op) (*types.Document, error) {
		tasks, err := withDependencies(doc, id, func(cur []types.Ref) ([]types.Ref, error) {
			out := make([]types.Ref, 0, len(cur))
			for _, r := range cur {
				if r != dependsOn {
					out = append(out, r)
				}
			}
			if len(out) == len(cur) {
				res.Message = fmt.Sprintf("%s does not depend on %s", id, dependsOn)
			}
			return out, nil
		})
		if err != nil {
			return nil, err
		}
		if res.Message == "" {
			res.Message = fmt.Sprintf("Successfully removed dependency: %s no longer depends on %s", id, dependsOn)
		}
		return doc.WithTasks(tasks), nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Info(res.Message)
	return &res, nil
}

// ValidationResult lists the dependency problems in the tasks file.
type ValidationResult struct {
	Valid   bool         `json:"valid"`
	Issues  []deps.Issue `json:"issues"`
	Message string       `json:"message"`
}

// ValidateDependencies reports dependency problems without changing
// anything.
func (m *Manager) ValidateDependencies(ctx context.Context) (*ValidationResult, error) {
	doc, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	issues := deps.Validate(doc.Tasks)
	res := ValidationResult{Valid: len(issues) == 0, Issues: issues}
	if res.Issues == nil {
		res.Issues = []deps.Issue{}
	}
	if res.Valid {
		res.Message = "All dependencies are valid"
	} else {
		res.Message = fmt.Sprintf("Found %d dependency issue(s)", len(issues))
		for _, is := range issues {
			m.log.Warn(is.String())
		}
	}
	return &res, nil
}

// FixResult lists the problems FixDependencies repaired.
type FixResult struct {
	Fixed   []deps.Issue `json:"fixed"`
	Message string       `json:"message"`
}

// FixDependencies removes every problem ValidateDependencies would report.
// Nothing is written when there is nothing to fix.
func (m *Manager) FixDependencies(ctx context.Context) (*FixResult, error) {
	doc, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(deps.Validate(doc.Tasks)) == 0 {
		return &FixResult{Fixed: []deps.Issue{}, Message: "No dependency issues found"}, nil
	}

	res := FixResult{Fixed: []deps.Issue{}}
	err = m.mutate(ctx, "fix_dependencies", func(ctx context.Context, doc *types.Document, op *telemetry.Op) (*types.Document, error) {
		tasks, fixed := deps.Fix(m.engine, doc.Tasks)
		op.Engine(ctx, "fix", 0, len(fixed))
		res.Fixed = append(res.Fixed, fixed...)
		return doc.WithTasks(tasks), nil
	})
	if err != nil {
		return nil, err
	}
	res.Message = fmt.Sprintf("Fixed %d dependency issue(s)", len(res.Fixed))
	m.log.Info(res.Message)
	return &res, nil
}
