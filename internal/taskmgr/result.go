package taskmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/tmkit/taskmaster/internal/telemetry"
	"github.com/tmkit/taskmaster/internal/types"
)

// ResultEntry is one element of a task's results array.
type ResultEntry struct {
	Action     string `json:"action"`
	UpdateTime string `json:"updateTime"`
	Result     string `json:"result"`
}

// AddResultOutput reports the appended entry.
type AddResultOutput struct {
	TaskID      string      `json:"taskId"`
	ResultEntry ResultEntry `json:"resultEntry"`
	Message     string      `json:"message"`
}

// AddResult appends {action, updateTime, result} to the results of a task
// or subtask. A zero at uses the current time.
func (m *Manager) AddResult(ctx context.Context, id, action, result string, at time.Time) (*AddResultOutput, error) {
	switch {
	case strings.TrimSpace(id) == "":
		return nil, errorf(CodeMissingArgument, "task ID is required but was not provided")
	case action == "":
		return nil, errorf(CodeMissingArgument, "action is required but was not provided")
	case result == "":
		return nil, errorf(CodeMissingArgument, "result is required but was not provided")
	}
	ref, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	stamp := m.timestamp()
	if !at.IsZero() {
		stamp = at.UTC().Format(time.RFC3339)
	}
	entry := ResultEntry{Action: action, UpdateTime: stamp, Result: result}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return nil, wrap(CodeInternal, err)
	}

	var out AddResultOutput
	err = m.mutate(ctx, "add_result", func(ctx context.Context, doc *types.Document, op *telemetry.Op) (*types.Document, error) {
		if ref.IsSubtask() {
			ti, si, err := findSubtask(doc, ref)
			if err != nil {
				return nil, err
			}
			t := doc.Tasks[ti].Clone()
			s, err := appendRaw(t.Subtasks[si], encoded)
			if err != nil {
				return nil, err
			}
			t.Subtasks[si] = s
			out.Message = fmt.Sprintf("Successfully added result to subtask %s", ref)
			return doc.WithTasks(replaceTask(doc.Tasks, ti, t)), nil
		}
		ti, err := findTask(doc, ref.Task)
		if err != nil {
			return nil, err
		}
		t, err := appendRaw(doc.Tasks[ti], encoded)
		if err != nil {
			return nil, err
		}
		out.Message = fmt.Sprintf("Successfully added result to task %s", ref)
		return doc.WithTasks(replaceTask(doc.Tasks, ti, t)), nil
	})
	if err != nil {
		return nil, err
	}
	out.TaskID = ref.String()
	out.ResultEntry = entry
	m.log.Info(fmt.Sprintf("Added result to %s: %s", ref, action))
	return &out, nil
}

// payload is what Task and Subtask share for raw field edits.
type payload[T any] interface {
	Get(path string) gjson.Result
	SetRaw(path string, value []byte) (T, error)
}

// appendRaw appends value to the "results" array, creating it if needed.
func appendRaw[T payload[T]](item T, value []byte) (T, error) {
	var out T
	var err error
	if item.Get("results").IsArray() {
		out, err = item.SetRaw("results.-1", value)
	} else {
		out, err = item.SetRaw("results", append(append([]byte("["), value...), ']'))
	}
	if err != nil {
		return item, wrap(CodeInternal, fmt.Errorf("append result: %w", err))
	}
	return out, nil
}
