package taskmgr

import (
	"context"
	"fmt"

	"github.com/tidwall/sjson"

	"github.com/tmkit/taskmaster/internal/ai"
	"github.com/tmkit/taskmaster/internal/schema"
	"github.com/tmkit/taskmaster/internal/types"
)

// generate renders the prompt for kind and returns the model's text.
func (m *Manager) generate(ctx context.Context, kind ai.Kind, data interface{}, taskID string) (string, error) {
	if m.gen == nil {
		return "", wrap(CodeAIUnavailable, fmt.Errorf("AI generation is not configured: %w", ai.ErrAPIKeyRequired))
	}
	tmpl, err := m.prompts.For(kind)
	if err != nil {
		return "", wrap(CodeInternal, err)
	}
	system, user, err := tmpl.Render(data)
	if err != nil {
		return "", wrap(CodeInternal, err)
	}
	m.log.Info("Requesting AI generation", "kind", kind, "task", taskID)
	resp, err := m.gen.Generate(ctx, ai.Request{Kind: kind, System: system, Prompt: user, TaskID: taskID})
	if err != nil {
		return "", wrap(CodeAIFailed, fmt.Errorf("AI request failed: %w", err))
	}
	return resp.Text, nil
}

// generateJSON is generate followed by JSON extraction and a schema gate.
func (m *Manager) generateJSON(ctx context.Context, kind ai.Kind, data interface{}, taskID string, gate schema.Name) ([]byte, error) {
	text, err := m.generate(ctx, kind, data, taskID)
	if err != nil {
		return nil, err
	}
	raw, err := ai.ExtractJSON(text)
	if err != nil {
		m.log.Debug("unparseable AI response", "response", ai.Truncate(text, 500))
		return nil, wrap(CodeInvalidAIResponse, fmt.Errorf("could not parse AI response: %w", err))
	}
	if err := schema.Validate(gate, []byte(raw)); err != nil {
		return nil, wrap(CodeInvalidAIResponse, fmt.Errorf("AI response failed validation: %w", err))
	}
	return []byte(raw), nil
}

// field is one key of a new task object. Fields are written in order.
type field struct {
	key   string
	value interface{}
}

// buildTask encodes fields into a new task so the key order on disk
// follows the usual layout instead of the order fields were set.
func buildTask(fields ...field) (types.Task, error) {
	data, err := buildObject(fields)
	if err != nil {
		return types.Task{}, err
	}
	return types.DecodeTask(data)
}

func buildSubtask(fields ...field) (types.Subtask, error) {
	data, err := buildObject(fields)
	if err != nil {
		return types.Subtask{}, err
	}
	var s types.Subtask
	err = s.UnmarshalJSON(data)
	return s, err
}

func buildObject(fields []field) ([]byte, error) {
	data := []byte("{}")
	for _, f := range fields {
		var err error
		switch v := f.value.(type) {
		case []types.Ref:
			if v == nil {
				v = []types.Ref{}
			}
			raw := "["
			for i, r := range v {
				if i > 0 {
					raw += ","
				}
				raw += r.String()
			}
			data, err = sjson.SetRawBytes(data, f.key, []byte(raw+"]"))
		case rawJSON:
			data, err = sjson.SetRawBytes(data, f.key, v)
		default:
			data, err = sjson.SetBytes(data, f.key, v)
		}
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", f.key, err)
		}
	}
	return data, nil
}

// rawJSON marks a field value that is already encoded.
type rawJSON []byte
