package taskmgr

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// MetadataOpKind selects what a MetadataOp does.
type MetadataOpKind string

const (
	MetadataAdd    MetadataOpKind = "add"
	MetadataSet    MetadataOpKind = "set"
	MetadataDelete MetadataOpKind = "delete"
)

// MetadataOp edits one entry of metadata.fields, keyed by Key.
type MetadataOp struct {
	Op          MetadataOpKind `json:"op"`
	Key         string         `json:"key"`
	Label       string         `json:"label,omitempty"`
	Type        string         `json:"type,omitempty"`
	Description string         `json:"description,omitempty"`
	Required    bool           `json:"required,omitempty"`
	Enum        []string       `json:"enum,omitempty"`
	Value       *string        `json:"value,omitempty"`
}

type metadataField struct {
	Key         string   `json:"key"`
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
	Value       *string  `json:"value,omitempty"`
}

// applyMetadataOps applies ops in order to item's metadata.fields. owner
// names the task in error messages.
func applyMetadataOps[T payload[T]](item T, owner string, ops []MetadataOp) (T, error) {
	for _, op := range ops {
		if op.Key == "" {
			return item, errorf(CodeMissingArgument, "metadata field key is required")
		}
		fields := item.Get("metadata.fields")
		idx := -1
		if fields.IsArray() {
			for i, f := range fields.Array() {
				if f.Get("key").String() == op.Key {
					idx = i
					break
				}
			}
		}

		var err error
		switch op.Op {
		case MetadataAdd:
			if idx >= 0 {
				return item, errorf(CodeInvalidInput, "metadata field %q already exists on task %s", op.Key, owner)
			}
			f := metadataField{
				Key:         op.Key,
				Label:       op.Label,
				Type:        op.Type,
				Description: op.Description,
				Required:    op.Required,
				Enum:        op.Enum,
				Value:       op.Value,
			}
			if f.Label == "" {
				f.Label = op.Key
			}
			if f.Type == "" {
				f.Type = "text"
			}
			data, encErr := json.Marshal(f)
			if encErr != nil {
				return item, wrap(CodeInternal, encErr)
			}
			if fields.IsArray() {
				item, err = item.SetRaw("metadata.fields.-1", data)
			} else {
				item, err = item.SetRaw("metadata.fields", append(append([]byte("["), data...), ']'))
			}
		case MetadataSet:
			if idx < 0 {
				return item, errorf(CodeInvalidInput, "task %s has no metadata field %s", owner, op.Key)
			}
			value := ""
			if op.Value != nil {
				value = *op.Value
			}
			data, _ := json.Marshal(value)
			item, err = item.SetRaw(fmt.Sprintf("metadata.fields.%d.value", idx), data)
		case MetadataDelete:
			if idx < 0 {
				return item, errorf(CodeInvalidInput, "task %s has no metadata field %s", owner, op.Key)
			}
			item, err = deleteArrayElem(item, "metadata.fields", fields, idx)
		default:
			return item, errorf(CodeInvalidInput, "unknown metadata operation %q", op.Op)
		}
		if err != nil {
			return item, wrap(CodeInternal, err)
		}
	}
	return item, nil
}

// deleteArrayElem rewrites the array at path without element idx.
func deleteArrayElem[T payload[T]](item T, path string, arr gjson.Result, idx int) (T, error) {
	raw := []byte("[")
	n := 0
	for i, e := range arr.Array() {
		if i == idx {
			continue
		}
		if n > 0 {
			raw = append(raw, ',')
		}
		raw = append(raw, e.Raw...)
		n++
	}
	return item.SetRaw(path, append(raw, ']'))
}
