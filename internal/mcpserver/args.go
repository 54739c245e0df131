package mcpserver

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tmkit/taskmaster/internal/taskmgr"
	"github.com/tmkit/taskmaster/internal/types"
)

// idArg reads an id argument that clients may send as a string or a
// number. Numbers lose trailing zeros ("1.10" sent as 1.1), so subtask ids
// should be sent as strings.
func idArg(req mcp.CallToolRequest, key string) string {
	switch v := req.GetArguments()[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// refsArg reads a dependency list given either as "1, 2.1" or as an array.
// It returns nil when the argument is absent.
func refsArg(req mcp.CallToolRequest, key string) ([]types.Ref, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	var list string
	switch v := raw.(type) {
	case string:
		list = v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			switch x := item.(type) {
			case string:
				parts = append(parts, x)
			case float64:
				parts = append(parts, strconv.FormatFloat(x, 'f', -1, 64))
			default:
				return nil, &taskmgr.Error{Code: taskmgr.CodeInvalidInput, Err: fmt.Errorf("%s: unsupported element %v", key, item)}
			}
		}
		list = strings.Join(parts, ",")
	default:
		return nil, &taskmgr.Error{Code: taskmgr.CodeInvalidInput, Err: fmt.Errorf("%s must be a string or an array", key)}
	}
	refs, err := types.ParseRefList(list)
	if err != nil {
		return nil, &taskmgr.Error{Code: taskmgr.CodeInvalidTaskID, Err: err}
	}
	if refs == nil {
		refs = []types.Ref{}
	}
	return refs, nil
}

// decodeArg re-encodes an argument into v. It reports false when the
// argument is absent.
func decodeArg(req mcp.CallToolRequest, key string, v interface{}) (bool, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return false, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return false, &taskmgr.Error{Code: taskmgr.CodeInvalidInput, Err: fmt.Errorf("%s: %w", key, err)}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, &taskmgr.Error{Code: taskmgr.CodeInvalidInput, Err: fmt.Errorf("%s: %w", key, err)}
	}
	return true, nil
}

// rawArg returns an argument as JSON, or nil when it is absent.
func rawArg(req mcp.CallToolRequest, key string) (json.RawMessage, error) {
	var raw json.RawMessage
	ok, err := decodeArg(req, key, &raw)
	if !ok || err != nil {
		return nil, err
	}
	return raw, nil
}

// stringsArg reads a string array argument, or nil when it is absent.
func stringsArg(req mcp.CallToolRequest, key string) ([]string, error) {
	var out []string
	if _, err := decodeArg(req, key, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func missing(what string) error {
	return &taskmgr.Error{Code: taskmgr.CodeMissingArgument, Err: fmt.Errorf("%s is required", what)}
}
