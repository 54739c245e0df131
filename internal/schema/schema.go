// Package schema validates task documents and AI responses against embedded
// JSON Schemas before they reach the id engine.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var files embed.FS

const baseURL = "https://taskmaster.local/schemas/"

// Name identifies one embedded schema.
type Name string

const (
	// Document is a whole tasks.json file.
	Document Name = "document"
	// AITask is the task data an AI returns for add-task.
	AITask Name = "ai-task"
	// UpdatedTask is the task an AI returns for update-task.
	UpdatedTask Name = "updated-task"
	// PRDResponse is the AI response to a PRD parse.
	PRDResponse Name = "prd-response"
	// ProvidedTasks is a pre-analyzed task array passed to parse-prd.
	ProvidedTasks Name = "provided-tasks"
)

var (
	compileOnce sync.Once
	compiled    map[Name]*jsonschema.Schema
	compileErr  error
)

func load() (map[Name]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		c.AssertFormat = true

		entries, err := files.ReadDir("schemas")
		if err != nil {
			compileErr = err
			return
		}
		for _, e := range entries {
			data, err := files.ReadFile("schemas/" + e.Name())
			if err != nil {
				compileErr = err
				return
			}
			if err := c.AddResource(baseURL+e.Name(), bytes.NewReader(data)); err != nil {
				compileErr = fmt.Errorf("schema %s: %w", e.Name(), err)
				return
			}
		}

		out := make(map[Name]*jsonschema.Schema)
		for _, n := range []Name{Document, AITask, UpdatedTask, PRDResponse, ProvidedTasks} {
			s, err := c.Compile(baseURL + string(n) + ".json")
			if err != nil {
				compileErr = fmt.Errorf("compiling schema %s: %w", n, err)
				return
			}
			out[n] = s
		}
		compiled = out
	})
	return compiled, compileErr
}

// Violation is one leaf failure from a schema check.
type Violation struct {
	// Path is a dotted path such as tasks[2].dependencies[0]; empty for the
	// document root.
	Path    string
	Message string
}

func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

// Error reports every violation found for one schema.
type Error struct {
	Schema     Name
	Violations []Violation
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s does not match schema: %s", e.Schema, strings.Join(parts, "; "))
}

// ErrMalformedJSON is returned when the input is not JSON at all.
var ErrMalformedJSON = errors.New("malformed JSON")

// Validate checks data against the named schema. It returns *Error for schema
// violations and wraps ErrMalformedJSON for input that does not parse.
func Validate(name Name, data []byte) error {
	schemas, err := load()
	if err != nil {
		return err
	}
	s, ok := schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if err := s.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		out := &Error{Schema: name}
		collect(out, ve)
		return out
	}
	return nil
}

func collect(out *Error, ve *jsonschema.ValidationError) {
	if len(ve.Causes) == 0 {
		out.Violations = append(out.Violations, Violation{
			Path:    pointerToPath(ve.InstanceLocation),
			Message: ve.Message,
		})
		return
	}
	for _, c := range ve.Causes {
		collect(out, c)
	}
}

func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "#")
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}
	var b strings.Builder
	for _, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			fmt.Fprintf(&b, "[%d]", idx)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}
