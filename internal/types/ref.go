package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrInvalidRef is returned when a dependency reference cannot be parsed.
var ErrInvalidRef = errors.New("invalid dependency reference")

// RefKind tags the two shapes a dependency reference can take.
type RefKind uint8

const (
	// TaskRefKind points at a top-level task by id.
	TaskRefKind RefKind = iota + 1
	// SubtaskRefKind points at subtask Subtask of task Task.
	SubtaskRefKind
)

// Ref is a dependency reference. It is either a task reference (Kind ==
// TaskRefKind, Subtask == 0) or a subtask reference "Task.Subtask". Refs are
// comparable and are used directly as map keys.
type Ref struct {
	Kind    RefKind
	Task    int
	Subtask int
}

// TaskRef returns a reference to the task with the given id.
func TaskRef(id int) Ref {
	return Ref{Kind: TaskRefKind, Task: id}
}

// SubtaskRef returns a reference to subtask sub of task parent.
func SubtaskRef(parent, sub int) Ref {
	return Ref{Kind: SubtaskRefKind, Task: parent, Subtask: sub}
}

// IsSubtask reports whether r points at a subtask.
func (r Ref) IsSubtask() bool {
	return r.Kind == SubtaskRefKind
}

// IsZero reports whether r is the zero Ref.
func (r Ref) IsZero() bool {
	return r.Kind == 0
}

// Parent returns the task reference for a subtask reference's parent. For a
// task reference it returns r unchanged.
func (r Ref) Parent() Ref {
	return TaskRef(r.Task)
}

// String renders the reference as "5" or "5.2".
func (r Ref) String() string {
	if r.Kind == SubtaskRefKind {
		return strconv.Itoa(r.Task) + "." + strconv.Itoa(r.Subtask)
	}
	return strconv.Itoa(r.Task)
}

// ParseRef parses "5" or "5.2". The digits after the dot are the subtask id,
// so "1.10" is subtask 10 of task 1. A fraction of only zeros ("5.0") is a
// task reference.
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, fmt.Errorf("%w: empty", ErrInvalidRef)
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	parent, err := parsePositive(whole)
	if err != nil {
		return Ref{}, fmt.Errorf("%w %q: %v", ErrInvalidRef, s, err)
	}
	if !hasDot || strings.Trim(frac, "0") == "" && frac != "" {
		return TaskRef(parent), nil
	}
	sub, err := parsePositive(frac)
	if err != nil {
		return Ref{}, fmt.Errorf("%w %q: %v", ErrInvalidRef, s, err)
	}
	return SubtaskRef(parent, sub), nil
}

// MustParseRef is ParseRef for literals in tests and tables.
func MustParseRef(s string) Ref {
	r, err := ParseRef(s)
	if err != nil {
		panic(err)
	}
	return r
}

// ParseRefList parses a comma-separated list such as "1, 3.2,7".
func ParseRefList(s string) ([]Ref, error) {
	var refs []Ref
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := ParseRef(part)
		if err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, nil
}

// MarshalJSON writes a task reference as an integer and a subtask reference
// as a decimal number token, keeping every digit of the subtask id.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.Kind == 0 {
		return nil, fmt.Errorf("%w: zero reference", ErrInvalidRef)
	}
	return []byte(r.String()), nil
}

// UnmarshalJSON accepts a JSON number or a JSON string.
func (r *Ref) UnmarshalJSON(data []byte) error {
	parsed, err := refFromResult(gjson.ParseBytes(data))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func refFromResult(res gjson.Result) (Ref, error) {
	switch res.Type {
	case gjson.Number:
		return ParseRef(res.Raw)
	case gjson.String:
		return ParseRef(res.Str)
	default:
		return Ref{}, fmt.Errorf("%w: %s", ErrInvalidRef, strings.TrimSpace(res.Raw))
	}
}

func parsePositive(s string) (int, error) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, fmt.Errorf("not a positive integer")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("must be positive")
	}
	return n, nil
}
