// Package audit appends AI interactions to a JSONL file next to the tasks
// file of a task group.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FileName is the audit log inside .taskmaster/<group>/.
const FileName = "interactions.jsonl"

// Entry is one audited interaction.
type Entry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	Actor     string    `json:"actor,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`

	// llm_call
	Model    string `json:"model,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`

	// label, for marking an earlier entry
	ParentID string `json:"parent_id,omitempty"`
	Label    string `json:"label,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Log writes entries to one file. The zero value is not usable.
type Log struct {
	path string
	mu   sync.Mutex
}

// New returns a Log writing to path. The file is created on first Append.
func New(path string) *Log {
	return &Log{path: path}
}

// Path is the file entries are written to.
func (l *Log) Path() string { return l.path }

// Append assigns an id and timestamp when missing and writes e as one line.
// It returns the entry id.
func (l *Log) Append(e *Entry) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil entry")
	}
	if strings.TrimSpace(e.Kind) == "" {
		return "", fmt.Errorf("entry kind is required")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	line, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return "", fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) // #nosec G304 - path under project dir
	if err != nil {
		return "", fmt.Errorf("open audit log: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return "", fmt.Errorf("write audit entry: %w", err)
	}
	return e.ID, nil
}

// ReadAll returns every entry in file order. A missing file yields none.
func (l *Log) ReadAll() ([]Entry, error) {
	f, err := os.Open(l.path) // #nosec G304 - path under project dir
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var out []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for n := 1; sc.Scan(); n++ {
		if len(strings.TrimSpace(sc.Text())) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", l.path, n, err)
		}
		out = append(out, e)
	}
	return out, sc.Err()
}
