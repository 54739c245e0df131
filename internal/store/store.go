// Package store reads and writes tasks.json files and locates them inside a
// project.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/tmkit/taskmaster/internal/schema"
	"github.com/tmkit/taskmaster/internal/types"
)

const (
	dirPerms  = 0o750
	filePerms = 0o644
)

// ErrInvalid wraps every failure to turn file contents into a document:
// malformed JSON, schema violations and bad ids alike.
var ErrInvalid = errors.New("invalid tasks file")

// Load reads path, checks it against the document schema and decodes it.
func Load(path string) (*types.Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 - user-selected tasks file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Decode(data)
}

// Decode validates and decodes tasks.json content.
func Decode(data []byte) (*types.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrInvalid)
	}
	if err := schema.Validate(schema.Document, data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	doc, err := types.DecodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := checkUniqueIDs(doc.Tasks); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return doc, nil
}

// checkUniqueIDs rejects repeated task ids and repeated subtask ids within
// one parent. The id engine assumes both are unique.
func checkUniqueIDs(tasks []types.Task) error {
	seen := make(map[int]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			return fmt.Errorf("duplicate task id %d", t.ID)
		}
		seen[t.ID] = true
		subs := make(map[int]bool, len(t.Subtasks))
		for _, st := range t.Subtasks {
			if subs[st.ID] {
				return fmt.Errorf("duplicate subtask id %s", st.Ref(t.ID))
			}
			subs[st.ID] = true
		}
	}
	return nil
}

// Save writes doc to path atomically, creating parent directories. A reader
// sees either the old file or the new one, never a partial write.
func Save(path string, doc *types.Document) error {
	data, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("encoding tasks: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerms); err != nil {
		return fmt.Errorf("failed to create tasks directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write tasks file: %w", err)
	}
	// atomic.WriteFile doesn't set permissions for new files
	if err := os.Chmod(path, filePerms); err != nil {
		return fmt.Errorf("failed to set file permissions: %w", err)
	}
	return nil
}
