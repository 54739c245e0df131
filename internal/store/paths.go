package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tmkit/taskmaster/internal/config"
)

// ErrNotFound is returned when no tasks file exists at any known location.
var ErrNotFound = errors.New("tasks file not found")

// projectMarkers are checked in order in each directory while walking up.
var projectMarkers = []string{
	config.DirName,
	"tasks.json",
	filepath.Join("tasks", "tasks.json"),
	".git",
	".svn",
	"go.mod",
	"package.json",
}

// FindProjectRoot walks up from start and returns the first directory that
// holds a project marker, or "" if the filesystem root is reached first.
func FindProjectRoot(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	for {
		for _, m := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// NormalizeRoot strips a trailing .taskmaster segment (and anything below
// it) so that paths are never doubled.
func NormalizeRoot(root string) string {
	parts := strings.Split(filepath.Clean(root), string(filepath.Separator))
	for i, p := range parts {
		if p == config.DirName {
			joined := strings.Join(parts[:i], string(filepath.Separator))
			if joined == "" {
				return string(filepath.Separator)
			}
			return joined
		}
	}
	return root
}

// GroupDir is .taskmaster/<group> under root.
func GroupDir(root, group string) string {
	return filepath.Join(root, config.DirName, group)
}

// GroupTasksFile is the tasks.json of a task group.
func GroupTasksFile(root, group string) string {
	return filepath.Join(GroupDir(root, group), "tasks", "tasks.json")
}

// LegacyTasksFiles lists pre-group locations, newest layout first.
func LegacyTasksFiles(root string) []string {
	return []string{
		filepath.Join(root, config.DirName, "tasks", "tasks.json"),
		filepath.Join(root, "tasks", "tasks.json"),
	}
}

// Location is a resolved tasks file.
type Location struct {
	Path string
	// Legacy is set when Path is one of LegacyTasksFiles.
	Legacy bool
	// Exists is false when nothing was found and Path is where a new file
	// would go.
	Exists bool
}

// Resolve picks the tasks file to use. An explicit path wins, relative to
// root. Otherwise the group file is preferred over the legacy locations.
// When nothing exists the group path is returned with ErrNotFound.
func Resolve(root, group, explicit string) (Location, error) {
	root = NormalizeRoot(root)
	if explicit != "" {
		p := explicit
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		if fileExists(p) {
			return Location{Path: p, Exists: true}, nil
		}
		return Location{Path: p}, fmt.Errorf("%w: %s", ErrNotFound, p)
	}

	primary := GroupTasksFile(root, group)
	if fileExists(primary) {
		return Location{Path: primary, Exists: true}, nil
	}
	for _, p := range LegacyTasksFiles(root) {
		if fileExists(p) {
			return Location{Path: p, Legacy: true, Exists: true}, nil
		}
	}
	return Location{Path: primary}, fmt.Errorf("%w in %s", ErrNotFound, root)
}

// Groups lists task groups under root that have a tasks file, sorted.
func Groups(root string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(root, config.DirName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var groups []string
	for _, e := range entries {
		if e.IsDir() && fileExists(GroupTasksFile(root, e.Name())) {
			groups = append(groups, e.Name())
		}
	}
	sort.Strings(groups)
	return groups, nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
