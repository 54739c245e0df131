package config

import (
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// LocalConfig is the subset of a project's config read straight from disk,
// bypassing viper. Commands that operate on a directory other than the
// working directory (migrate, list --all-groups) use it.
type LocalConfig struct {
	TasksFile string `yaml:"tasks-file"`
	TaskGroup string `yaml:"task-group"`

	// LegacyTaskGroup is global.workingTaskGroup from config.json.
	LegacyTaskGroup string `yaml:"-"`
}

// LoadLocalConfig reads config.yaml and the legacy config.json from the
// given .taskmaster directory. Missing or unparsable files yield zero
// values.
func LoadLocalConfig(taskmasterDir string) *LocalConfig {
	var cfg LocalConfig

	data, err := os.ReadFile(filepath.Join(taskmasterDir, "config.yaml")) // #nosec G304 - path under project dir
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			cfg = LocalConfig{}
		}
	}

	legacy, err := os.ReadFile(filepath.Join(taskmasterDir, "config.json")) // #nosec G304 - path under project dir
	if err == nil && gjson.ValidBytes(legacy) {
		cfg.LegacyTaskGroup = gjson.GetBytes(legacy, "global.workingTaskGroup").String()
	}
	return &cfg
}

// Group returns the task group this config selects: task-group, then the
// legacy working group, then DefaultTaskGroup.
func (c *LocalConfig) Group() string {
	switch {
	case c.TaskGroup != "":
		return c.TaskGroup
	case c.LegacyTaskGroup != "":
		return c.LegacyTaskGroup
	}
	return DefaultTaskGroup
}
