// Package config loads tm settings from config files, the environment and
// flags through a single viper instance.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DirName is the per-project directory holding config and task groups.
const DirName = ".taskmaster"

// DefaultTaskGroup is used when neither config nor the legacy config.json
// names a working group.
const DefaultTaskGroup = "default"

var v *viper.Viper

// Initialize sets up viper with defaults, environment binding and any config
// files found. It may be called again to pick up changes; each call starts
// from a fresh instance.
//
// Precedence, highest first: explicit Set (flags), TM_* environment,
// .taskmaster/config.yaml in the nearest project, the user config
// ~/.config/taskmaster/config.yaml, legacy .taskmaster/config.json, defaults.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix("TM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if p := userConfigPath(); p != "" {
		if _, err := os.Stat(p); err == nil {
			v.SetConfigFile(p)
			if err := v.MergeInConfig(); err != nil {
				return fmt.Errorf("error reading user config %s: %w", p, err)
			}
		}
	}

	if dir := FindProjectDir(); dir != "" {
		if group := LoadLocalConfig(dir).LegacyTaskGroup; group != "" {
			v.SetDefault("task-group", group)
		}
		p := filepath.Join(dir, "config.yaml")
		if _, err := os.Stat(p); err == nil {
			v.SetConfigFile(p)
			if err := v.MergeInConfig(); err != nil {
				return fmt.Errorf("error reading config file %s: %w", p, err)
			}
		}
	}

	// The API key is read under its conventional name as well.
	_ = v.BindEnv("ai.api-key", "TM_AI_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("telemetry.enabled", "TM_TELEMETRY_ENABLED", "TM_OTEL_ENABLED")
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("json", false)
	v.SetDefault("tasks-file", "")
	v.SetDefault("task-group", DefaultTaskGroup)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max-size-mb", 10)
	v.SetDefault("log.max-backups", 3)

	v.SetDefault("ai.api-key", "")
	v.SetDefault("ai.model", "claude-3-5-haiku-latest")
	v.SetDefault("ai.max-tokens", 4096)
	v.SetDefault("ai.max-retries", 3)
	v.SetDefault("ai.timeout", 2*time.Minute)
	v.SetDefault("ai.prompts-file", filepath.Join(DirName, "prompts.toml"))
	v.SetDefault("ai.audit", true)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.stdout", false)
	v.SetDefault("telemetry.endpoint", "")
}

// ResetForTesting clears the loaded configuration.
func ResetForTesting() {
	v = nil
}

func ensure() *viper.Viper {
	if v == nil {
		v = viper.New()
		setDefaults(v)
	}
	return v
}

// GetString retrieves a string configuration value.
func GetString(key string) string { return ensure().GetString(key) }

// GetBool retrieves a boolean configuration value.
func GetBool(key string) bool { return ensure().GetBool(key) }

// GetInt retrieves an integer configuration value.
func GetInt(key string) int { return ensure().GetInt(key) }

// GetDuration retrieves a duration configuration value.
func GetDuration(key string) time.Duration { return ensure().GetDuration(key) }

// IsSet reports whether key has a value from any source, including defaults.
func IsSet(key string) bool { return ensure().IsSet(key) }

// Set overrides a value for the life of the process. Flags use this.
func Set(key string, value interface{}) { ensure().Set(key, value) }

// AllSettings returns every known key and its effective value.
func AllSettings() map[string]interface{} { return ensure().AllSettings() }

// ConfigFileUsed returns the last config file merged, if any.
func ConfigFileUsed() string { return ensure().ConfigFileUsed() }

// FindProjectDir walks up from the working directory looking for a
// .taskmaster directory and returns its path, or "" when there is none.
func FindProjectDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for dir := cwd; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		if dir == filepath.Dir(dir) {
			return ""
		}
	}
}

func userConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "taskmaster", "config.yaml")
}
