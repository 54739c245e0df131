package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeProjectConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	dir := filepath.Join(tmpDir, DirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("failed to create %s: %v", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return tmpDir
}

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	tests := []struct {
		key      string
		expected interface{}
		getter   func(string) interface{}
	}{
		{"json", false, func(k string) interface{} { return GetBool(k) }},
		{"task-group", "default", func(k string) interface{} { return GetString(k) }},
		{"tasks-file", "", func(k string) interface{} { return GetString(k) }},
		{"log.level", "info", func(k string) interface{} { return GetString(k) }},
		{"ai.model", "claude-3-5-haiku-latest", func(k string) interface{} { return GetString(k) }},
		{"ai.max-tokens", 4096, func(k string) interface{} { return GetInt(k) }},
		{"ai.max-retries", 3, func(k string) interface{} { return GetInt(k) }},
		{"ai.timeout", 2 * time.Minute, func(k string) interface{} { return GetDuration(k) }},
		{"ai.audit", true, func(k string) interface{} { return GetBool(k) }},
		{"telemetry.enabled", false, func(k string) interface{} { return GetBool(k) }},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := tt.getter(tt.key); got != tt.expected {
				t.Errorf("Get(%q) = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestEnvironmentBinding(t *testing.T) {
	t.Chdir(t.TempDir())
	tests := []struct {
		envVar   string
		key      string
		value    string
		expected interface{}
		getter   func(string) interface{}
	}{
		{"TM_JSON", "json", "true", true, func(k string) interface{} { return GetBool(k) }},
		{"TM_TASK_GROUP", "task-group", "feature-x", "feature-x", func(k string) interface{} { return GetString(k) }},
		{"TM_LOG_LEVEL", "log.level", "debug", "debug", func(k string) interface{} { return GetString(k) }},
		{"TM_AI_TIMEOUT", "ai.timeout", "10s", 10 * time.Second, func(k string) interface{} { return GetDuration(k) }},
		{"ANTHROPIC_API_KEY", "ai.api-key", "sk-test", "sk-test", func(k string) interface{} { return GetString(k) }},
		{"TM_OTEL_ENABLED", "telemetry.enabled", "true", true, func(k string) interface{} { return GetBool(k) }},
	}

	for _, tt := range tests {
		t.Run(tt.envVar, func(t *testing.T) {
			t.Setenv(tt.envVar, tt.value)
			if err := Initialize(); err != nil {
				t.Fatalf("Initialize() returned error: %v", err)
			}
			if got := tt.getter(tt.key); got != tt.expected {
				t.Errorf("Get(%q) with %s=%s = %v, want %v", tt.key, tt.envVar, tt.value, got, tt.expected)
			}
		})
	}
}

func TestConfigFile(t *testing.T) {
	root := writeProjectConfig(t, `
json: true
task-group: api
ai:
  model: claude-sonnet-4-5
  timeout: 45s
`)
	sub := filepath.Join(root, "nested", "deeper")
	if err := os.MkdirAll(sub, 0o750); err != nil {
		t.Fatal(err)
	}
	t.Chdir(sub)

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetBool("json"); !got {
		t.Errorf("GetBool(json) = %v, want true", got)
	}
	if got := GetString("task-group"); got != "api" {
		t.Errorf("GetString(task-group) = %q, want api", got)
	}
	if got := GetString("ai.model"); got != "claude-sonnet-4-5" {
		t.Errorf("GetString(ai.model) = %q", got)
	}
	if got := GetDuration("ai.timeout"); got != 45*time.Second {
		t.Errorf("GetDuration(ai.timeout) = %v, want 45s", got)
	}
}

func TestConfigPrecedence(t *testing.T) {
	t.Chdir(writeProjectConfig(t, "json: false\n"))

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if GetBool("json") {
		t.Errorf("GetBool(json) from config file = true, want false")
	}

	t.Setenv("TM_JSON", "true")
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if !GetBool("json") {
		t.Errorf("GetBool(json) with env var = false, want true (env should override config)")
	}

	Set("json", false)
	if GetBool("json") {
		t.Errorf("GetBool(json) after Set = true, want false (Set should override env)")
	}
}

func TestLegacyWorkingTaskGroup(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, DirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}
	legacy := `{"global": {"workingTaskGroup": "legacy-group"}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(legacy), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(root)

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetString("task-group"); got != "legacy-group" {
		t.Errorf("GetString(task-group) = %q, want legacy-group", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("task-group: yaml-group\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetString("task-group"); got != "yaml-group" {
		t.Errorf("GetString(task-group) = %q, want yaml-group", got)
	}
}

func TestUserConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	userDir := filepath.Join(xdg, "taskmaster")
	if err := os.MkdirAll(userDir, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte("log:\n  level: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	if got := GetString("log.level"); got != "warn" {
		t.Errorf("GetString(log.level) = %q, want warn", got)
	}
}

func TestResetForTesting(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := Initialize(); err != nil {
		t.Fatal(err)
	}
	Set("task-group", "changed")
	ResetForTesting()
	if got := GetString("task-group"); got != DefaultTaskGroup {
		t.Errorf("GetString(task-group) after reset = %q, want %q", got, DefaultTaskGroup)
	}
}

func TestAllSettings(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}
	settings := AllSettings()
	ai, ok := settings["ai"].(map[string]interface{})
	if !ok {
		t.Fatalf("AllSettings()[ai] = %#v, want a map", settings["ai"])
	}
	if ai["model"] != "claude-3-5-haiku-latest" {
		t.Errorf("ai.model = %v", ai["model"])
	}
}
