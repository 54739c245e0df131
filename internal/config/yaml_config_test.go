package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestUpdateYamlKey(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		key      string
		value    string
		contains []string
		absent   []string
	}{
		{
			name:     "new file",
			key:      "task-group",
			value:    "web",
			contains: []string{"task-group: web"},
		},
		{
			name:     "replace existing",
			content:  "task-group: old\njson: false\n",
			key:      "task-group",
			value:    "new",
			contains: []string{"task-group: new", "json: false"},
			absent:   []string{"old"},
		},
		{
			name:     "nested key created",
			content:  "json: true\n",
			key:      "ai.model",
			value:    "claude-sonnet-4-5",
			contains: []string{"json: true", "ai:\n  model: claude-sonnet-4-5"},
		},
		{
			name:     "nested key updated in place",
			content:  "ai:\n  model: a\n  max-tokens: 100\n",
			key:      "ai.max-tokens",
			value:    "2048",
			contains: []string{"model: a", "max-tokens: 2048"},
		},
		{
			name:     "boolean normalised",
			key:      "json",
			value:    "TRUE",
			contains: []string{"json: true"},
		},
		{
			name:     "comment kept",
			content:  "# project settings\njson: false\n",
			key:      "json",
			value:    "true",
			contains: []string{"# project settings", "json: true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := updateYamlKey([]byte(tt.content), tt.key, tt.value)
			if err != nil {
				t.Fatalf("updateYamlKey() error: %v", err)
			}
			for _, want := range tt.contains {
				if !strings.Contains(string(got), want) {
					t.Errorf("result missing %q:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(string(got), unwanted) {
					t.Errorf("result should not contain %q:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestUpdateYamlKeyQuotesSpecialStrings(t *testing.T) {
	got, err := updateYamlKey(nil, "log.file", "logs: tm.log")
	if err != nil {
		t.Fatal(err)
	}
	var parsed struct {
		Log struct {
			File string `yaml:"file"`
		} `yaml:"log"`
	}
	if err := yaml.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("result is not valid YAML: %v\n%s", err, got)
	}
	if parsed.Log.File != "logs: tm.log" {
		t.Errorf("log.file = %q", parsed.Log.File)
	}
}

func TestUpdateYamlKeyRejectsScalarParent(t *testing.T) {
	_, err := updateYamlKey([]byte("ai: off\n"), "ai.model", "x")
	if err == nil {
		t.Fatal("expected error when a parent key is a scalar")
	}
}

func TestSetYamlConfigCreatesProjectFile(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)

	path, err := SetYamlConfig("task-group", "feature")
	if err != nil {
		t.Fatalf("SetYamlConfig() error: %v", err)
	}
	if want := filepath.Join(root, DirName, "config.yaml"); path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "task-group: feature") {
		t.Errorf("config.yaml = %q", data)
	}

	if err := Initialize(); err != nil {
		t.Fatal(err)
	}
	if got := GetString("task-group"); got != "feature" {
		t.Errorf("GetString(task-group) = %q, want feature", got)
	}
}
