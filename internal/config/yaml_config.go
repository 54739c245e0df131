package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// SetYamlConfig writes key=value into the project's .taskmaster/config.yaml,
// creating the file (and .taskmaster in the working directory) when there is
// none. Dotted keys address nested mappings. Other keys and comments are
// kept.
func SetYamlConfig(key, value string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("config key must not be empty")
	}
	path, err := projectConfigYaml()
	if err != nil {
		return "", err
	}

	content, err := os.ReadFile(path) // #nosec G304 - path under project dir
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read config.yaml: %w", err)
	}
	updated, err := updateYamlKey(content, key, value)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, updated, 0o600); err != nil {
		return "", fmt.Errorf("failed to write config.yaml: %w", err)
	}
	return path, nil
}

func projectConfigYaml() (string, error) {
	dir := FindProjectDir()
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = filepath.Join(cwd, DirName)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// updateYamlKey sets a dotted key in a YAML document, creating intermediate
// mappings as needed.
func updateYamlKey(content []byte, key, value string) ([]byte, error) {
	var doc yaml.Node
	if len(bytes.TrimSpace(content)) > 0 {
		if err := yaml.Unmarshal(content, &doc); err != nil {
			return nil, fmt.Errorf("config.yaml is not valid YAML: %w", err)
		}
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("config.yaml must contain a mapping at the top level")
	}

	parts := strings.Split(key, ".")
	node := root
	for i, part := range parts {
		last := i == len(parts)-1
		child := mappingValue(node, part)
		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			if last {
				child = scalarNode(value)
			}
			node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: part}, child)
		} else if last {
			*child = *scalarNode(value)
		} else if child.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("config key %q: %s is not a mapping", key, strings.Join(parts[:i+1], "."))
		}
		node = child
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// scalarNode types a value the way a user would have typed it by hand:
// booleans and numbers stay bare, everything else (durations included) is
// a string.
func scalarNode(value string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: value, Tag: "!!str"}
	lower := strings.ToLower(value)
	switch {
	case lower == "true" || lower == "false":
		n.Tag, n.Value = "!!bool", lower
	case isInt(value):
		n.Tag = "!!int"
	case isFloat(value):
		n.Tag = "!!float"
	}
	return n
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

func isFloat(s string) bool {
	if !strings.Contains(s, ".") {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
