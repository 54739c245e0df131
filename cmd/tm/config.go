package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tmkit/taskmaster/internal/config"
)

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: GroupSetup,
	Short:   "Manage configuration settings",
	Long: `Manage configuration settings.

Settings come from, highest first: flags, TM_* environment variables,
.taskmaster/config.yaml, ~/.config/taskmaster/config.yaml and defaults.
'set' writes the project's .taskmaster/config.yaml.

Examples:
  tm config set task-group feature-x
  tm config set ai.model claude-3-5-sonnet-latest
  tm config get log.level
  tm config list`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		key := args[0]
		set := config.IsSet(key)
		value := configValue(key)
		if jsonOutput {
			outputJSON(map[string]interface{}{"key": key, "value": value, "set": set})
			return
		}
		if !set {
			printf("%s (not set)\n", key)
			return
		}
		printf("%v\n", value)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in .taskmaster/config.yaml",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		key, value := args[0], args[1]
		if key == "ai.api-key" {
			WarnError("storing an API key in config.yaml; prefer ANTHROPIC_API_KEY")
		}
		path, err := config.SetYamlConfig(key, value)
		if err != nil {
			FatalError("%v", err)
			return
		}
		if jsonOutput {
			outputJSON(map[string]string{"key": key, "value": value, "file": path})
			return
		}
		printf("Set %s = %s (in %s)\n", key, value, path)
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every configuration value",
	Run: func(_ *cobra.Command, _ []string) {
		flat := flatSettings()
		for k, v := range flat {
			flat[k] = mask(k, v)
		}
		if jsonOutput {
			outputJSON(flat)
			return
		}
		keys := make([]string, 0, len(flat))
		for k := range flat {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			printf("%s = %v\n", k, flat[k])
		}
		if f := config.ConfigFileUsed(); f != "" {
			printf("\nConfig file: %s\n", f)
		}
	},
}

func flatten(prefix string, m map[string]interface{}, out map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

func flatSettings() map[string]interface{} {
	flat := map[string]interface{}{}
	flatten("", config.AllSettings(), flat)
	return flat
}

// configValue returns the effective value of key, with secrets masked.
func configValue(key string) interface{} {
	if v, ok := flatSettings()[strings.ToLower(key)]; ok {
		return mask(key, v)
	}
	return mask(key, config.GetString(key))
}

func mask(key string, v interface{}) interface{} {
	if strings.HasSuffix(key, "api-key") && fmt.Sprint(v) != "" {
		return "********"
	}
	return v
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)
}
