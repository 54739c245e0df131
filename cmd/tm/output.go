package main

import (
	"encoding/json"
	"fmt"
)

// outputJSON writes v to stdout as indented JSON.
func outputJSON(v interface{}) {
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		FatalError("encoding JSON: %v", err)
	}
}

// outputJSONError writes {"error": ..., "code": ...} to stderr and exits 1.
func outputJSONError(err error, code string) {
	payload := map[string]string{"error": err.Error()}
	if code != "" {
		payload["code"] = code
	}
	encoder := json.NewEncoder(stderr)
	encoder.SetIndent("", "  ")
	if encErr := encoder.Encode(payload); encErr != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	exitFunc(1)
}

// printf writes to the command output.
func printf(format string, args ...interface{}) {
	fmt.Fprintf(stdout, format, args...)
}

// report prints result as JSON, or its message line in text mode.
func report(result interface{}, message string) {
	if jsonOutput {
		outputJSON(result)
		return
	}
	printf("%s\n", message)
}
