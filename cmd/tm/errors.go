package main

import (
	"fmt"

	"github.com/tmkit/taskmaster/internal/taskmgr"
)

// FatalError writes an error message to stderr and exits with code 1.
// Use this for input validation failures and errors that stop the command.
func FatalError(format string, args ...interface{}) {
	fmt.Fprintf(stderr, "Error: "+format+"\n", args...)
	exitFunc(1)
}

// FatalErrorWithHint writes an error message with a hint to stderr and exits.
//
// Example:
//
//	FatalErrorWithHint("tasks file not found", "Run 'tm init' to create one")
func FatalErrorWithHint(message, hint string) {
	fmt.Fprintf(stderr, "Error: %s\n", message)
	fmt.Fprintf(stderr, "Hint: %s\n", hint)
	exitFunc(1)
}

// WarnError writes a warning message to stderr and returns.
// Use this for optional steps whose failure should not stop the command.
func WarnError(format string, args ...interface{}) {
	fmt.Fprintf(stderr, "Warning: "+format+"\n", args...)
}

// hints for codes where the fix is usually the same.
var hints = map[taskmgr.Code]string{
	taskmgr.CodeTasksFileNotFound: "Run 'tm init' to create a tasks file, or 'tm migrate' to move a legacy one",
	taskmgr.CodeInvalidTasksFile:  "Check the file is a JSON object with a \"tasks\" array",
	taskmgr.CodeAIUnavailable:     "Set ANTHROPIC_API_KEY or ai.api-key to enable AI operations",
	taskmgr.CodeTaskLocked:        "Edit fields directly with flags instead of --prompt",
	taskmgr.CodeFileExists:        "Pass --force to overwrite or --append to add to it",
}

// fail reports err from a task operation and exits. In JSON mode the error
// and its code go to stderr as a JSON object.
func fail(err error) {
	code := taskmgr.CodeOf(err)
	if jsonOutput {
		outputJSONError(err, string(code))
		return
	}
	if hint, ok := hints[code]; ok {
		FatalErrorWithHint(err.Error(), hint)
		return
	}
	FatalError("%v", err)
}
