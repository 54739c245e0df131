package taskmgr

import (
	"errors"
	"fmt"
)

// Code classifies a failed operation for CLI JSON output and MCP tool
// results.
type Code string

const (
	CodeInvalidTaskID     Code = "INVALID_TASK_ID"
	CodeMissingArgument   Code = "MISSING_ARGUMENT"
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeTaskNotFound      Code = "TASK_NOT_FOUND"
	CodeSubtaskNotFound   Code = "SUBTASK_NOT_FOUND"
	CodeTasksFileNotFound Code = "TASKS_FILE_NOT_FOUND"
	CodeInvalidTasksFile  Code = "INVALID_TASKS_FILE"
	CodeFileExists        Code = "FILE_EXISTS"
	CodeTaskLocked        Code = "TASK_LOCKED"
	CodeInvalidPosition   Code = "INVALID_POSITION"
	CodeDependency        Code = "DEPENDENCY_ERROR"
	CodeClearSubtasks     Code = "CLEAR_SUBTASKS_ERROR"
	CodeAIUnavailable     Code = "AI_UNAVAILABLE"
	CodeAIFailed          Code = "AI_ERROR"
	CodeInvalidAIResponse Code = "INVALID_AI_RESPONSE"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// Error is a failed operation with a machine-readable code. Nothing is
// written when an operation returns one.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

func errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

func wrap(code Code, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: code, Err: err}
}

// CodeOf returns the code carried by err, or CodeInternal for errors that
// carry none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
