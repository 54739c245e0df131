package types

import "strings"

// Status is free-form; the constants below are the values the tool knows
// how to reason about.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
	StatusDeferred   Status = "deferred"
	StatusCancelled  Status = "cancelled"
	StatusReview     Status = "review"
)

// KnownStatuses lists the built-in statuses in display order.
var KnownStatuses = []Status{
	StatusPending, StatusInProgress, StatusReview, StatusBlocked,
	StatusDeferred, StatusDone, StatusCompleted, StatusCancelled,
}

// IsKnown reports whether s is one of the built-in statuses.
func (s Status) IsKnown() bool {
	for _, k := range KnownStatuses {
		if s == k {
			return true
		}
	}
	return false
}

// IsDone reports whether s counts as finished work.
func (s Status) IsDone() bool {
	switch Status(strings.ToLower(string(s))) {
	case StatusDone, StatusCompleted:
		return true
	}
	return false
}

// IsClosed reports whether no further work is expected.
func (s Status) IsClosed() bool {
	return s.IsDone() || Status(strings.ToLower(string(s))) == StatusCancelled
}

// Priority is one of high, medium or low.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// IsValid reports whether p is a recognized priority.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank orders priorities for scheduling; lower is more urgent. Unknown
// priorities sort with medium.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Executor says who carries out a task.
type Executor string

const (
	ExecutorAgent Executor = "agent"
	ExecutorHuman Executor = "human"
)
