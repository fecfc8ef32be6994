package errors

import (
	"fmt"
	"strings"
	"time"
)

// FileNotFound represents when we were unable to access a file
// because the path didn't exist.
type FileNotFound struct {
	Path string
}

func (err FileNotFound) Error() string {
	return fmt.Sprintf("%q does not exist", err.Path)
}

// ValidationError represents a caller-supplied parameter that violates an
// operation's contract. It is always raised locally, before any remote
// call is made, and is never retried.
type ValidationError struct {
	Reason string
}

func (err ValidationError) Error() string {
	return fmt.Sprintf("invalid argument: %s", err.Reason)
}

// NotFoundError represents a referenced resource that no longer exists on
// the control plane.
type NotFoundError struct {
	Kind string
	ID   string
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", err.Kind, err.ID)
}

// ConflictError represents a resource that already exists, such as a
// context name that's already taken. It's recoverable -- callers that want
// get-or-create semantics should use the idempotent lookup path instead.
type ConflictError struct {
	Kind string
	Name string
}

func (err ConflictError) Error() string {
	return fmt.Sprintf("%s %q already exists", err.Kind, err.Name)
}

// RemoteRejectionError represents a request that the control plane
// explicitly refused. It is surfaced to the caller without any automatic
// retries.
type RemoteRejectionError struct {
	Op      string
	Code    string
	Message string
}

func (err RemoteRejectionError) Error() string {
	if err.Code == "" {
		return fmt.Sprintf("%s rejected: %s", err.Op, err.Message)
	}
	return fmt.Sprintf("%s rejected (%s): %s", err.Op, err.Code, err.Message)
}

// TimeoutError represents a poll budget that was exhausted before the
// remote task reached a terminal state. LastStatus carries the most recent
// observation so that callers can decide whether to keep polling.
type TimeoutError struct {
	Op         string
	LastStatus string
	Elapsed    time.Duration
}

func (err TimeoutError) Error() string {
	return fmt.Sprintf("%s did not finish within %s (last status %q)",
		err.Op, err.Elapsed, err.LastStatus)
}

// ClearanceTimeoutError represents a context clear that did not reach the
// available state within the configured timeout.
type ClearanceTimeoutError struct {
	ContextID string
	LastState string
}

func (err ClearanceTimeoutError) Error() string {
	return fmt.Sprintf("clearing context %q timed out (last state %q)",
		err.ContextID, err.LastState)
}

// FileFailure describes a single file that failed within an otherwise
// completed sync task.
type FileFailure struct {
	Path     string
	TaskType string
	Message  string
}

// PartialSyncError represents a sync task in which some, but not all,
// files failed. The per-file details remain inspectable rather than being
// collapsed into a single boolean.
type PartialSyncError struct {
	Failed []FileFailure
}

func (err PartialSyncError) Error() string {
	paths := make([]string, 0, len(err.Failed))
	for _, f := range err.Failed {
		paths = append(paths, f.Path)
	}
	return fmt.Sprintf("sync failed for %d file(s): %s",
		len(err.Failed), strings.Join(paths, ", "))
}

// CancelledError represents a poll loop that was stopped early by the
// caller's context, as opposed to exhausting its retry budget.
type CancelledError struct {
	Op string
}

func (err CancelledError) Error() string {
	return fmt.Sprintf("%s cancelled", err.Op)
}
