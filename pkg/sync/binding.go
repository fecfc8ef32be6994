package sync

import (
	"path/filepath"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/policy"
)

// State is the reconciliation state of one sync binding.
type State string

// The binding state machine. Synced and SyncFailed are terminal for a
// given sync pass; a new trigger restarts the machine.
const (
	Unsynced       State = "UNSYNCED"
	SyncTriggered  State = "SYNC_TRIGGERED"
	SyncInProgress State = "SYNC_IN_PROGRESS"
	Synced         State = "SYNCED"
	SyncFailed     State = "SYNC_FAILED"
)

// Terminal returns whether the state is terminal for the current pass.
func (s State) Terminal() bool {
	return s == Synced || s == SyncFailed
}

// Binding associates a context, a mount path, and a policy within one
// session. It's immutable for the binding's lifetime. Many bindings can
// attach to one session as long as their mount paths are disjoint.
type Binding struct {
	ContextID string
	MountPath string
	Policy    policy.Policy
}

// Validate checks the binding's invariants.
func (b Binding) Validate() error {
	if b.ContextID == "" {
		return errors.ValidationError{Reason: "binding requires a contextId"}
	}
	if b.MountPath == "" {
		return errors.ValidationError{Reason: "binding requires a mount path"}
	}
	if !filepath.IsAbs(b.MountPath) {
		return errors.ValidationError{Reason: "mount path must be absolute"}
	}
	return nil
}

// key uniquely identifies a binding within a session.
func (b Binding) key() string {
	return b.ContextID + "\x00" + b.MountPath
}
