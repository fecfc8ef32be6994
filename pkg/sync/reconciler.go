// Package sync drives bulk, policy-governed synchronization between a
// session's mounted paths and their bound contexts. The control plane owns
// the sync tasks themselves; the reconciler triggers them and polls their
// status entries until every task for a binding reaches a terminal state.
package sync

import (
	"context"
	"sort"
	goSync "sync"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/client"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
)

// Defaults for the sync poll loop.
const (
	DefaultMaxRetries    = 150
	DefaultRetryInterval = 1500 * time.Millisecond
)

// Reconciler tracks the sync bindings of one session and drives their
// reconciliation. It holds no state beyond the bindings and their
// in-flight passes; all task state lives on the control plane.
type Reconciler struct {
	client    client.Client
	sessionID string
	clock     clockwork.Clock

	mu       goSync.Mutex
	bindings map[string]*boundContext
	ordered  []string
}

// boundContext is a binding plus its local reconciliation state. Each
// binding carries its own mutex: overlapping sync passes on one binding
// queue rather than interleave. (The control plane doesn't serialize
// tasks itself.)
type boundContext struct {
	binding Binding

	passMu       goSync.Mutex
	state        State
	lastSnapshot Snapshot
}

// NewReconciler creates a Reconciler for a session's bindings. Mount paths
// must be pairwise disjoint.
func NewReconciler(c client.Client, sessionID string, bindings []Binding) (*Reconciler, error) {
	if sessionID == "" {
		return nil, errors.ValidationError{Reason: "sessionId is required"}
	}

	r := &Reconciler{
		client:    c,
		sessionID: sessionID,
		clock:     clockwork.NewRealClock(),
		bindings:  map[string]*boundContext{},
	}

	for _, binding := range bindings {
		if err := binding.Validate(); err != nil {
			return nil, err
		}
		binding.Policy = binding.Policy.WithDefaults()

		for _, other := range r.bindings {
			if pathsOverlap(binding.MountPath, other.binding.MountPath) {
				return nil, errors.ValidationError{
					Reason: "mount paths must be disjoint: " +
						binding.MountPath + " overlaps " + other.binding.MountPath}
			}
		}

		key := binding.key()
		r.bindings[key] = &boundContext{binding: binding, state: Unsynced}
		r.ordered = append(r.ordered, key)
	}
	sort.Strings(r.ordered)
	return r, nil
}

// Bindings returns the reconciler's bindings in a stable order.
func (r *Reconciler) Bindings() []Binding {
	r.mu.Lock()
	defer r.mu.Unlock()

	bindings := make([]Binding, 0, len(r.ordered))
	for _, key := range r.ordered {
		bindings = append(bindings, r.bindings[key].binding)
	}
	return bindings
}

// BindingState returns the reconciliation state of the binding for the
// given context and mount path.
func (r *Reconciler) BindingState(contextID, mountPath string) (State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bound, ok := r.bindings[Binding{ContextID: contextID, MountPath: mountPath}.key()]
	if !ok {
		return "", false
	}
	return bound.state, true
}

func (r *Reconciler) setState(bound *boundContext, state State) {
	r.mu.Lock()
	bound.state = state
	r.mu.Unlock()
}

// InfoFilter selects status entries. All supplied filters must match.
type InfoFilter struct {
	ContextID string
	Path      string
	TaskType  string
}

// Info is a filtered read of the session's current and past sync task
// statuses. It's a pure query with no side effects. Entries for bindings
// with a mapping policy are surfaced in the mounted namespace.
func (r *Reconciler) Info(ctx context.Context, filter InfoFilter) ([]client.TaskStatus, error) {
	entries, err := r.client.SyncStatus(ctx, r.sessionID)
	if err != nil {
		return nil, errors.WithContext(err, "query sync status")
	}

	for _, bound := range r.allBindings() {
		entries = remapStatuses(entries, bound.binding)
	}

	var matched []client.TaskStatus
	for _, entry := range entries {
		if filter.ContextID != "" && entry.ContextID != filter.ContextID {
			continue
		}
		if filter.Path != "" && entry.Path != filter.Path {
			continue
		}
		if filter.TaskType != "" && entry.TaskType != filter.TaskType {
			continue
		}
		matched = append(matched, entry)
	}
	return matched, nil
}

func (r *Reconciler) allBindings() []*boundContext {
	r.mu.Lock()
	defer r.mu.Unlock()

	bound := make([]*boundContext, 0, len(r.ordered))
	for _, key := range r.ordered {
		bound = append(bound, r.bindings[key])
	}
	return bound
}

// Request describes one sync pass. ContextID and Path must be supplied
// together or not at all; when absent, the pass covers every binding.
type Request struct {
	ContextID string
	Path      string

	// TaskType is the direction of the pass: TaskUpload (default) or
	// TaskDownload.
	TaskType string

	// Mode overrides the binding's upload mode hint for this pass.
	Mode string

	MaxRetries    int
	RetryInterval time.Duration
}

func (req *Request) applyDefaults() {
	if req.TaskType == "" {
		req.TaskType = client.TaskUpload
	}
	if req.MaxRetries <= 0 {
		req.MaxRetries = DefaultMaxRetries
	}
	if req.RetryInterval <= 0 {
		req.RetryInterval = DefaultRetryInterval
	}
}

// Sync triggers a sync pass and returns a Task tracking it. The poll loop
// runs on a background goroutine; use Task.Wait for the blocking calling
// convention or Task.Notify for the callback one.
func (r *Reconciler) Sync(ctx context.Context, req Request) (*Task, error) {
	req.applyDefaults()

	targets, err := r.resolveTargets(req)
	if err != nil {
		return nil, err
	}
	return r.syncTargets(ctx, targets, req)
}

func (r *Reconciler) syncTargets(ctx context.Context, targets []*boundContext,
	req Request) (*Task, error) {

	// Serialize against other passes touching the same bindings. The
	// locks are taken in a stable order to avoid deadlocking with a
	// concurrent pass over an overlapping set.
	for _, bound := range targets {
		bound.passMu.Lock()
	}
	unlock := func() {
		for _, bound := range targets {
			bound.passMu.Unlock()
		}
	}

	for _, bound := range targets {
		if err := r.triggerOne(ctx, bound, req); err != nil {
			unlock()
			return nil, err
		}
	}

	pollCtx, cancel := context.WithCancel(ctx)
	task := newTask(cancel)
	go func() {
		defer unlock()
		defer cancel()
		task.complete(r.poll(pollCtx, targets, req))
	}()
	return task, nil
}

// SyncAndWait is the blocking form of Sync.
func (r *Reconciler) SyncAndWait(ctx context.Context, req Request) (Result, error) {
	task, err := r.Sync(ctx, req)
	if err != nil {
		return Result{}, err
	}

	result := task.Wait()
	return result, result.Err
}

func (r *Reconciler) resolveTargets(req Request) ([]*boundContext, error) {
	if (req.ContextID == "") != (req.Path == "") {
		return nil, errors.ValidationError{
			Reason: "contextId and path must be supplied together"}
	}

	if req.ContextID == "" {
		targets := r.allBindings()
		if len(targets) == 0 {
			return nil, errors.ValidationError{Reason: "session has no sync bindings"}
		}
		return targets, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	bound, ok := r.bindings[Binding{ContextID: req.ContextID, MountPath: req.Path}.key()]
	if !ok {
		return nil, errors.ValidationError{
			Reason: "no binding for context " + req.ContextID + " at " + req.Path}
	}
	return []*boundContext{bound}, nil
}

func (r *Reconciler) triggerOne(ctx context.Context, bound *boundContext, req Request) error {
	binding := bound.binding

	if req.TaskType == client.TaskUpload {
		if err := r.propagateDeletes(ctx, bound); err != nil {
			return err
		}
	}

	mode := req.Mode
	if mode == "" && binding.Policy.Upload != nil {
		mode = string(binding.Policy.Upload.Mode)
	}

	err := r.client.TriggerSync(ctx, client.SyncTrigger{
		SessionID: r.sessionID,
		ContextID: binding.ContextID,
		Path:      binding.MountPath,
		TaskType:  req.TaskType,
		Mode:      mode,
		Policy:    &binding.Policy,
	})
	if err != nil {
		r.setState(bound, SyncFailed)
		return errors.WithContext(err, "trigger sync")
	}

	r.setState(bound, SyncTriggered)
	log.WithFields(log.Fields{
		"context":  binding.ContextID,
		"path":     binding.MountPath,
		"taskType": req.TaskType,
	}).Debug("Triggered sync task")
	return nil
}

// propagateDeletes issues targeted remote deletes for files that
// disappeared locally since the last upload pass, per the binding's delete
// policy. The bulk sync task only transfers what exists; deletions ride
// the single-object path.
func (r *Reconciler) propagateDeletes(ctx context.Context, bound *boundContext) error {
	binding := bound.binding

	snapshot, err := TakeSnapshot(binding.MountPath, binding.Policy.BWList)
	if err != nil {
		return errors.WithContext(err, "snapshot mount path")
	}

	prev := bound.lastSnapshot

	deletePolicy := binding.Policy.Delete
	if deletePolicy == nil || !deletePolicy.SyncLocalDeletes || prev == nil {
		bound.lastSnapshot = snapshot
		return nil
	}

	_, removed := prev.Diff(snapshot)
	for _, path := range removed {
		if err := r.client.DeleteFile(ctx, binding.ContextID, path); err != nil {
			// A missing remote object means the delete already happened,
			// e.g. through retention.
			if _, notFound := err.(errors.NotFoundError); notFound {
				continue
			}
			return errors.WithContext(err, "propagate delete")
		}
		log.WithFields(log.Fields{
			"context": binding.ContextID,
			"path":    path,
		}).Debug("Propagated local delete")
	}

	// The baseline only advances once every removal has propagated, so a
	// failed delete stays in the diff for the next pass.
	bound.lastSnapshot = snapshot
	return nil
}

// poll reads the session's status entries until every task for the target
// bindings is terminal, the retry budget runs out, or the context is
// cancelled.
func (r *Reconciler) poll(ctx context.Context, targets []*boundContext, req Request) Result {
	result := Result{ContextID: req.ContextID, Path: req.Path}

	for attempt := 0; attempt < req.MaxRetries; attempt++ {
		entries, err := r.client.SyncStatus(ctx, r.sessionID)
		if err != nil {
			// Status reads can fail transiently; the retry budget covers
			// them like any other non-terminal observation.
			log.WithError(err).Debug("Sync status read failed")
		} else {
			relevant := filterRelevant(entries, targets, req.TaskType)
			result.Entries = relevant
			result.LastStatus = summarize(relevant)

			if done, failures := r.observe(targets, relevant); done {
				if len(failures) == 0 {
					result.Success = true
					return result
				}
				result.Err = errors.PartialSyncError{Failed: failures}
				return result
			}
		}

		select {
		case <-ctx.Done():
			for _, bound := range targets {
				r.setState(bound, SyncFailed)
			}
			result.Err = errors.CancelledError{Op: "sync"}
			return result
		case <-r.clock.After(req.RetryInterval):
		}
	}

	for _, bound := range targets {
		r.setState(bound, SyncFailed)
	}
	result.Err = errors.TimeoutError{
		Op:         "sync",
		LastStatus: result.LastStatus,
		Elapsed:    time.Duration(req.MaxRetries) * req.RetryInterval,
	}
	return result
}

// observe updates the binding states from the relevant entries and reports
// whether the pass is done, together with any per-file failures.
func (r *Reconciler) observe(targets []*boundContext,
	relevant []client.TaskStatus) (done bool, failures []errors.FileFailure) {

	if len(relevant) == 0 {
		// The trigger may not be reflected on the very next read.
		return false, nil
	}

	allTerminal := true
	failed := map[string]bool{}
	for _, entry := range relevant {
		if !entry.Terminal() {
			allTerminal = false
			continue
		}
		if entry.Status == client.StatusFailed {
			failed[entry.ContextID] = true
			failures = append(failures, errors.FileFailure{
				Path:     entry.Path,
				TaskType: entry.TaskType,
				Message:  entry.ErrorMessage,
			})
		}
	}

	for _, bound := range targets {
		if !allTerminal {
			r.setState(bound, SyncInProgress)
		} else if failed[bound.binding.ContextID] {
			r.setState(bound, SyncFailed)
		} else {
			r.setState(bound, Synced)
		}
	}
	return allTerminal, failures
}

func filterRelevant(entries []client.TaskStatus, targets []*boundContext,
	taskType string) []client.TaskStatus {

	var relevant []client.TaskStatus
	for _, entry := range entries {
		if entry.TaskType != taskType {
			continue
		}
		for _, bound := range targets {
			if entry.ContextID == bound.binding.ContextID {
				relevant = append(relevant, entry)
				break
			}
		}
	}
	return relevant
}

// summarize reduces a set of entries to a single status string for
// timeout reporting: the least-advanced status wins.
func summarize(entries []client.TaskStatus) string {
	if len(entries) == 0 {
		return StatusNoTasks
	}

	rank := map[string]int{
		client.StatusPending:    0,
		client.StatusInProgress: 1,
		client.StatusFailed:     2,
		client.StatusSuccess:    3,
	}

	summary := entries[0].Status
	best, known := rank[summary]
	for _, entry := range entries[1:] {
		r, ok := rank[entry.Status]
		if !known || (ok && r < best) {
			summary, best, known = entry.Status, r, ok
		}
	}
	return summary
}

// StatusNoTasks is reported when the control plane hasn't surfaced any
// task entries for the pass yet.
const StatusNoTasks = "no_tasks"

func pathsOverlap(a, b string) bool {
	if a == b {
		return true
	}
	_, aUnderB := RemapPath(a, b, "/")
	_, bUnderA := RemapPath(b, a, "/")
	return aUnderB || bUnderA
}
