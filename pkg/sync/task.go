package sync

import (
	"context"
	goSync "sync"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/client"
)

// Result is the terminal outcome of one sync pass. Partial progress stays
// inspectable through Entries rather than being collapsed into Success.
type Result struct {
	Success bool

	// ContextID and Path identify the binding the pass covered. They're
	// empty for passes that spanned every binding.
	ContextID string
	Path      string

	// LastStatus is the most recent status observed before the pass
	// resolved. On timeout this is what the caller should re-poll against.
	LastStatus string

	// Entries are the status entries observed on the final poll.
	Entries []client.TaskStatus

	// Err is the typed failure, if any.
	Err error
}

// Task is the handle for a sync pass whose poll loop runs in the
// background. The blocking and callback calling conventions are both
// built on it: Wait blocks until the loop resolves, and Notify attaches a
// callback that fires exactly once on completion.
type Task struct {
	mu        goSync.Mutex
	done      chan struct{}
	result    Result
	callbacks []func(Result)
	cancel    context.CancelFunc
}

func newTask(cancel context.CancelFunc) *Task {
	return &Task{
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// complete records the result and fires the callbacks. Calling complete
// more than once is a programming error; the poll loop resolves exactly
// once.
func (t *Task) complete(result Result) {
	t.mu.Lock()
	t.result = result
	callbacks := t.callbacks
	t.callbacks = nil
	close(t.done)
	t.mu.Unlock()

	for _, callback := range callbacks {
		callback(result)
	}
}

// Done returns a channel that's closed when the pass resolves.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the pass resolves and returns its result.
func (t *Task) Wait() Result {
	<-t.done
	return t.result
}

// Notify registers a callback that fires exactly once when the pass
// resolves. If the pass already resolved, the callback fires immediately
// on the calling goroutine.
func (t *Task) Notify(callback func(Result)) {
	t.mu.Lock()
	select {
	case <-t.done:
		result := t.result
		t.mu.Unlock()
		callback(result)
		return
	default:
	}
	t.callbacks = append(t.callbacks, callback)
	t.mu.Unlock()
}

// Cancel stops the background poll loop. The pass resolves with a
// CancelledError rather than waiting out its retry budget.
func (t *Task) Cancel() {
	t.cancel()
}
