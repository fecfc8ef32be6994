package sync

import (
	"context"
	goSync "sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/client"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/client/clienttest"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/policy"
)

// fastRequest keeps poll loops short in tests.
func fastRequest(req Request) Request {
	req.MaxRetries = 5
	req.RetryInterval = time.Millisecond
	return req
}

func newTestReconciler(t *testing.T, fake *clienttest.Fake,
	bindings ...Binding) *Reconciler {

	reconciler, err := NewReconciler(fake, "sess-1", bindings)
	require.NoError(t, err)
	return reconciler
}

func TestNewReconcilerValidation(t *testing.T) {
	fake := clienttest.New()

	_, err := NewReconciler(fake, "", nil)
	var validation errors.ValidationError
	assert.True(t, errors.As(err, &validation))

	_, err = NewReconciler(fake, "sess-1", []Binding{
		{ContextID: "ctx-1", MountPath: "relative"},
	})
	assert.True(t, errors.As(err, &validation))

	// Nested mount paths are rejected.
	_, err = NewReconciler(fake, "sess-1", []Binding{
		{ContextID: "ctx-1", MountPath: "/mnt/data"},
		{ContextID: "ctx-2", MountPath: "/mnt/data/sub"},
	})
	assert.True(t, errors.As(err, &validation))
}

func TestSyncParameterPairing(t *testing.T) {
	fs = afero.NewMemMapFs()
	fake := clienttest.New()
	id := fake.AddContext("data")
	reconciler := newTestReconciler(t, fake,
		Binding{ContextID: id, MountPath: "/mnt/data"})

	ctx := context.Background()
	var validation errors.ValidationError

	_, err := reconciler.Sync(ctx, fastRequest(Request{ContextID: id}))
	assert.True(t, errors.As(err, &validation))

	_, err = reconciler.Sync(ctx, fastRequest(Request{Path: "/mnt/data"}))
	assert.True(t, errors.As(err, &validation))

	_, err = reconciler.Sync(ctx, fastRequest(Request{
		ContextID: id, Path: "/mnt/elsewhere"}))
	assert.True(t, errors.As(err, &validation))
}

func TestSyncSuccess(t *testing.T) {
	fs = afero.NewMemMapFs()
	fake := clienttest.New()
	id := fake.AddContext("data")
	reconciler := newTestReconciler(t, fake,
		Binding{ContextID: id, MountPath: "/mnt/data"})

	// The task is pending on the first poll and succeeds afterwards.
	var mu goSync.Mutex
	polls := 0
	fake.StatusFn = func(string) ([]client.TaskStatus, error) {
		mu.Lock()
		defer mu.Unlock()
		polls++
		status := client.StatusSuccess
		if polls == 1 {
			status = client.StatusPending
		}
		return []client.TaskStatus{
			{ContextID: id, Path: "/mnt/data", TaskType: client.TaskUpload,
				Status: status},
		}, nil
	}

	result, err := reconciler.SyncAndWait(context.Background(), fastRequest(Request{}))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, client.StatusSuccess, result.LastStatus)

	state, ok := reconciler.BindingState(id, "/mnt/data")
	require.True(t, ok)
	assert.Equal(t, Synced, state)

	require.Len(t, fake.Triggers, 1)
	trigger := fake.Triggers[0]
	assert.Equal(t, "sess-1", trigger.SessionID)
	assert.Equal(t, client.TaskUpload, trigger.TaskType)

	// The binding's policy rides along on the trigger.
	require.NotNil(t, trigger.Policy)
	assert.True(t, trigger.Policy.Upload.AutoUpload)
}

func TestSyncTimeout(t *testing.T) {
	fs = afero.NewMemMapFs()
	fake := clienttest.New()
	id := fake.AddContext("data")
	reconciler := newTestReconciler(t, fake,
		Binding{ContextID: id, MountPath: "/mnt/data"})

	fake.SetTasks([]client.TaskStatus{
		{ContextID: id, Path: "/mnt/data", TaskType: client.TaskUpload,
			Status: client.StatusInProgress},
	})

	_, err := reconciler.SyncAndWait(context.Background(), fastRequest(Request{}))
	var timeout errors.TimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, client.StatusInProgress, timeout.LastStatus)

	state, _ := reconciler.BindingState(id, "/mnt/data")
	assert.Equal(t, SyncFailed, state)
}

func TestSyncPartialFailure(t *testing.T) {
	fs = afero.NewMemMapFs()
	fake := clienttest.New()
	id := fake.AddContext("data")
	reconciler := newTestReconciler(t, fake,
		Binding{ContextID: id, MountPath: "/mnt/data"})

	fake.SetTasks([]client.TaskStatus{
		{ContextID: id, Path: "/mnt/data/ok.txt", TaskType: client.TaskUpload,
			Status: client.StatusSuccess},
		{ContextID: id, Path: "/mnt/data/bad.txt", TaskType: client.TaskUpload,
			Status: client.StatusFailed, ErrorMessage: "access denied"},
	})

	result, err := reconciler.SyncAndWait(context.Background(), fastRequest(Request{}))
	var partial errors.PartialSyncError
	require.True(t, errors.As(err, &partial))
	require.Len(t, partial.Failed, 1)
	assert.Equal(t, "/mnt/data/bad.txt", partial.Failed[0].Path)
	assert.Equal(t, "access denied", partial.Failed[0].Message)

	// The successful entries stay inspectable alongside the failure.
	assert.Len(t, result.Entries, 2)

	state, _ := reconciler.BindingState(id, "/mnt/data")
	assert.Equal(t, SyncFailed, state)
}

func TestSyncTimeoutFakeClock(t *testing.T) {
	fs = afero.NewMemMapFs()
	fake := clienttest.New()
	id := fake.AddContext("data")
	reconciler := newTestReconciler(t, fake,
		Binding{ContextID: id, MountPath: "/mnt/data"})

	clock := clockwork.NewFakeClock()
	reconciler.clock = clock

	fake.SetTasks([]client.TaskStatus{
		{ContextID: id, Path: "/mnt/data", TaskType: client.TaskUpload,
			Status: client.StatusInProgress},
	})

	req := Request{MaxRetries: 3, RetryInterval: DefaultRetryInterval}
	task, err := reconciler.Sync(context.Background(), req)
	require.NoError(t, err)

	// Walk the poll loop through its full retry budget without any real
	// waiting.
	for i := 0; i < req.MaxRetries; i++ {
		clock.BlockUntil(1)
		clock.Advance(req.RetryInterval)
	}

	result := task.Wait()
	var timeout errors.TimeoutError
	require.True(t, errors.As(result.Err, &timeout))
	assert.Equal(t, 3*DefaultRetryInterval, timeout.Elapsed)
}

func TestSyncCancel(t *testing.T) {
	fs = afero.NewMemMapFs()
	fake := clienttest.New()
	id := fake.AddContext("data")
	reconciler := newTestReconciler(t, fake,
		Binding{ContextID: id, MountPath: "/mnt/data"})

	// Never terminal, so only cancellation can resolve the pass.
	fake.SetTasks([]client.TaskStatus{
		{ContextID: id, Path: "/mnt/data", TaskType: client.TaskUpload,
			Status: client.StatusPending},
	})

	req := Request{MaxRetries: 10000, RetryInterval: time.Millisecond}
	task, err := reconciler.Sync(context.Background(), req)
	require.NoError(t, err)

	task.Cancel()
	result := task.Wait()
	assert.Equal(t, errors.CancelledError{Op: "sync"}, result.Err)
}

func TestSyncNotifyCallback(t *testing.T) {
	fs = afero.NewMemMapFs()
	fake := clienttest.New()
	id := fake.AddContext("data")
	reconciler := newTestReconciler(t, fake,
		Binding{ContextID: id, MountPath: "/mnt/data"})

	fake.SetTasks([]client.TaskStatus{
		{ContextID: id, Path: "/mnt/data", TaskType: client.TaskUpload,
			Status: client.StatusSuccess},
	})

	task, err := reconciler.Sync(context.Background(), fastRequest(Request{}))
	require.NoError(t, err)

	notified := make(chan Result, 1)
	task.Notify(func(result Result) { notified <- result })

	select {
	case result := <-notified:
		assert.True(t, result.Success)
	case <-time.After(5 * time.Second):
		t.Fatal("callback never fired")
	}
}

func TestPropagateDeletes(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mnt/data/keep.txt", []byte("keep"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/mnt/data/remove.txt", []byte("bye"), 0644))

	fake := clienttest.New()
	id := fake.AddContext("data")
	reconciler := newTestReconciler(t, fake,
		Binding{ContextID: id, MountPath: "/mnt/data"})

	fake.SetTasks([]client.TaskStatus{
		{ContextID: id, Path: "/mnt/data", TaskType: client.TaskUpload,
			Status: client.StatusSuccess},
	})

	ctx := context.Background()

	// The first pass records the baseline snapshot.
	_, err := reconciler.SyncAndWait(ctx, fastRequest(Request{}))
	require.NoError(t, err)
	assert.Empty(t, fake.DeletedFiles)

	// Deleting a file locally propagates on the next upload pass.
	require.NoError(t, fs.Remove("/mnt/data/remove.txt"))
	_, err = reconciler.SyncAndWait(ctx, fastRequest(Request{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"remove.txt"}, fake.DeletedFiles)
}

func TestPropagateDeletesRetriesAfterFailure(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mnt/data/keep.txt", []byte("keep"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/mnt/data/remove.txt", []byte("bye"), 0644))

	fake := clienttest.New()
	id := fake.AddContext("data")
	reconciler := newTestReconciler(t, fake,
		Binding{ContextID: id, MountPath: "/mnt/data"})

	fake.SetTasks([]client.TaskStatus{
		{ContextID: id, Path: "/mnt/data", TaskType: client.TaskUpload,
			Status: client.StatusSuccess},
	})

	ctx := context.Background()
	_, err := reconciler.SyncAndWait(ctx, fastRequest(Request{}))
	require.NoError(t, err)

	// The control plane rejects the delete on the pass after the local
	// removal.
	require.NoError(t, fs.Remove("/mnt/data/remove.txt"))
	fake.DeleteFileErr = errors.RemoteRejectionError{
		Op: "delete", Code: "Unavailable", Message: "try again"}

	_, err = reconciler.SyncAndWait(ctx, fastRequest(Request{}))
	require.Error(t, err)
	assert.Empty(t, fake.DeletedFiles)

	// The removal must still be in the diff once the control plane
	// recovers; a failed delete can't silently drop the file from the
	// baseline.
	fake.DeleteFileErr = nil
	_, err = reconciler.SyncAndWait(ctx, fastRequest(Request{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"remove.txt"}, fake.DeletedFiles)
}

func TestPropagateDeletesDisabled(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/mnt/data/remove.txt", []byte("bye"), 0644))

	fake := clienttest.New()
	id := fake.AddContext("data")
	reconciler := newTestReconciler(t, fake, Binding{
		ContextID: id,
		MountPath: "/mnt/data",
		Policy: policy.Policy{
			Delete: &policy.DeletePolicy{SyncLocalDeletes: false},
		},
	})

	fake.SetTasks([]client.TaskStatus{
		{ContextID: id, Path: "/mnt/data", TaskType: client.TaskUpload,
			Status: client.StatusSuccess},
	})

	ctx := context.Background()
	_, err := reconciler.SyncAndWait(ctx, fastRequest(Request{}))
	require.NoError(t, err)

	require.NoError(t, fs.Remove("/mnt/data/remove.txt"))
	_, err = reconciler.SyncAndWait(ctx, fastRequest(Request{}))
	require.NoError(t, err)
	assert.Empty(t, fake.DeletedFiles)
}

func TestInfo(t *testing.T) {
	fs = afero.NewMemMapFs()
	fake := clienttest.New()
	id := fake.AddContext("data")
	other := fake.AddContext("other")
	reconciler := newTestReconciler(t, fake,
		Binding{ContextID: id, MountPath: "/mnt/data"},
		Binding{ContextID: other, MountPath: "/mnt/other"})

	fake.SetTasks([]client.TaskStatus{
		{ContextID: id, Path: "/mnt/data", TaskType: client.TaskUpload,
			Status: client.StatusSuccess},
		{ContextID: id, Path: "/mnt/data", TaskType: client.TaskDownload,
			Status: client.StatusSuccess},
		{ContextID: other, Path: "/mnt/other", TaskType: client.TaskUpload,
			Status: client.StatusFailed},
	})

	ctx := context.Background()

	all, err := reconciler.Info(ctx, InfoFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	uploads, err := reconciler.Info(ctx, InfoFilter{TaskType: client.TaskUpload})
	require.NoError(t, err)
	assert.Len(t, uploads, 2)

	// Filters are conjunctive.
	mine, err := reconciler.Info(ctx, InfoFilter{
		ContextID: id, TaskType: client.TaskUpload})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, client.StatusSuccess, mine[0].Status)
}

func TestInfoRemapsMappedBindings(t *testing.T) {
	fs = afero.NewMemMapFs()
	fake := clienttest.New()
	id := fake.AddContext("data")
	reconciler := newTestReconciler(t, fake, Binding{
		ContextID: id,
		MountPath: "/mnt/new",
		Policy: policy.Policy{
			Mapping: &policy.MappingPolicy{OriginalPath: "/mnt/original"},
		},
	})

	fake.SetTasks([]client.TaskStatus{
		{ContextID: id, Path: "/mnt/original/a.txt",
			TaskType: client.TaskDownload, Status: client.StatusSuccess},
	})

	entries, err := reconciler.Info(context.Background(), InfoFilter{ContextID: id})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// Callers observe the mounted namespace, not the stored one.
	assert.Equal(t, "/mnt/new/a.txt", entries[0].Path)
}
