// Package clienttest provides an in-memory fake of the control plane
// client for unit tests.
package clienttest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/client"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
)

// Fake is a stateful in-memory client.Client. The zero value isn't usable;
// create instances with New.
type Fake struct {
	mu     sync.Mutex
	nextID int

	// Contexts holds the stored context records, keyed by id.
	Contexts map[string]client.ContextRecord

	// Triggers records every sync trigger received, in order.
	Triggers []client.SyncTrigger

	// Tasks is returned by SyncStatus unless StatusFn is set.
	Tasks []client.TaskStatus

	// StatusFn, if set, overrides SyncStatus. Useful for simulating tasks
	// that progress over successive polls.
	StatusFn func(sessionID string) ([]client.TaskStatus, error)

	// ClearPolls is the number of DescribeContext calls a cleared context
	// reports "clearing" before flipping to "available".
	ClearPolls int

	clearCountdown map[string]int

	// DeletedFiles records the paths passed to DeleteFile.
	DeletedFiles []string

	// Files is returned by ListFiles.
	Files []client.FileEntry

	// URLPrefix is used to build presigned URLs.
	URLPrefix string

	// Version is returned by APIVersion.
	Version client.VersionInfo

	// TriggerErr, if set, is returned by TriggerSync.
	TriggerErr error

	// ClearErr, if set, is returned by ClearContext.
	ClearErr error

	// DeleteFileErr, if set, is returned by DeleteFile.
	DeleteFileErr error
}

// New returns an empty fake control plane.
func New() *Fake {
	return &Fake{
		Contexts:       map[string]client.ContextRecord{},
		clearCountdown: map[string]int{},
		URLPrefix:      "https://objects.invalid",
	}
}

// AddContext stores a context record and returns its id.
func (f *Fake) AddContext(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(name).ID
}

func (f *Fake) addLocked(name string) client.ContextRecord {
	f.nextID++
	record := client.ContextRecord{
		ID:         fmt.Sprintf("ctx-%04d", f.nextID),
		Name:       name,
		State:      client.ContextStateAvailable,
		CreatedAt:  time.Now(),
		LastUsedAt: time.Now(),
	}
	f.Contexts[record.ID] = record
	return record
}

func (f *Fake) CreateContext(_ context.Context, name, region string) (
	client.ContextRecord, error) {

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, record := range f.Contexts {
		if record.Name == name {
			return client.ContextRecord{}, errors.ConflictError{Kind: "context", Name: name}
		}
	}
	return f.addLocked(name), nil
}

func (f *Fake) GetContext(_ context.Context, name, region string) (
	client.ContextRecord, bool, error) {

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, record := range f.Contexts {
		if record.Name == name {
			return record, true, nil
		}
	}
	return client.ContextRecord{}, false, nil
}

func (f *Fake) DescribeContext(_ context.Context, id string) (client.ContextRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, ok := f.Contexts[id]
	if !ok {
		return client.ContextRecord{}, errors.NotFoundError{Kind: "context", ID: id}
	}

	if remaining, clearing := f.clearCountdown[id]; clearing {
		if remaining > 0 {
			f.clearCountdown[id] = remaining - 1
			record.State = client.ContextStateClearing
		} else {
			delete(f.clearCountdown, id)
			record.State = client.ContextStateAvailable
		}
		f.Contexts[id] = record
	}
	return record, nil
}

func (f *Fake) ListContexts(_ context.Context, page client.PageRequest) (
	client.ContextPage, error) {

	f.mu.Lock()
	defer f.mu.Unlock()

	var all []client.ContextRecord
	for _, record := range f.Contexts {
		all = append(all, record)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	start := 0
	if page.NextToken != "" {
		var err error
		start, err = strconv.Atoi(page.NextToken)
		if err != nil {
			return client.ContextPage{}, errors.RemoteRejectionError{
				Op: "list", Code: "InvalidToken", Message: page.NextToken}
		}
	}

	max := page.MaxResults
	if max <= 0 {
		max = 10
	}

	end := start + max
	if end > len(all) {
		end = len(all)
	}

	result := client.ContextPage{
		Contexts:   all[start:end],
		TotalCount: len(all),
	}
	if end < len(all) {
		result.NextToken = strconv.Itoa(end)
	}
	return result, nil
}

func (f *Fake) UpdateContext(_ context.Context, record client.ContextRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	curr, ok := f.Contexts[record.ID]
	if !ok {
		return errors.NotFoundError{Kind: "context", ID: record.ID}
	}

	curr.Name = record.Name
	curr.LastUsedAt = record.LastUsedAt
	f.Contexts[record.ID] = curr
	return nil
}

func (f *Fake) DeleteContext(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.Contexts[id]; !ok {
		return errors.NotFoundError{Kind: "context", ID: id}
	}
	delete(f.Contexts, id)
	return nil
}

func (f *Fake) TriggerSync(_ context.Context, trigger client.SyncTrigger) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.TriggerErr != nil {
		return f.TriggerErr
	}
	if _, ok := f.Contexts[trigger.ContextID]; !ok {
		return errors.RemoteRejectionError{
			Op: "sync", Code: "UnknownContext", Message: trigger.ContextID}
	}
	f.Triggers = append(f.Triggers, trigger)
	return nil
}

func (f *Fake) SyncStatus(_ context.Context, sessionID string) ([]client.TaskStatus, error) {
	f.mu.Lock()
	statusFn := f.StatusFn
	tasks := append([]client.TaskStatus{}, f.Tasks...)
	f.mu.Unlock()

	if statusFn != nil {
		return statusFn(sessionID)
	}
	return tasks, nil
}

// SetTasks replaces the task list returned by SyncStatus.
func (f *Fake) SetTasks(tasks []client.TaskStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Tasks = tasks
}

func (f *Fake) ClearContext(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ClearErr != nil {
		return f.ClearErr
	}
	if _, ok := f.Contexts[id]; !ok {
		return errors.RemoteRejectionError{
			Op: "clear", Code: "UnknownContext", Message: id}
	}
	f.clearCountdown[id] = f.ClearPolls
	return nil
}

func (f *Fake) UploadURL(_ context.Context, contextID, path string) (
	client.PresignedURL, error) {
	return f.presign("upload", contextID, path)
}

func (f *Fake) DownloadURL(_ context.Context, contextID, path string) (
	client.PresignedURL, error) {
	return f.presign("download", contextID, path)
}

func (f *Fake) presign(op, contextID, path string) (client.PresignedURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.Contexts[contextID]; !ok {
		return client.PresignedURL{}, errors.NotFoundError{Kind: "context", ID: contextID}
	}
	return client.PresignedURL{
		URL:        fmt.Sprintf("%s/%s/%s?op=%s", f.URLPrefix, contextID, path, op),
		ExpireTime: time.Now().Add(15 * time.Minute),
	}, nil
}

func (f *Fake) DeleteFile(_ context.Context, contextID, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DeleteFileErr != nil {
		return f.DeleteFileErr
	}
	if _, ok := f.Contexts[contextID]; !ok {
		return errors.NotFoundError{Kind: "context", ID: contextID}
	}
	f.DeletedFiles = append(f.DeletedFiles, path)
	return nil
}

func (f *Fake) ListFiles(_ context.Context, contextID, parentFolder string,
	page, pageSize int) (client.FilePage, error) {

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.Contexts[contextID]; !ok {
		return client.FilePage{}, errors.NotFoundError{Kind: "context", ID: contextID}
	}
	return client.FilePage{Entries: f.Files, Total: len(f.Files)}, nil
}

func (f *Fake) APIVersion(_ context.Context) (client.VersionInfo, error) {
	return f.Version, nil
}
