package client

import (
	"time"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/policy"
)

// ContextRecord is the control plane's representation of a persistent
// storage container. State doubles as the clear-task state: it reads
// "clearing" while a clear is in flight and "available" otherwise.
type ContextRecord struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	State      string    `json:"state"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}

// Context states reported by the control plane. Other values pass through
// unrecognized for forward compatibility.
const (
	ContextStateAvailable = "available"
	ContextStateClearing  = "clearing"
)

// PageRequest is a cursor-based pagination request. NextToken is opaque
// and must be threaded back verbatim from the previous page.
type PageRequest struct {
	MaxResults int
	NextToken  string
}

// ContextPage is one page of context records. An empty NextToken signals
// the end of results.
type ContextPage struct {
	Contexts   []ContextRecord `json:"contexts"`
	NextToken  string          `json:"nextToken,omitempty"`
	TotalCount int             `json:"totalCount"`
}

// Sync task types.
const (
	TaskUpload   = "upload"
	TaskDownload = "download"
)

// Terminal and in-flight sync task statuses. The status vocabulary is
// owned by the control plane; the engine only checks for the terminal
// values and passes everything else through.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
)

// TaskStatus is one entry in the control plane's record of sync tasks.
type TaskStatus struct {
	ContextID    string    `json:"contextId"`
	Path         string    `json:"path"`
	TaskType     string    `json:"taskType"`
	Status       string    `json:"status"`
	StartTime    time.Time `json:"startTime"`
	FinishTime   time.Time `json:"finishTime,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}

// Terminal returns whether the task has finished, successfully or not.
func (s TaskStatus) Terminal() bool {
	return s.Status == StatusSuccess || s.Status == StatusFailed
}

// SyncTrigger asks the control plane to start a sync task for one
// context binding within a session. The policy is passed through opaquely;
// the remote task interprets it.
type SyncTrigger struct {
	SessionID string         `json:"sessionId"`
	ContextID string         `json:"contextId"`
	Path      string         `json:"path"`
	TaskType  string         `json:"taskType"`
	Mode      string         `json:"mode,omitempty"`
	Policy    *policy.Policy `json:"policy,omitempty"`
}

// PresignedURL is a short-lived URL for transferring a single object.
type PresignedURL struct {
	URL        string    `json:"url"`
	ExpireTime time.Time `json:"expireTime"`
}

// FileEntry describes one object stored inside a context.
type FileEntry struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	IsDir   bool      `json:"isDir"`
	ModTime time.Time `json:"modTime"`
}

// FilePage is one page of file entries.
type FilePage struct {
	Entries []FileEntry `json:"entries"`
	Total   int         `json:"total"`
}

// VersionInfo describes the control plane's API version and the minimum
// client version it supports.
type VersionInfo struct {
	APIVersion       string `json:"apiVersion"`
	MinClientVersion string `json:"minClientVersion"`
}
