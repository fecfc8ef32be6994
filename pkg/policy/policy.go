// Package policy contains the value objects that govern how a context's
// stored data is synchronized with a session's mount path. Each sub-policy
// is independently optional; a nil section means "use the permissive
// default". Policies are plain data -- they're serialized into sync
// triggers and interpreted by the control plane, not enforced locally,
// with the exception of the white list which scopes local snapshots.
package policy

// UploadStrategy describes when automatic uploads happen.
type UploadStrategy string

// UploadBeforeResourceRelease uploads as part of session teardown, before
// the session's compute resources are reclaimed.
const UploadBeforeResourceRelease UploadStrategy = "UploadBeforeResourceRelease"

// UploadMode describes the transfer unit for uploads.
type UploadMode string

const (
	// UploadFile transfers each file individually.
	UploadFile UploadMode = "File"

	// UploadArchive bundles the path subtree into a single archive object
	// before transfer. This is an opaque hint for the remote task -- it
	// changes server-side packaging, not the client-visible contract.
	UploadArchive UploadMode = "Archive"
)

// DownloadStrategy describes when automatic downloads happen.
type DownloadStrategy string

// DownloadAsync downloads in the background after session creation.
const DownloadAsync DownloadStrategy = "DownloadAsync"

// UploadPolicy governs whether and how local changes are uploaded into the
// context.
type UploadPolicy struct {
	AutoUpload bool           `json:"autoUpload"`
	Strategy   UploadStrategy `json:"uploadStrategy"`
	Mode       UploadMode     `json:"uploadMode"`
}

// NewUploadPolicy returns the default upload policy.
func NewUploadPolicy() *UploadPolicy {
	return &UploadPolicy{
		AutoUpload: true,
		Strategy:   UploadBeforeResourceRelease,
		Mode:       UploadFile,
	}
}

// DownloadPolicy governs whether and how the context's stored data is
// downloaded into the mount path.
type DownloadPolicy struct {
	AutoDownload bool             `json:"autoDownload"`
	Strategy     DownloadStrategy `json:"downloadStrategy"`
}

// NewDownloadPolicy returns the default download policy.
func NewDownloadPolicy() *DownloadPolicy {
	return &DownloadPolicy{
		AutoDownload: true,
		Strategy:     DownloadAsync,
	}
}

// DeletePolicy governs whether files removed under the mount path are also
// removed from the context's stored data.
type DeletePolicy struct {
	SyncLocalDeletes bool `json:"syncLocalFile"`
}

// NewDeletePolicy returns the default delete policy.
func NewDeletePolicy() *DeletePolicy {
	return &DeletePolicy{SyncLocalDeletes: true}
}

// ExtractPolicy governs server-side unpacking of downloaded archives.
type ExtractPolicy struct {
	Extract                  bool `json:"extract"`
	DeleteSourceAfterExtract bool `json:"deleteSrcFile"`
	ExtractToCurrentFolder   bool `json:"extractToCurrentFolder"`
}

// Lifecycle is a retention period for a context's stored data. The
// control plane only accepts the enumerated values.
type Lifecycle string

// The supported retention periods.
const (
	Lifecycle1Day    Lifecycle = "1d"
	Lifecycle3Days   Lifecycle = "3d"
	Lifecycle5Days   Lifecycle = "5d"
	Lifecycle10Days  Lifecycle = "10d"
	Lifecycle15Days  Lifecycle = "15d"
	Lifecycle30Days  Lifecycle = "30d"
	Lifecycle90Days  Lifecycle = "90d"
	Lifecycle180Days Lifecycle = "180d"
	Lifecycle360Days Lifecycle = "360d"
	LifecycleForever Lifecycle = "forever"
)

// RecyclePolicy limits how long the context's stored data survives once
// written. It doesn't affect live sync; the control plane applies it in
// the background, independent of session lifetime. Paths are relative to
// the sync mount point; an empty string means "all paths". No glob
// support.
type RecyclePolicy struct {
	Lifecycle Lifecycle `json:"lifecycle"`
	Paths     []string  `json:"paths"`
}

// NewRecyclePolicy returns the default recycle policy, which retains
// everything forever.
func NewRecyclePolicy() *RecyclePolicy {
	return &RecyclePolicy{
		Lifecycle: LifecycleForever,
		Paths:     []string{""},
	}
}

// MappingPolicy mounts context data originally written under one path at a
// different path in a new session. During download reconciliation, stored
// paths relative to OriginalPath are translated into the binding's mount
// path namespace.
type MappingPolicy struct {
	OriginalPath string `json:"path"`
}

// Policy bundles all sub-policies for one sync binding. The zero value is
// valid and means "all defaults".
type Policy struct {
	Upload   *UploadPolicy   `json:"uploadPolicy,omitempty"`
	Download *DownloadPolicy `json:"downloadPolicy,omitempty"`
	Delete   *DeletePolicy   `json:"deletePolicy,omitempty"`
	Extract  *ExtractPolicy  `json:"extractPolicy,omitempty"`
	Recycle  *RecyclePolicy  `json:"recyclePolicy,omitempty"`
	Mapping  *MappingPolicy  `json:"mappingPolicy,omitempty"`
	BWList   *BWList         `json:"bwList,omitempty"`
}

// Default returns a policy with every section populated with its default.
func Default() Policy {
	return Policy{
		Upload:   NewUploadPolicy(),
		Download: NewDownloadPolicy(),
		Delete:   NewDeletePolicy(),
		Recycle:  NewRecyclePolicy(),
	}
}

// WithDefaults fills any unset sections so that consumers never have to
// nil-check the core sections. Extract, Mapping, and BWList stay nil when
// unset since their absence is meaningful.
func (p Policy) WithDefaults() Policy {
	if p.Upload == nil {
		p.Upload = NewUploadPolicy()
	}
	if p.Download == nil {
		p.Download = NewDownloadPolicy()
	}
	if p.Delete == nil {
		p.Delete = NewDeletePolicy()
	}
	if p.Recycle == nil {
		p.Recycle = NewRecyclePolicy()
	}
	return p
}
