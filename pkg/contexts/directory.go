// Package contexts manages the lifecycle of persistent storage containers
// ("contexts") on the control plane. A context outlives any single
// session; sessions attach to it through sync bindings.
package contexts

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/client"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
)

// DefaultRegion is used when a caller doesn't specify a region.
const DefaultRegion = "ap-southeast-1"

// Handle identifies a persistent context. The identity is immutable; only
// Name and LastUsedAt can change, via Update.
type Handle struct {
	ID         string
	Name       string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

func toHandle(record client.ContextRecord) Handle {
	return Handle{
		ID:         record.ID,
		Name:       record.Name,
		CreatedAt:  record.CreatedAt,
		LastUsedAt: record.LastUsedAt,
	}
}

// Directory is the CRUD surface over context handles.
type Directory struct {
	client client.Client
	region string
}

// NewDirectory creates a Directory operating in the given region. An empty
// region falls back to DefaultRegion.
func NewDirectory(c client.Client, region string) *Directory {
	if region == "" {
		region = DefaultRegion
	}
	return &Directory{client: c, region: region}
}

// Create creates a new named context. Duplicate names fail with
// ConflictError; callers that want idempotent behavior should use
// Get with Create set instead.
func (d *Directory) Create(ctx context.Context, name string) (Handle, error) {
	if name == "" {
		return Handle{}, errors.ValidationError{Reason: "context name is required"}
	}

	record, err := d.client.CreateContext(ctx, name, d.region)
	if err != nil {
		return Handle{}, errors.WithContext(err, "create context")
	}

	log.WithFields(log.Fields{
		"name": name,
		"id":   record.ID,
	}).Debug("Created context")
	return toHandle(record), nil
}

// GetOptions are the parameters to Get. Exactly one of Name and ContextID
// must be set, and Create can only be combined with Name.
type GetOptions struct {
	Name      string
	ContextID string
	Create    bool
	Region    string
}

// Get looks up a context by name or id. When Create is set and no context
// with the given name exists, one is created, making Get the idempotent
// get-or-create path.
func (d *Directory) Get(ctx context.Context, opts GetOptions) (Handle, error) {
	if opts.Name == "" && opts.ContextID == "" {
		return Handle{}, errors.ValidationError{
			Reason: "either name or contextId is required"}
	}
	if opts.Name != "" && opts.ContextID != "" {
		return Handle{}, errors.ValidationError{
			Reason: "name and contextId are mutually exclusive"}
	}
	if opts.Create && opts.ContextID != "" {
		return Handle{}, errors.ValidationError{
			Reason: "create requires a name, not a contextId"}
	}

	if opts.ContextID != "" {
		record, err := d.client.DescribeContext(ctx, opts.ContextID)
		if err != nil {
			return Handle{}, errors.WithContext(err, "describe context")
		}
		return toHandle(record), nil
	}

	region := opts.Region
	if region == "" {
		region = d.region
	}

	record, found, err := d.client.GetContext(ctx, opts.Name, region)
	if err != nil {
		return Handle{}, errors.WithContext(err, "get context")
	}

	if !found {
		if !opts.Create {
			return Handle{}, errors.NotFoundError{Kind: "context", ID: opts.Name}
		}

		record, err = d.client.CreateContext(ctx, opts.Name, region)
		if err != nil {
			return Handle{}, errors.WithContext(err, "create context")
		}
		log.WithFields(log.Fields{
			"name": opts.Name,
			"id":   record.ID,
		}).Debug("Created context on first use")
	}
	return toHandle(record), nil
}

// ListResult is one page of context handles. NextToken is opaque; thread
// it back verbatim to fetch the next page. An empty NextToken signals the
// end of results.
type ListResult struct {
	Contexts   []Handle
	NextToken  string
	TotalCount int
}

// List returns a page of contexts.
func (d *Directory) List(ctx context.Context, page client.PageRequest) (ListResult, error) {
	remote, err := d.client.ListContexts(ctx, page)
	if err != nil {
		return ListResult{}, errors.WithContext(err, "list contexts")
	}

	result := ListResult{
		NextToken:  remote.NextToken,
		TotalCount: remote.TotalCount,
	}
	for _, record := range remote.Contexts {
		result.Contexts = append(result.Contexts, toHandle(record))
	}
	return result, nil
}

// Update persists the handle's mutable fields (name and last-used time).
func (d *Directory) Update(ctx context.Context, handle Handle) error {
	err := d.client.UpdateContext(ctx, client.ContextRecord{
		ID:         handle.ID,
		Name:       handle.Name,
		LastUsedAt: handle.LastUsedAt,
	})
	return errors.WithContext(err, "update context")
}

// Delete destroys the context and its stored data. Deletion invalidates
// every sync binding referencing the handle. Deleting an already-deleted
// handle may fail with NotFoundError.
func (d *Directory) Delete(ctx context.Context, handle Handle) error {
	err := d.client.DeleteContext(ctx, handle.ID)
	return errors.WithContext(err, "delete context")
}
