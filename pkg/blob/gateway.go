// Package blob moves individual objects in and out of a context through
// presigned URLs. It's independent of the bulk sync engine; the engine
// only uses it for targeted single-object operations such as propagating
// local deletes or cross-session file transfer.
package blob

import (
	"context"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/client"
	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
)

// Mocked out for unit testing.
var (
	fs             = afero.NewOsFs()
	httpDo         = http.DefaultClient.Do
	defaultPageLen = 50
)

// Gateway issues presigned URLs and transfers single objects.
type Gateway struct {
	client client.Client
}

// NewGateway creates a Gateway backed by the given control plane client.
func NewGateway(c client.Client) *Gateway {
	return &Gateway{client: c}
}

// UploadURL returns a presigned URL for writing the object at the given
// path inside the context.
func (g *Gateway) UploadURL(ctx context.Context, contextID, path string) (
	client.PresignedURL, error) {

	if err := validateObjectArgs(contextID, path); err != nil {
		return client.PresignedURL{}, err
	}
	url, err := g.client.UploadURL(ctx, contextID, path)
	return url, errors.WithContext(err, "get upload url")
}

// DownloadURL returns a presigned URL for reading the object at the given
// path inside the context.
func (g *Gateway) DownloadURL(ctx context.Context, contextID, path string) (
	client.PresignedURL, error) {

	if err := validateObjectArgs(contextID, path); err != nil {
		return client.PresignedURL{}, err
	}
	url, err := g.client.DownloadURL(ctx, contextID, path)
	return url, errors.WithContext(err, "get download url")
}

// DeleteFile removes a single object from the context.
func (g *Gateway) DeleteFile(ctx context.Context, contextID, path string) error {
	if err := validateObjectArgs(contextID, path); err != nil {
		return err
	}
	return errors.WithContext(g.client.DeleteFile(ctx, contextID, path), "delete file")
}

// ListFiles returns one page of the objects stored under parentFolder.
func (g *Gateway) ListFiles(ctx context.Context, contextID, parentFolder string,
	page, pageSize int) (client.FilePage, error) {

	if contextID == "" {
		return client.FilePage{}, errors.ValidationError{Reason: "contextId is required"}
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageLen
	}

	result, err := g.client.ListFiles(ctx, contextID, parentFolder, page, pageSize)
	return result, errors.WithContext(err, "list files")
}

// Upload copies the local file at localPath into the context at path.
func (g *Gateway) Upload(ctx context.Context, contextID, path, localPath string) error {
	presigned, err := g.UploadURL(ctx, contextID, path)
	if err != nil {
		return err
	}

	f, err := fs.Open(localPath)
	if err != nil {
		return errors.WithContext(err, "open local file")
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return errors.WithContext(err, "stat local file")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presigned.URL, f)
	if err != nil {
		return errors.WithContext(err, "create request")
	}
	req.ContentLength = fi.Size()

	resp, err := httpDo(req)
	if err != nil {
		return errors.WithContext(err, "put object")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.RemoteRejectionError{
			Op:      "upload",
			Message: fmt.Sprintf("object store returned status %d", resp.StatusCode),
		}
	}

	log.WithFields(log.Fields{
		"context": contextID,
		"path":    path,
		"bytes":   fi.Size(),
	}).Debug("Uploaded object")
	return nil
}

// Download copies the object at path in the context to localPath.
func (g *Gateway) Download(ctx context.Context, contextID, path, localPath string) error {
	presigned, err := g.DownloadURL(ctx, contextID, path)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, presigned.URL, nil)
	if err != nil {
		return errors.WithContext(err, "create request")
	}

	resp, err := httpDo(req)
	if err != nil {
		return errors.WithContext(err, "get object")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errors.NotFoundError{Kind: "object", ID: path}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.RemoteRejectionError{
			Op:      "download",
			Message: fmt.Sprintf("object store returned status %d", resp.StatusCode),
		}
	}

	f, err := fs.Create(localPath)
	if err != nil {
		return errors.WithContext(err, "create local file")
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return errors.WithContext(err, "write local file")
	}
	return nil
}

func validateObjectArgs(contextID, path string) error {
	if contextID == "" {
		return errors.ValidationError{Reason: "contextId is required"}
	}
	if path == "" {
		return errors.ValidationError{Reason: "path is required"}
	}
	return nil
}
