// Package client implements the HTTP client for the control plane that
// owns contexts, sync tasks, and clear tasks. All engine state lives on
// the control plane; this client is stateless between calls.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/agbcloud/agbcloud-sdk-sub000/pkg/errors"
)

//go:generate mockery -name Client

// Client is the interface for communicating with the control plane. The
// engine's components are written against this interface so that they can
// be tested without a network.
type Client interface {
	CreateContext(ctx context.Context, name, region string) (ContextRecord, error)
	GetContext(ctx context.Context, name, region string) (ContextRecord, bool, error)
	DescribeContext(ctx context.Context, id string) (ContextRecord, error)
	ListContexts(ctx context.Context, page PageRequest) (ContextPage, error)
	UpdateContext(ctx context.Context, record ContextRecord) error
	DeleteContext(ctx context.Context, id string) error

	TriggerSync(ctx context.Context, trigger SyncTrigger) error
	SyncStatus(ctx context.Context, sessionID string) ([]TaskStatus, error)

	ClearContext(ctx context.Context, id string) error

	UploadURL(ctx context.Context, contextID, path string) (PresignedURL, error)
	DownloadURL(ctx context.Context, contextID, path string) (PresignedURL, error)
	DeleteFile(ctx context.Context, contextID, path string) error
	ListFiles(ctx context.Context, contextID, parentFolder string, page, pageSize int) (FilePage, error)

	APIVersion(ctx context.Context) (VersionInfo, error)
}

const requestTimeout = 30 * time.Second

type httpClient struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

// New creates a Client that talks to the control plane at the given
// endpoint, authenticating with the given API key.
func New(endpoint, apiKey string) Client {
	return &httpClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: requestTimeout},
	}
}

// wireError is the control plane's error body.
type wireError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Resource   string `json:"resource,omitempty"`
	ResourceID string `json:"resourceId,omitempty"`
}

func (c *httpClient) CreateContext(ctx context.Context, name, region string) (
	ContextRecord, error) {

	body := map[string]string{"name": name, "region": region}
	var record ContextRecord
	err := c.do(ctx, http.MethodPost, "/v1/contexts", nil, body, &record)
	return record, err
}

func (c *httpClient) GetContext(ctx context.Context, name, region string) (
	ContextRecord, bool, error) {

	query := url.Values{"name": {name}, "region": {region}}
	var record ContextRecord
	err := c.do(ctx, http.MethodGet, "/v1/contexts/lookup", query, nil, &record)
	if err != nil {
		if _, notFound := err.(errors.NotFoundError); notFound {
			return ContextRecord{}, false, nil
		}
		return ContextRecord{}, false, err
	}
	return record, true, nil
}

func (c *httpClient) DescribeContext(ctx context.Context, id string) (ContextRecord, error) {
	var record ContextRecord
	err := c.do(ctx, http.MethodGet, "/v1/contexts/"+id, nil, nil, &record)
	return record, err
}

func (c *httpClient) ListContexts(ctx context.Context, page PageRequest) (ContextPage, error) {
	query := url.Values{}
	if page.MaxResults > 0 {
		query.Set("maxResults", strconv.Itoa(page.MaxResults))
	}
	if page.NextToken != "" {
		query.Set("nextToken", page.NextToken)
	}

	var result ContextPage
	err := c.do(ctx, http.MethodGet, "/v1/contexts", query, nil, &result)
	return result, err
}

func (c *httpClient) UpdateContext(ctx context.Context, record ContextRecord) error {
	return c.do(ctx, http.MethodPut, "/v1/contexts/"+record.ID, nil, record, nil)
}

func (c *httpClient) DeleteContext(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/contexts/"+id, nil, nil, nil)
}

func (c *httpClient) TriggerSync(ctx context.Context, trigger SyncTrigger) error {
	path := fmt.Sprintf("/v1/sessions/%s/sync", trigger.SessionID)
	return c.do(ctx, http.MethodPost, path, nil, trigger, nil)
}

func (c *httpClient) SyncStatus(ctx context.Context, sessionID string) ([]TaskStatus, error) {
	path := fmt.Sprintf("/v1/sessions/%s/sync", sessionID)
	var result struct {
		Tasks []TaskStatus `json:"tasks"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, nil, &result)
	return result.Tasks, err
}

func (c *httpClient) ClearContext(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/v1/contexts/"+id+"/clear", nil, nil, nil)
}

func (c *httpClient) UploadURL(ctx context.Context, contextID, path string) (
	PresignedURL, error) {

	query := url.Values{"path": {path}}
	var result PresignedURL
	err := c.do(ctx, http.MethodGet, "/v1/contexts/"+contextID+"/upload-url", query, nil, &result)
	return result, err
}

func (c *httpClient) DownloadURL(ctx context.Context, contextID, path string) (
	PresignedURL, error) {

	query := url.Values{"path": {path}}
	var result PresignedURL
	err := c.do(ctx, http.MethodGet, "/v1/contexts/"+contextID+"/download-url", query, nil, &result)
	return result, err
}

func (c *httpClient) DeleteFile(ctx context.Context, contextID, path string) error {
	query := url.Values{"path": {path}}
	return c.do(ctx, http.MethodDelete, "/v1/contexts/"+contextID+"/files", query, nil, nil)
}

func (c *httpClient) ListFiles(ctx context.Context, contextID, parentFolder string,
	page, pageSize int) (FilePage, error) {

	query := url.Values{
		"parent":   {parentFolder},
		"page":     {strconv.Itoa(page)},
		"pageSize": {strconv.Itoa(pageSize)},
	}
	var result FilePage
	err := c.do(ctx, http.MethodGet, "/v1/contexts/"+contextID+"/files", query, nil, &result)
	return result, err
}

func (c *httpClient) APIVersion(ctx context.Context) (VersionInfo, error) {
	var result VersionInfo
	err := c.do(ctx, http.MethodGet, "/v1/version", nil, nil, &result)
	return result, err
}

// do issues one JSON request and decodes the response into out (if
// non-nil). Non-2xx responses are mapped onto the typed error taxonomy.
func (c *httpClient) do(ctx context.Context, method, path string, query url.Values,
	body, out interface{}) error {

	var reqBody io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return errors.WithContext(err, "marshal request")
		}
		reqBody = bytes.NewReader(bodyBytes)
	}

	reqURL := c.endpoint + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return errors.WithContext(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	// Each request carries a unique id so that failures can be correlated
	// with control plane logs.
	requestID := uuid.New().String()
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WithContext(err, "request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.parseError(method, path, requestID, resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.WithContext(err, "decode response")
	}
	return nil
}

func (c *httpClient) parseError(method, path, requestID string, resp *http.Response) error {
	op := fmt.Sprintf("%s %s", method, path)

	var wire wireError
	respBody, err := io.ReadAll(resp.Body)
	if err == nil {
		if err := json.Unmarshal(respBody, &wire); err != nil {
			// Not all error responses carry a structured body.
			wire.Message = string(respBody)
		}
	}

	log.WithFields(log.Fields{
		"op":        op,
		"status":    resp.StatusCode,
		"code":      wire.Code,
		"requestID": requestID,
	}).Debug("Control plane request failed")

	switch resp.StatusCode {
	case http.StatusNotFound:
		return errors.NotFoundError{Kind: wire.Resource, ID: wire.ResourceID}
	case http.StatusConflict:
		return errors.ConflictError{Kind: wire.Resource, Name: wire.ResourceID}
	default:
		return errors.RemoteRejectionError{
			Op:      op,
			Code:    wire.Code,
			Message: wire.Message,
		}
	}
}
