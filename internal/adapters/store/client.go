// Package store implements the HTTP client for the remote document store's
// records and auth APIs: paged listing with the store's filter/sort/expand
// dialect, record CRUD with optional multipart file upload, password and
// refresh authentication, and the file-serving URL convention.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/bnema/stock-admin-cli/internal/domain"
)

const (
	maxResponseBytes = 4 << 20
	fullListPerPage  = 200
)

// Client talks to one store instance. The token is shared by every request
// the process issues; only the session manager writes it.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) ClearToken() {
	c.SetToken("")
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ListOptions map onto the store's query parameters. Page numbers are
// 1-based; a descending sort carries a leading "-" on the field name.
type ListOptions struct {
	Page    int
	PerPage int
	Sort    string
	Filter  string
	Expand  string
	Fields  string
}

type ListResult struct {
	Page       int             `json:"page"`
	PerPage    int             `json:"perPage"`
	TotalItems int             `json:"totalItems"`
	TotalPages int             `json:"totalPages"`
	Items      []domain.Record `json:"items"`
}

type AuthResponse struct {
	Token  string        `json:"token"`
	Record domain.Record `json:"record"`
}

func (c *Client) List(ctx context.Context, collection string, opts ListOptions) (ListResult, error) {
	query := url.Values{}
	if opts.Page > 0 {
		query.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PerPage > 0 {
		query.Set("perPage", strconv.Itoa(opts.PerPage))
	}
	if opts.Sort != "" {
		query.Set("sort", opts.Sort)
	}
	if opts.Filter != "" {
		query.Set("filter", opts.Filter)
	}
	if opts.Expand != "" {
		query.Set("expand", opts.Expand)
	}
	if opts.Fields != "" {
		query.Set("fields", opts.Fields)
	}

	var result ListResult
	path := fmt.Sprintf("/api/collections/%s/records", url.PathEscape(collection))
	if err := c.do(ctx, http.MethodGet, path, query, nil, "", &result); err != nil {
		return ListResult{}, fmt.Errorf("list %s: %w", collection, err)
	}
	return result, nil
}

// FullList pages through the whole collection and returns every matching
// record. Sorting by id keeps the pagination stable across pages.
func (c *Client) FullList(ctx context.Context, collection string, opts ListOptions) ([]domain.Record, error) {
	opts.PerPage = fullListPerPage
	if opts.Sort == "" {
		opts.Sort = "id"
	}

	var items []domain.Record
	for page := 1; ; page++ {
		opts.Page = page
		result, err := c.List(ctx, collection, opts)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)
		if page >= result.TotalPages || len(result.Items) == 0 {
			return items, nil
		}
	}
}

func (c *Client) Get(ctx context.Context, collection, id string, opts ListOptions) (domain.Record, error) {
	query := url.Values{}
	if opts.Expand != "" {
		query.Set("expand", opts.Expand)
	}
	if opts.Fields != "" {
		query.Set("fields", opts.Fields)
	}

	var record domain.Record
	path := fmt.Sprintf("/api/collections/%s/records/%s", url.PathEscape(collection), url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, path, query, nil, "", &record); err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return record, nil
}

func (c *Client) Create(ctx context.Context, collection string, data domain.Record) (domain.Record, error) {
	body, contentType, err := encodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s record: %w", collection, err)
	}

	var record domain.Record
	path := fmt.Sprintf("/api/collections/%s/records", url.PathEscape(collection))
	if err := c.do(ctx, http.MethodPost, path, nil, body, contentType, &record); err != nil {
		return nil, fmt.Errorf("create %s record: %w", collection, err)
	}
	return record, nil
}

func (c *Client) Update(ctx context.Context, collection, id string, data domain.Record) (domain.Record, error) {
	body, contentType, err := encodeRecord(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s record: %w", collection, err)
	}

	var record domain.Record
	path := fmt.Sprintf("/api/collections/%s/records/%s", url.PathEscape(collection), url.PathEscape(id))
	if err := c.do(ctx, http.MethodPatch, path, nil, body, contentType, &record); err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return record, nil
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	path := fmt.Sprintf("/api/collections/%s/records/%s", url.PathEscape(collection), url.PathEscape(id))
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, "", nil); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// AuthWithPassword authenticates against one auth collection. On success the
// returned token is installed on the client for subsequent requests.
func (c *Client) AuthWithPassword(ctx context.Context, collection, identity, password string) (AuthResponse, error) {
	payload, err := json.Marshal(map[string]string{
		"identity": identity,
		"password": password,
	})
	if err != nil {
		return AuthResponse{}, fmt.Errorf("encode auth request: %w", err)
	}

	var auth AuthResponse
	path := fmt.Sprintf("/api/collections/%s/auth-with-password", url.PathEscape(collection))
	if err := c.do(ctx, http.MethodPost, path, nil, bytes.NewReader(payload), "application/json", &auth); err != nil {
		return AuthResponse{}, fmt.Errorf("auth with password (%s): %w", collection, err)
	}
	if auth.Token == "" {
		return AuthResponse{}, fmt.Errorf("auth with password (%s): response missing token", collection)
	}

	c.SetToken(auth.Token)
	return auth, nil
}

// AuthRefresh revalidates the current token against its auth collection.
func (c *Client) AuthRefresh(ctx context.Context, collection string) (AuthResponse, error) {
	var auth AuthResponse
	path := fmt.Sprintf("/api/collections/%s/auth-refresh", url.PathEscape(collection))
	if err := c.do(ctx, http.MethodPost, path, nil, nil, "", &auth); err != nil {
		return AuthResponse{}, fmt.Errorf("auth refresh (%s): %w", collection, err)
	}
	if auth.Token != "" {
		c.SetToken(auth.Token)
	}
	return auth, nil
}

// FileURL resolves a stored filename to its serving URL for one record field.
func (c *Client) FileURL(collection, recordID, filename string) string {
	return fmt.Sprintf("%s/api/files/%s/%s/%s",
		c.baseURL,
		url.PathEscape(collection),
		url.PathEscape(recordID),
		url.PathEscape(filename),
	)
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var payload struct {
		Message string         `json:"message"`
		Data    map[string]any `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err == nil {
		apiErr.Message = payload.Message
		apiErr.Data = payload.Data
	}
	return apiErr
}

// encodeRecord serializes a record body. A domain.FileUpload value anywhere in
// the record switches the request to multipart form encoding; otherwise the
// record goes out as JSON.
func encodeRecord(data domain.Record) (io.Reader, string, error) {
	if !hasFileUpload(data) {
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(payload), "application/json", nil
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range data {
		switch v := value.(type) {
		case domain.FileUpload:
			part, err := writer.CreateFormFile(key, v.Name)
			if err != nil {
				return nil, "", err
			}
			if _, err := part.Write(v.Data); err != nil {
				return nil, "", err
			}
		case string:
			if err := writer.WriteField(key, v); err != nil {
				return nil, "", err
			}
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, "", err
			}
			if err := writer.WriteField(key, string(encoded)); err != nil {
				return nil, "", err
			}
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func hasFileUpload(data domain.Record) bool {
	for _, value := range data {
		if _, ok := value.(domain.FileUpload); ok {
			return true
		}
	}
	return false
}
