// Package fusion implements the SourceClient for the Oracle Fusion Cloud REST API.
package fusion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/fusion-sync/internal/core/domain"
	"github.com/custodia-labs/fusion-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SourceClient = (*Client)(nil)

// maxErrorBody bounds how much of an error response is kept as the reason.
const maxErrorBody = 512

// Config contains configuration for the Fusion client.
type Config struct {
	Credentials domain.Credentials
	Endpoints   domain.EndpointConfig

	// Timeout applies to each HTTP call. Default is 60s.
	Timeout time.Duration

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client

	// Clock is used for JWT assertion timestamps.
	Clock func() time.Time

	Logger *slog.Logger
}

// Client provides read access to the Fusion GL REST resources.
type Client struct {
	baseURL    string
	endpoints  domain.EndpointConfig
	auth       *authorizer
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Fusion API client. Credentials and endpoints are
// normalised once here and are read-only afterwards.
func NewClient(cfg Config) *Client {
	creds := cfg.Credentials
	creds.Normalize()

	endpoints := domain.EndpointConfig{BaseAPIPath: cfg.Endpoints.BaseAPIPath}
	endpoints.Resources = make(map[domain.Resource]string, len(cfg.Endpoints.Resources))
	for r, p := range cfg.Endpoints.Resources {
		endpoints.Resources[r] = p
	}
	endpoints.Normalize()

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    creds.InstanceURL + endpoints.BaseAPIPath,
		endpoints:  endpoints,
		auth:       newAuthorizer(creds, cfg.Clock),
		httpClient: httpClient,
		logger:     logger,
	}
}

// collectionResponse is the envelope of every Fusion collection GET.
type collectionResponse struct {
	Items   []json.RawMessage `json:"items"`
	Count   int               `json:"count"`
	HasMore bool              `json:"hasMore"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
}

// TestConnection fetches a single ledger. It never returns an error; the
// outcome is carried in the result.
func (c *Client) TestConnection(ctx context.Context) domain.ConnectionResult {
	page, status, err := c.fetch(ctx, "test connection", domain.ResourceLedgers, domain.Filters{}, domain.Pagination{Limit: 1})
	if err != nil {
		result := domain.ConnectionResult{
			Success:    false,
			Error:      err.Error(),
			Kind:       domain.KindOf(err),
			StatusCode: domain.StatusCodeOf(err),
		}
		c.logger.Warn("fusion connection test failed", "kind", result.Kind, "status", result.StatusCode, "error", err)
		return result
	}

	return domain.ConnectionResult{
		Success:    true,
		Message:    fmt.Sprintf("connected to %s (%d ledger(s) visible on first page)", c.baseURL, len(page.Items)),
		StatusCode: status,
	}
}

// FetchPage fetches one page of a resource.
func (c *Client) FetchPage(ctx context.Context, resource domain.Resource, filters domain.Filters, page domain.Pagination) (*domain.Page, error) {
	p, _, err := c.fetch(ctx, "fetch "+string(resource), resource, filters, page)
	if err != nil {
		return &domain.Page{Items: []json.RawMessage{}, Limit: page.Limit, Offset: page.Offset}, err
	}
	return p, nil
}

func (c *Client) fetch(ctx context.Context, op string, resource domain.Resource, filters domain.Filters, page domain.Pagination) (*domain.Page, int, error) {
	path, err := c.endpoints.Path(resource)
	if err != nil {
		return nil, 0, &domain.CallError{Kind: domain.KindHTTP, Op: op, Message: err.Error(), Err: err}
	}

	query := BuildQuery(resource, filters, page)
	c.logger.Debug("fusion fetch",
		"resource", resource,
		"limit", page.Limit,
		"offset", page.Offset,
		"q", query.Get("q"),
	)

	resp, err := c.doRequest(ctx, op, http.MethodGet, path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var body collectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, resp.StatusCode, domain.NewDecodeError(op, err)
	}
	if body.Items == nil {
		body.Items = []json.RawMessage{}
	}

	return &domain.Page{
		Items:      body.Items,
		TotalCount: body.Count,
		HasMore:    body.HasMore,
		Limit:      page.Limit,
		Offset:     page.Offset,
	}, resp.StatusCode, nil
}

// PostJournal posts a journal entry payload back to Fusion.
// It exists for future bidirectional sync and is not used by the pipeline.
func (c *Client) PostJournal(ctx context.Context, payload any) (map[string]any, error) {
	const op = "post journal"

	path, err := c.endpoints.Path(domain.ResourceJournalEntries)
	if err != nil {
		return nil, &domain.CallError{Kind: domain.KindHTTP, Op: op, Message: err.Error(), Err: err}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, &domain.CallError{Kind: domain.KindDecode, Op: op, Message: err.Error(), Err: err}
	}

	resp, err := c.doRequest(ctx, op, http.MethodPost, path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return nil, domain.NewDecodeError(op, err)
	}
	return out, nil
}

// doRequest performs one authenticated request. It does not retry.
// Any non-2xx status is converted to a CallError and the body is closed.
func (c *Client) doRequest(ctx context.Context, op, method, path string, body io.Reader) (*http.Response, error) {
	authHeader, err := c.auth.header(op)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, domain.NewConnectionError(op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", authHeader)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewConnectionError(op, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	reason := readReason(resp)
	resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, domain.NewAuthError(op, resp.StatusCode, reason)
	}
	return nil, domain.NewHTTPError(op, resp.StatusCode, reason)
}

func readReason(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	reason := strings.TrimSpace(string(data))
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return reason
}
