// Package apex implements the DestinationClient for the APEX sync REST API.
package apex

import (
	"bytes"
	"context"
	"encoding/base64"
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
var _ driven.DestinationClient = (*Client)(nil)

const (
	syncPathPrefix = "/api/sync/gl/"
	logPath        = "/api/sync/logs"
	maxErrorBody   = 512
)

// route describes the endpoint and body key used to save one entity type.
type route struct {
	path string
	key  string
}

var routes = map[domain.EntityType]route{
	domain.EntityBatches:         {path: syncPathPrefix + "batches", key: "batches"},
	domain.EntityHeaders:         {path: syncPathPrefix + "headers", key: "headers"},
	domain.EntityLines:           {path: syncPathPrefix + "lines", key: "lines"},
	domain.EntityChartOfAccounts: {path: syncPathPrefix + "chart-of-accounts", key: "chartOfAccounts"},
	domain.EntityLedgers:         {path: syncPathPrefix + "ledgers", key: "ledgers"},
}

// Config contains configuration for the APEX client.
type Config struct {
	Destination domain.DestinationConfig

	// Timeout applies to each HTTP call. Default is 60s.
	Timeout time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client writes transformed GL records to APEX.
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new APEX client.
func NewClient(cfg Config) *Client {
	dest := cfg.Destination
	dest.Normalize()

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

	var authHeader string
	switch {
	case dest.Token != "":
		authHeader = "Bearer " + dest.Token
	case dest.Username != "":
		authHeader = basicAuth(dest.Username, dest.Password)
	}

	return &Client{
		baseURL:    dest.BaseURL,
		authHeader: authHeader,
		httpClient: httpClient,
		logger:     logger,
	}
}

func basicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// saveResponse is the counts block returned by every save endpoint.
// Header and line endpoints omit failed.
type saveResponse struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
}

// Save submits one page of records in a single call and returns the counts
// exactly as reported by APEX.
func (c *Client) Save(ctx context.Context, entity domain.EntityType, records []any) (domain.SaveResult, error) {
	op := "save " + string(entity)

	r, ok := routes[entity]
	if !ok {
		err := fmt.Errorf("%w: %q", domain.ErrUnknownEntity, entity)
		return domain.SaveResult{}, &domain.CallError{Kind: domain.KindHTTP, Op: op, Message: err.Error(), Err: err}
	}
	if records == nil {
		records = []any{}
	}

	var out saveResponse
	if err := c.post(ctx, op, r.path, map[string]any{r.key: records}, &out); err != nil {
		return domain.SaveResult{}, err
	}

	result := domain.SaveResult{Inserted: out.Inserted, Updated: out.Updated, Failed: out.Failed}
	c.logger.Debug("apex save",
		"entity", entity,
		"submitted", len(records),
		"inserted", result.Inserted,
		"updated", result.Updated,
		"failed", result.Failed,
	)
	return result, nil
}

// jobPayload is the run metadata sent to the sync log endpoint.
type jobPayload struct {
	RunID      string                                      `json:"runId"`
	StartTime  time.Time                                   `json:"startTime"`
	EndTime    *time.Time                                  `json:"endTime,omitempty"`
	DurationMS int64                                       `json:"durationMs"`
	Status     domain.RunState                             `json:"status"`
	Success    bool                                        `json:"success"`
	Cancelled  bool                                        `json:"cancelled"`
	Source     string                                      `json:"source"`
	Trigger    string                                      `json:"triggeredBy,omitempty"`
	Entities   map[domain.EntityType]*domain.EntityOutcome `json:"entities"`
	Totals     domain.SaveResult                           `json:"totals"`
	Errors     []string                                    `json:"errors"`
}

// LogSyncJob persists run metadata and returns the APEX job id.
func (c *Client) LogSyncJob(ctx context.Context, entry *domain.SyncLogEntry) (string, error) {
	const op = "log sync job"

	errs := entry.Errors
	if errs == nil {
		errs = []string{}
	}
	payload := jobPayload{
		RunID:      entry.ID,
		StartTime:  entry.StartedAt,
		EndTime:    entry.CompletedAt,
		DurationMS: entry.Duration().Milliseconds(),
		Status:     entry.State,
		Success:    entry.Success,
		Cancelled:  entry.Cancelled,
		Source:     domain.SyncSourceFusion,
		Trigger:    entry.Options.TriggeredBy,
		Entities:   entry.Entities,
		Totals:     entry.Totals(),
		Errors:     errs,
	}

	var out struct {
		JobID json.RawMessage `json:"jobId"`
	}
	if err := c.post(ctx, op, logPath, payload, &out); err != nil {
		return "", err
	}
	return jobIDString(out.JobID), nil
}

// jobIDString accepts both numeric and string job ids.
func jobIDString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// post sends a JSON body and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, op, path string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return &domain.CallError{Kind: domain.KindDecode, Op: op, Message: err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return domain.NewConnectionError(op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.authHeader != "" {
		req.Header.Set("Authorization", c.authHeader)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewConnectionError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		reason := strings.TrimSpace(string(body))
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return domain.NewAuthError(op, resp.StatusCode, reason)
		}
		return domain.NewHTTPError(op, resp.StatusCode, reason)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return domain.NewDecodeError(op, err)
	}
	return nil
}
