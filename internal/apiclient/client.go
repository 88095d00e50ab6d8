package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgallion1/headingmap/internal/api"
	"github.com/dgallion1/headingmap/internal/pipeline"
)

// ErrNotReady is returned by ScanResults while a job is still running.
var ErrNotReady = errors.New("scan results not ready")

// Client communicates with a headingmap server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Health checks that the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError("health", resp)
	}
	return nil
}

// Analyze sends one document for analysis.
func (c *Client) Analyze(ctx context.Context, req api.AnalyzeRequest) (*api.AnalyzeResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/analyze", req)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("analyze "+req.Filename, resp)
	}

	var out api.AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode analysis: %w", err)
	}
	return &out, nil
}

// Outline renders one document's outline as "markdown" or "html".
func (c *Client) Outline(ctx context.Context, req api.AnalyzeRequest, format string) (string, error) {
	path := "/api/outline"
	if format != "" {
		path += "?format=" + url.QueryEscape(format)
	}
	resp, err := c.do(ctx, http.MethodPost, path, req)
	if err != nil {
		return "", fmt.Errorf("outline: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", statusError("outline "+req.Filename, resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read outline: %w", err)
	}
	return string(body), nil
}

// Scan queues a project scan of a directory on the server's filesystem.
func (c *Client) Scan(ctx context.Context, req api.ScanRequest) (*api.ScanAccepted, error) {
	resp, err := c.do(ctx, http.MethodPost, "/api/scan", req)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return nil, statusError("scan "+req.Root, resp)
	}

	var out api.ScanAccepted
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode scan: %w", err)
	}
	return &out, nil
}

// ScanStatus returns the job state, or nil for an unknown job.
func (c *Client) ScanStatus(ctx context.Context, jobID string) (*pipeline.JobSnapshot, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/scan/"+url.PathEscape(jobID)+"/status", nil)
	if err != nil {
		return nil, fmt.Errorf("scan status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("scan status "+jobID, resp)
	}

	var snap pipeline.JobSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &snap, nil
}

// ScanResults returns a finished job's results. ErrNotReady means the job
// has not reached a terminal state yet.
func (c *Client) ScanResults(ctx context.Context, jobID string) (*pipeline.SweepResult, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/scan/"+url.PathEscape(jobID)+"/results", nil)
	if err != nil {
		return nil, fmt.Errorf("scan results: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusConflict {
		return nil, ErrNotReady
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("scan results "+jobID, resp)
	}

	var out struct {
		Result pipeline.SweepResult `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return &out.Result, nil
}

// WaitScan polls until the job is done or ctx ends.
func (c *Client) WaitScan(ctx context.Context, jobID string, every time.Duration) (*pipeline.JobSnapshot, error) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		snap, err := c.ScanStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if snap == nil {
			return nil, fmt.Errorf("scan %s not found", jobID)
		}
		if snap.Status.Done() {
			return snap, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.httpClient.Do(httpReq)
}

func statusError(op string, resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, strings.TrimSpace(string(respBody)))
}
