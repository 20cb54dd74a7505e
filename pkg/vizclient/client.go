package vizclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Minute

// Client talks to a visualization server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload submits the form in a single multipart POST and returns the job
// id. The request is not retried; a response with status >= 400 or a JSON
// body carrying an "error" key is a failure.
func (c *Client) Upload(ctx context.Context, form *Form) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, fld := range form.Fields() {
		if err := mw.WriteField(fld.Name, fld.Value); err != nil {
			return "", fmt.Errorf("encode field %s: %w", fld.Name, err)
		}
	}
	for _, att := range form.attachments() {
		part, err := mw.CreateFormFile(att.Field, att.Filename)
		if err != nil {
			return "", fmt.Errorf("encode file %s: %w", att.Field, err)
		}
		if _, err := io.Copy(part, att.Content); err != nil {
			return "", fmt.Errorf("read %s: %w", att.Filename, err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}

	var payload struct {
		JobID string `json:"job_id"`
		Error string `json:"error"`
	}
	// Non-JSON bodies fall through to the status-code check.
	_ = json.Unmarshal(body, &payload)

	if resp.StatusCode >= http.StatusBadRequest || payload.Error != "" {
		return "", serverError(resp.StatusCode, payload.Error)
	}
	if payload.JobID == "" {
		return "", fmt.Errorf("upload succeeded but no job id was returned")
	}
	return payload.JobID, nil
}

// JobStatus fetches the current status of a job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/job_status/"+jobID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read status response: %w", err)
	}

	var st Status
	if uerr := json.Unmarshal(body, &st); uerr != nil && resp.StatusCode < http.StatusBadRequest {
		return nil, fmt.Errorf("decode status response: %w", uerr)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, serverError(resp.StatusCode, st.Error)
	}
	return &st, nil
}

// Cancel asks the server to stop a job. Jobs already in a terminal state
// cannot be canceled and report a conflict.
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cancel/"+jobID, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cancel request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		var payload struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(body, &payload)
		return serverError(resp.StatusCode, payload.Error)
	}
	return nil
}

// Download streams the finished video into w.
func (c *Client) Download(ctx context.Context, jobID string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/download/"+jobID, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return serverError(resp.StatusCode, "")
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download %s: %w", jobID, err)
	}
	return nil
}
