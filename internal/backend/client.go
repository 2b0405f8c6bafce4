package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mvickers/papercut/internal/models"
)

// APIError is the normalized shape of every failed backend call: transport
// failures carry Status 0, HTTP failures the response code. Surfaced to the
// UI as a dismissible notification, never fatal to the editing session.
type APIError struct {
	Status   int
	Detail   string
	Endpoint string
	Method   string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Endpoint, e.Detail)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Endpoint, e.Status, e.Detail)
}

// IsRetryable reports whether the failure is worth retrying: network errors
// and server errors are, client errors are permanent.
func (e *APIError) IsRetryable() bool {
	return e.Status == 0 || e.Status >= 500
}

// Client talks to the processing backend's REST surface. Pipeline commands
// are fire-and-forget: the response only acknowledges receipt, real progress
// arrives on the event stream.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// StreamURL builds the playable locator for a backend-stored file path.
// Bytes are streamed from this endpoint, never embedded in API bodies.
func (c *Client) StreamURL(path string) string {
	return c.baseURL + "/api/v1/stream/" + url.PathEscape(strings.TrimPrefix(path, "/"))
}

// ──────────────────── Assets ────────────────────

func (c *Client) Assets(ctx context.Context) ([]models.Asset, error) {
	var out []models.Asset
	if err := c.do(ctx, http.MethodGet, "/api/v1/assets", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadAsset streams a multipart upload to the backend and returns the
// ingested asset record.
func (c *Client) UploadAsset(ctx context.Context, assetType models.AssetType, filename string, r io.Reader) (*models.Asset, error) {
	endpoint := "/api/v1/assets/upload?asset_type=" + url.QueryEscape(string(assetType))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, &APIError{Detail: err.Error(), Endpoint: endpoint, Method: http.MethodPost}
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, &APIError{Detail: err.Error(), Endpoint: endpoint, Method: http.MethodPost}
	}
	mw.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, &APIError{Detail: err.Error(), Endpoint: endpoint, Method: http.MethodPost}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	var out models.Asset
	if err := c.send(req, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ──────────────────── Pipeline commands ────────────────────

type StatusResponse struct {
	Phase      models.PipelinePhase `json:"phase"`
	AssetCount int                  `json:"asset_count"`
	ClipCount  int                  `json:"clip_count"`
	ThreadID   string               `json:"thread_id,omitempty"`
}

func (c *Client) PipelineStatus(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/pipeline/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunPipeline starts a new run and returns the session thread id.
func (c *Client) RunPipeline(ctx context.Context, prompt, projectName string) (string, error) {
	body := map[string]string{"prompt": prompt, "project_name": projectName}
	var out struct {
		ThreadID string `json:"thread_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/pipeline/run", body, &out); err != nil {
		return "", err
	}
	return out.ThreadID, nil
}

// Approve accepts the pending paper edit, optionally submitting the user's
// modified version.
func (c *Client) Approve(ctx context.Context, edited *models.Sequence) error {
	body := map[string]interface{}{"action": "approve"}
	if edited != nil {
		body["paper_edit"] = edited
	}
	return c.do(ctx, http.MethodPost, "/api/v1/pipeline/approve", body, nil)
}

// Reject sends the paper edit back to scripting with a revision reason.
func (c *Client) Reject(ctx context.Context, reason string) error {
	body := map[string]string{"action": "reject", "reason": reason}
	return c.do(ctx, http.MethodPost, "/api/v1/pipeline/approve", body, nil)
}

// RequestEdit submits a free-text edit instruction against a completed
// sequence.
func (c *Client) RequestEdit(ctx context.Context, instruction string) error {
	body := map[string]string{"instruction": instruction}
	return c.do(ctx, http.MethodPost, "/api/v1/pipeline/edit", body, nil)
}

// ──────────────────── Paper edit sync ────────────────────

func (c *Client) PaperEdit(ctx context.Context) (*models.Sequence, error) {
	var out models.Sequence
	if err := c.do(ctx, http.MethodGet, "/api/v1/paper-edit", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PutPaperEdit(ctx context.Context, seq models.Sequence) error {
	return c.do(ctx, http.MethodPut, "/api/v1/paper-edit", seq, nil)
}

func (c *Client) ReorderClips(ctx context.Context, ids []uuid.UUID) error {
	body := map[string][]uuid.UUID{"clip_ids": ids}
	return c.do(ctx, http.MethodPost, "/api/v1/paper-edit/reorder", body, nil)
}

func (c *Client) PatchClip(ctx context.Context, id uuid.UUID, patch map[string]interface{}) error {
	return c.do(ctx, http.MethodPatch, "/api/v1/paper-edit/clips/"+id.String(), patch, nil)
}

func (c *Client) DeleteClip(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/paper-edit/clips/"+id.String(), nil, nil)
}

// ──────────────────── Outputs ────────────────────

func (c *Client) Outputs(ctx context.Context) ([]models.OutputFile, error) {
	var out []models.OutputFile
	if err := c.do(ctx, http.MethodGet, "/api/v1/output", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BestOutput picks the most-processed render: mastered beats captioned beats
// anything else. Returns nil when the list is empty.
func BestOutput(files []models.OutputFile) *models.OutputFile {
	rank := func(t models.OutputType) int {
		switch t {
		case models.OutputMastered:
			return 0
		case models.OutputCaptioned:
			return 1
		default:
			return 2
		}
	}
	var best *models.OutputFile
	for i := range files {
		if best == nil || rank(files[i].Type) < rank(best.Type) {
			best = &files[i]
		}
	}
	return best
}

// ──────────────────── Plumbing ────────────────────

func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &APIError{Detail: "marshal request: " + err.Error(), Endpoint: endpoint, Method: method}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return &APIError{Detail: err.Error(), Endpoint: endpoint, Method: method}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)
	return c.send(req, endpoint, out)
}

func (c *Client) send(req *http.Request, endpoint string, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Detail: err.Error(), Endpoint: endpoint, Method: req.Method}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readErrorDetail(resp.Body)
		return &APIError{Status: resp.StatusCode, Detail: detail, Endpoint: endpoint, Method: req.Method}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Status: resp.StatusCode, Detail: "decode response: " + err.Error(), Endpoint: endpoint, Method: req.Method}
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func readErrorDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || len(data) == 0 {
		return "request failed"
	}
	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Detail != "" {
			return body.Detail
		}
	}
	return strings.TrimSpace(string(data))
}
