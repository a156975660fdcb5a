package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.openai.com"

// Job statuses reported by the batch endpoint.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

// IsTerminal reports whether a batch status will never change again.
// Everything else (validating, in_progress, finalizing, cancelling) is
// in flight and must not be treated as failure.
func IsTerminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Job is the subset of batch state the pipeline cares about.
type Job struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	InputFileID  string `json:"input_file_id"`
	OutputFileID string `json:"output_file_id"`
	ErrorFileID  string `json:"error_file_id"`
}

// HTTPDoer allows tests to fake HTTP transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the OpenAI files and batches endpoints.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
}

// NewClient creates a client with sane defaults.
func NewClient(apiKey, baseURL string, httpClient HTTPDoer) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// UploadBatchFile uploads the JSONL request file with purpose=batch and
// returns the file id.
func (c *Client) UploadBatchFile(ctx context.Context, filename string, content []byte) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("purpose", "batch"); err != nil {
		return "", fmt.Errorf("write purpose field: %w", err)
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("write file part: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("finish multipart form: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, "/v1/files", form.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}
	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &uploaded); err != nil {
		return "", fmt.Errorf("decode file upload response: %w", err)
	}
	if uploaded.ID == "" {
		return "", errors.New("file upload returned no id")
	}
	return uploaded.ID, nil
}

// CreateJob submits one batch over an uploaded input file.
func (c *Client) CreateJob(ctx context.Context, inputFileID, completionWindow string) (Job, error) {
	payload, err := json.Marshal(map[string]string{
		"input_file_id":     inputFileID,
		"endpoint":          ResponsesEndpoint,
		"completion_window": completionWindow,
	})
	if err != nil {
		return Job{}, fmt.Errorf("marshal batch request: %w", err)
	}
	raw, err := c.do(ctx, http.MethodPost, "/v1/batches", "application/json", bytes.NewReader(payload))
	if err != nil {
		return Job{}, err
	}
	return decodeJob(raw)
}

// GetJob retrieves current batch state.
func (c *Client) GetJob(ctx context.Context, batchID string) (Job, error) {
	raw, err := c.do(ctx, http.MethodGet, "/v1/batches/"+batchID, "", nil)
	if err != nil {
		return Job{}, err
	}
	return decodeJob(raw)
}

// FileContent downloads a result file verbatim.
func (c *Client) FileContent(ctx context.Context, fileID string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/v1/files/"+fileID+"/content", "", nil)
}

func decodeJob(raw []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return Job{}, fmt.Errorf("decode batch response: %w", err)
	}
	if job.ID == "" {
		return Job{}, errors.New("batch response has no id")
	}
	return job, nil
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) ([]byte, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is empty")
	}
	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read openai response: %w", err)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("openai status %d: %s", response.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("openai status %d: %s", response.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}
