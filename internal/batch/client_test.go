package batch

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

type fakeHTTPDoer struct {
	requests  []*http.Request
	bodies    []string
	responses []*http.Response
	err       error
}

func (f *fakeHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	f.requests = append(f.requests, req)
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		f.bodies = append(f.bodies, string(raw))
	} else {
		f.bodies = append(f.bodies, "")
	}
	if f.err != nil {
		return nil, f.err
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func TestClient_UploadBatchFile(t *testing.T) {
	doer := &fakeHTTPDoer{responses: []*http.Response{
		jsonResponse(200, `{"id":"file-abc"}`),
	}}
	client := NewClient("sk-test", "", doer)

	fileID, err := client.UploadBatchFile(context.Background(), "batch_input.jsonl", []byte(`{"custom_id":"disc-1"}`))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if fileID != "file-abc" {
		t.Fatalf("file id=%q want file-abc", fileID)
	}

	req := doer.requests[0]
	if req.Method != http.MethodPost || req.URL.Path != "/v1/files" {
		t.Fatalf("request=%s %s want POST /v1/files", req.Method, req.URL.Path)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
		t.Fatalf("authorization=%q", got)
	}
	if ct := req.Header.Get("Content-Type"); !strings.HasPrefix(ct, "multipart/form-data") {
		t.Fatalf("content type=%q want multipart", ct)
	}
	body := doer.bodies[0]
	if !strings.Contains(body, `name="purpose"`) || !strings.Contains(body, "batch") {
		t.Fatalf("multipart body missing purpose=batch:\n%s", body)
	}
	if !strings.Contains(body, "disc-1") {
		t.Fatalf("multipart body missing file content")
	}
}

func TestClient_CreateJob(t *testing.T) {
	doer := &fakeHTTPDoer{responses: []*http.Response{
		jsonResponse(200, `{"id":"batch-1","status":"validating","input_file_id":"file-abc"}`),
	}}
	client := NewClient("sk-test", "", doer)

	job, err := client.CreateJob(context.Background(), "file-abc", "24h")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}
	if job.ID != "batch-1" || job.Status != "validating" {
		t.Fatalf("job=%+v", job)
	}

	body := doer.bodies[0]
	for _, fragment := range []string{`"input_file_id":"file-abc"`, `"endpoint":"/v1/responses"`, `"completion_window":"24h"`} {
		if !strings.Contains(body, fragment) {
			t.Fatalf("request body missing %s:\n%s", fragment, body)
		}
	}
}

func TestClient_GetJob(t *testing.T) {
	doer := &fakeHTTPDoer{responses: []*http.Response{
		jsonResponse(200, `{"id":"batch-1","status":"completed","output_file_id":"file-out"}`),
	}}
	client := NewClient("sk-test", "", doer)

	job, err := client.GetJob(context.Background(), "batch-1")
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job.Status != StatusCompleted || job.OutputFileID != "file-out" {
		t.Fatalf("job=%+v", job)
	}
	if path := doer.requests[0].URL.Path; path != "/v1/batches/batch-1" {
		t.Fatalf("path=%q", path)
	}
}

func TestClient_FileContentVerbatim(t *testing.T) {
	doer := &fakeHTTPDoer{responses: []*http.Response{
		jsonResponse(200, "line one\nline two\n"),
	}}
	client := NewClient("sk-test", "", doer)

	content, err := client.FileContent(context.Background(), "file-out")
	if err != nil {
		t.Fatalf("file content: %v", err)
	}
	if string(content) != "line one\nline two\n" {
		t.Fatalf("content=%q", content)
	}
}

func TestClient_APIErrorMessage(t *testing.T) {
	doer := &fakeHTTPDoer{responses: []*http.Response{
		jsonResponse(400, `{"error":{"message":"invalid completion window"}}`),
	}}
	client := NewClient("sk-test", "", doer)

	_, err := client.CreateJob(context.Background(), "file-abc", "1s")
	if err == nil {
		t.Fatalf("create job returned nil on 400")
	}
	if !strings.Contains(err.Error(), "invalid completion window") {
		t.Fatalf("error=%v want api message surfaced", err)
	}
}

func TestClient_EmptyAPIKey(t *testing.T) {
	client := NewClient("", "", &fakeHTTPDoer{})
	if _, err := client.GetJob(context.Background(), "batch-1"); err == nil {
		t.Fatalf("empty api key returned nil error")
	}
}

func TestClient_CustomBaseURL(t *testing.T) {
	doer := &fakeHTTPDoer{responses: []*http.Response{
		jsonResponse(200, `{"id":"batch-1","status":"in_progress"}`),
	}}
	client := NewClient("sk-test", "https://proxy.example.com/", doer)

	if _, err := client.GetJob(context.Background(), "batch-1"); err != nil {
		t.Fatalf("get job: %v", err)
	}
	if host := doer.requests[0].URL.Host; host != "proxy.example.com" {
		t.Fatalf("host=%q", host)
	}
}

func TestIsTerminal(t *testing.T) {
	for _, status := range []string{StatusCompleted, StatusFailed, StatusExpired, StatusCancelled} {
		if !IsTerminal(status) {
			t.Errorf("IsTerminal(%q)=false", status)
		}
	}
	for _, status := range []string{"validating", "in_progress", "finalizing", "cancelling", ""} {
		if IsTerminal(status) {
			t.Errorf("IsTerminal(%q)=true", status)
		}
	}
}
