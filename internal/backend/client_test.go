package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mvickers/papercut/internal/models"
)

func TestClientAuthorizes(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]models.Asset{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	if _, err := c.Assets(context.Background()); err != nil {
		t.Fatalf("Assets: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestClientErrorNormalization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"detail": "renderer crashed"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.PipelineStatus(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type %T", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Detail != "renderer crashed" {
		t.Errorf("got %+v", apiErr)
	}
	if !apiErr.IsRetryable() {
		t.Error("5xx must be retryable")
	}
}

func TestClientTransportErrorIsRetryable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "")
	_, err := c.Assets(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type %T", err)
	}
	if apiErr.Status != 0 || !apiErr.IsRetryable() {
		t.Errorf("transport failure must carry status 0 and be retryable, got %+v", apiErr)
	}
}

func TestClientClientErrorNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no such clip"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	_, err := c.PaperEdit(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type %T", err)
	}
	if apiErr.IsRetryable() {
		t.Error("4xx must not be retryable")
	}
	if apiErr.Detail != "no such clip" {
		t.Errorf("detail = %q", apiErr.Detail)
	}
}

func TestRunPipeline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/pipeline/run" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["prompt"] != "make a highlight reel" || body["project_name"] != "demo" {
			t.Errorf("body = %v", body)
		}
		json.NewEncoder(w).Encode(map[string]string{"thread_id": "t-123"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	threadID, err := c.RunPipeline(context.Background(), "make a highlight reel", "demo")
	if err != nil {
		t.Fatalf("RunPipeline: %v", err)
	}
	if threadID != "t-123" {
		t.Errorf("threadID = %q", threadID)
	}
}

func TestRejectSendsReason(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	if err := c.Reject(context.Background(), "too long"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if got["action"] != "reject" || got["reason"] != "too long" {
		t.Errorf("body = %v", got)
	}
}

func TestStreamURL(t *testing.T) {
	c := NewClient("http://backend:9000/", "")
	got := c.StreamURL("/renders/final.mp4")
	want := "http://backend:9000/api/v1/stream/renders%2Ffinal.mp4"
	if got != want {
		t.Errorf("StreamURL = %q, want %q", got, want)
	}
}

func TestBestOutput(t *testing.T) {
	mastered := models.OutputFile{Name: "final_mastered.mp4", Type: models.OutputMastered}
	captioned := models.OutputFile{Name: "final_captioned.mp4", Type: models.OutputCaptioned}
	render := models.OutputFile{Name: "render.mp4", Type: models.OutputRender}

	tests := []struct {
		name  string
		files []models.OutputFile
		want  string
	}{
		{"empty", nil, ""},
		{"render only", []models.OutputFile{render}, "render.mp4"},
		{"captioned beats render", []models.OutputFile{render, captioned}, "final_captioned.mp4"},
		{"mastered beats all", []models.OutputFile{render, mastered, captioned}, "final_mastered.mp4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BestOutput(tt.files)
			if tt.want == "" {
				if got != nil {
					t.Errorf("want nil, got %+v", got)
				}
				return
			}
			if got == nil || got.Name != tt.want {
				t.Errorf("got %+v, want %s", got, tt.want)
			}
		})
	}
}
