package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/mvickers/papercut/internal/backend"
)

func task(t *testing.T, taskType string, payload interface{}) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return asynq.NewTask(taskType, data)
}

func TestHandleReorder(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	var got map[string][]uuid.UUID
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/paper-edit/reorder" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	h := NewSyncHandlers(backend.NewClient(srv.URL, ""))
	err := h.HandleReorder(context.Background(), task(t, TaskSyncReorder, ReorderPayload{ClipIDs: ids}))
	if err != nil {
		t.Fatalf("HandleReorder: %v", err)
	}
	if len(got["clip_ids"]) != 2 || got["clip_ids"][0] != ids[0] {
		t.Errorf("body = %v", got)
	}
}

func TestHandleClipDeleteConvergedOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	h := NewSyncHandlers(backend.NewClient(srv.URL, ""))
	err := h.HandleClipDelete(context.Background(),
		task(t, TaskSyncClipDelete, ClipDeletePayload{ClipID: uuid.New()}))
	if err != nil {
		t.Errorf("404 means the delete already converged, got %v", err)
	}
}

func TestHandleClipDeleteRetriesOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := NewSyncHandlers(backend.NewClient(srv.URL, ""))
	err := h.HandleClipDelete(context.Background(),
		task(t, TaskSyncClipDelete, ClipDeletePayload{ClipID: uuid.New()}))
	if err == nil {
		t.Error("server error must propagate so asynq retries")
	}
}

func TestHandlersRejectMalformedPayload(t *testing.T) {
	h := NewSyncHandlers(backend.NewClient("http://127.0.0.1:1", ""))
	bad := asynq.NewTask(TaskSyncClip, []byte("{not json"))
	if err := h.HandleClip(context.Background(), bad); err == nil {
		t.Error("malformed payload must error")
	}
}

func TestIsTaskConflict(t *testing.T) {
	if !isTaskConflict(asynq.ErrTaskIDConflict) {
		t.Error("sentinel conflict not detected")
	}
	if !isTaskConflict(errors.New("task ID conflicts with another task")) {
		t.Error("string-form conflict not detected")
	}
	if isTaskConflict(errors.New("connection refused")) {
		t.Error("unrelated error misclassified")
	}
}
