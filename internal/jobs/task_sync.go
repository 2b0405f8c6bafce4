package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/mvickers/papercut/internal/backend"
	"github.com/mvickers/papercut/internal/models"
)

// Payloads. Each carries the full desired state, so re-running a task is
// idempotent regardless of how many enqueues it absorbed.

type ReorderPayload struct {
	ClipIDs []uuid.UUID `json:"clip_ids"`
}

type ClipPayload struct {
	ClipID uuid.UUID              `json:"clip_id"`
	Patch  map[string]interface{} `json:"patch"`
}

type ClipDeletePayload struct {
	ClipID uuid.UUID `json:"clip_id"`
}

type PaperEditPayload struct {
	Sequence models.Sequence `json:"sequence"`
}

type AssetUploadPayload struct {
	Path      string           `json:"path"`
	Filename  string           `json:"filename"`
	AssetType models.AssetType `json:"asset_type"`
}

// SyncHandlers pushes optimistic local mutations to the backend. Failures
// are returned so asynq retries; they never touch local editor state.
type SyncHandlers struct {
	client *backend.Client
}

func NewSyncHandlers(client *backend.Client) *SyncHandlers {
	return &SyncHandlers{client: client}
}

// Register attaches all sync task handlers to the queue.
func (h *SyncHandlers) Register(q *Queue) {
	q.RegisterHandler(TaskSyncReorder, asynq.HandlerFunc(h.HandleReorder))
	q.RegisterHandler(TaskSyncClip, asynq.HandlerFunc(h.HandleClip))
	q.RegisterHandler(TaskSyncClipDelete, asynq.HandlerFunc(h.HandleClipDelete))
	q.RegisterHandler(TaskSyncPaperEdit, asynq.HandlerFunc(h.HandlePaperEdit))
	q.RegisterHandler(TaskAssetUpload, asynq.HandlerFunc(h.HandleAssetUpload))
}

func (h *SyncHandlers) HandleReorder(ctx context.Context, t *asynq.Task) error {
	var p ReorderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal %s: %w", t.Type(), err)
	}
	if err := h.client.ReorderClips(ctx, p.ClipIDs); err != nil {
		return fmt.Errorf("sync reorder: %w", err)
	}
	return nil
}

func (h *SyncHandlers) HandleClip(ctx context.Context, t *asynq.Task) error {
	var p ClipPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal %s: %w", t.Type(), err)
	}
	if err := h.client.PatchClip(ctx, p.ClipID, p.Patch); err != nil {
		return fmt.Errorf("sync clip %s: %w", p.ClipID, err)
	}
	return nil
}

func (h *SyncHandlers) HandleClipDelete(ctx context.Context, t *asynq.Task) error {
	var p ClipDeletePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal %s: %w", t.Type(), err)
	}
	err := h.client.DeleteClip(ctx, p.ClipID)
	if apiErr, ok := err.(*backend.APIError); ok && apiErr.Status == 404 {
		// Already gone on the backend; the delete has converged.
		return nil
	}
	if err != nil {
		return fmt.Errorf("sync clip delete %s: %w", p.ClipID, err)
	}
	return nil
}

func (h *SyncHandlers) HandlePaperEdit(ctx context.Context, t *asynq.Task) error {
	var p PaperEditPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal %s: %w", t.Type(), err)
	}
	if err := h.client.PutPaperEdit(ctx, p.Sequence); err != nil {
		return fmt.Errorf("sync paper edit: %w", err)
	}
	return nil
}

func (h *SyncHandlers) HandleAssetUpload(ctx context.Context, t *asynq.Task) error {
	var p AssetUploadPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal %s: %w", t.Type(), err)
	}
	f, err := os.Open(p.Path)
	if err != nil {
		return fmt.Errorf("open upload %s: %w", p.Path, err)
	}

	asset, err := h.client.UploadAsset(ctx, p.AssetType, p.Filename, f)
	f.Close()
	if err != nil {
		return fmt.Errorf("upload asset %s: %w", p.Filename, err)
	}
	os.Remove(p.Path)
	log.Printf("[queue] uploaded asset %s (%s)", asset.Name, asset.ID)
	return nil
}
