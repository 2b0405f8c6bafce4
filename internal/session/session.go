package session

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/mvickers/papercut/internal/backend"
	"github.com/mvickers/papercut/internal/config"
	"github.com/mvickers/papercut/internal/jobs"
	"github.com/mvickers/papercut/internal/models"
	"github.com/mvickers/papercut/internal/playback"
	"github.com/mvickers/papercut/internal/repository"
	"github.com/mvickers/papercut/internal/sequence"
	"github.com/mvickers/papercut/internal/timeline"
)

// Notifier pushes editor events to connected UI clients.
type Notifier interface {
	Broadcast(event string, data interface{})
}

// SyncQueue is the slice of jobs.Queue the session needs; nil disables
// background sync.
type SyncQueue interface {
	EnqueueUnique(taskType string, payload interface{}, uniqueID string, opts ...asynq.Option) (string, error)
}

// Session is the authoritative editing session: it owns the sequence model,
// the asset bin, the playback engine and the pipeline state, and is the only
// writer to any of them. UI handlers and the event-stream listener both land
// here.
type Session struct {
	mu       sync.Mutex
	cfg      *config.Config
	model    *sequence.Model
	viewport timeline.Viewport
	assets   []models.Asset

	selectedClip  uuid.UUID
	selectedAsset uuid.UUID

	phase       models.PipelinePhase
	activity    *models.AgentActivity
	lastEventAt time.Time
	pipeErrors  []models.PipelineError
	renderPath  string
	threadID    string

	client *backend.Client
	queue  SyncQueue
	engine *playback.Engine
	notify Notifier

	repo      *repository.ProjectRepository
	projectID uuid.UUID
}

func New(cfg *config.Config, client *backend.Client, slotA, slotB playback.Slot, notify Notifier) *Session {
	s := &Session{
		cfg:      cfg,
		model:    sequence.New(),
		viewport: timeline.NewViewport(),
		phase:    models.PhaseIdle,
		client:   client,
		notify:   notify,
	}
	s.engine = playback.NewEngine(slotA, slotB, s.resolveSource)
	s.engine.OnUpdate(s.onPlayback)
	return s
}

// AttachQueue enables best-effort background sync.
func (s *Session) AttachQueue(q SyncQueue) {
	s.mu.Lock()
	s.queue = q
	s.mu.Unlock()
}

// AttachStore enables autosave/restore against the local project store.
func (s *Session) AttachStore(repo *repository.ProjectRepository) error {
	id, err := repo.EnsureProject(s.cfg.ProjectName)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.repo = repo
	s.projectID = id
	s.mu.Unlock()
	return nil
}

func (s *Session) Engine() *playback.Engine { return s.engine }

// ──────────────────── Boot ────────────────────

// Bootstrap pulls current backend state (phase, paper edit, assets) and falls
// back to the latest local snapshot when the backend has no paper edit yet.
// Every step is best-effort: a cold backend must not keep the editor down.
func (s *Session) Bootstrap(ctx context.Context) {
	if status, err := s.client.PipelineStatus(ctx); err == nil {
		s.mu.Lock()
		s.phase = status.Phase
		s.threadID = status.ThreadID
		s.mu.Unlock()
	} else {
		s.reportTransportError(err)
	}

	s.RefreshAssets(ctx)

	seq, err := s.client.PaperEdit(ctx)
	if err != nil || seq == nil || len(seq.Clips) == 0 {
		seq = s.restoreSnapshot()
	}
	if seq != nil {
		s.mu.Lock()
		s.model.Replace(*seq)
		snapshot := s.model.Current()
		s.mu.Unlock()
		s.engine.SetSequence(snapshot)
		s.notify.Broadcast("sequence:update", snapshot)
	}
}

func (s *Session) restoreSnapshot() *models.Sequence {
	s.mu.Lock()
	repo, projectID := s.repo, s.projectID
	s.mu.Unlock()
	if repo == nil {
		return nil
	}
	seq, err := repo.LatestSnapshot(projectID)
	if err != nil {
		log.Printf("[session] snapshot restore failed: %v", err)
		return nil
	}
	if seq != nil {
		log.Printf("[session] restored local snapshot (%d clips)", len(seq.Clips))
	}
	return seq
}

// ──────────────────── Sequence mutations ────────────────────

func (s *Session) Sequence() models.Sequence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Current()
}

func (s *Session) Segments() []sequence.Segment {
	s.mu.Lock()
	seq := s.model.Current()
	s.mu.Unlock()
	return sequence.BuildSegments(seq.Clips)
}

// ReplaceSequence swaps the whole sequence in one undoable step, e.g. after a
// bulk edit in the UI.
func (s *Session) ReplaceSequence(seq models.Sequence) {
	s.mu.Lock()
	s.model.Replace(seq)
	out := s.model.Current()
	s.mu.Unlock()

	s.applySequence(out)
	s.syncWholePaperEdit(out)
}

// Reorder applies a full permutation atomically through the model and
// enqueues the idempotent backend sync.
func (s *Session) Reorder(ids []uuid.UUID) {
	s.mu.Lock()
	s.model.Reorder(ids)
	seq := s.model.Current()
	s.mu.Unlock()

	s.applySequence(seq)
	s.enqueue(jobs.TaskSyncReorder, jobs.ReorderPayload{ClipIDs: ids}, "sync:reorder")
}

func (s *Session) UpdateClip(id uuid.UUID, patch sequence.ClipPatch) error {
	s.mu.Lock()
	err := s.model.UpdateClip(id, patch)
	seq := s.model.Current()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.applySequence(seq)
	s.enqueue(jobs.TaskSyncClip, jobs.ClipPayload{ClipID: id, Patch: patchBody(patch)},
		"sync:clip:"+id.String())
	return nil
}

func (s *Session) DeleteClip(id uuid.UUID) bool {
	s.mu.Lock()
	ok := s.model.DeleteClip(id)
	if ok && s.selectedClip == id {
		s.selectedClip = uuid.Nil
	}
	seq := s.model.Current()
	s.mu.Unlock()
	if !ok {
		return false
	}

	s.applySequence(seq)
	s.enqueue(jobs.TaskSyncClipDelete, jobs.ClipDeletePayload{ClipID: id},
		"sync:clip:delete:"+id.String())
	return true
}

// AppendFromAsset drops an asset onto the end of the timeline and selects the
// new clip. Returns uuid.Nil when the asset is unknown.
func (s *Session) AppendFromAsset(assetID uuid.UUID) uuid.UUID {
	s.mu.Lock()
	var asset *models.Asset
	for i := range s.assets {
		if s.assets[i].ID == assetID {
			asset = &s.assets[i]
			break
		}
	}
	if asset == nil {
		s.mu.Unlock()
		return uuid.Nil
	}
	clipID := s.model.AppendFromAsset(*asset)
	if clipID == uuid.Nil {
		s.mu.Unlock()
		return uuid.Nil
	}
	s.selectedClip = clipID
	s.selectedAsset = uuid.Nil
	seq := s.model.Current()
	s.mu.Unlock()

	s.applySequence(seq)
	s.syncWholePaperEdit(seq)
	return clipID
}

func (s *Session) SplitClip(id uuid.UUID, atSourceMs int64) (uuid.UUID, error) {
	s.mu.Lock()
	newID, err := s.model.SplitClip(id, atSourceMs)
	seq := s.model.Current()
	s.mu.Unlock()
	if err != nil {
		return uuid.Nil, err
	}

	s.applySequence(seq)
	s.syncWholePaperEdit(seq)
	return newID, nil
}

func (s *Session) Undo() bool { return s.applyHistory((*sequence.Model).Undo) }
func (s *Session) Redo() bool { return s.applyHistory((*sequence.Model).Redo) }

func (s *Session) applyHistory(op func(*sequence.Model) bool) bool {
	s.mu.Lock()
	ok := op(s.model)
	seq := s.model.Current()
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.applySequence(seq)
	s.syncWholePaperEdit(seq)
	return true
}

// applySequence fans a committed mutation out to the engine and the UI.
func (s *Session) applySequence(seq models.Sequence) {
	s.engine.SetSequence(seq)
	s.notify.Broadcast("sequence:update", seq)
}

func (s *Session) syncWholePaperEdit(seq models.Sequence) {
	s.enqueue(jobs.TaskSyncPaperEdit, jobs.PaperEditPayload{Sequence: seq}, "sync:paperedit")
}

// enqueue is fire-and-forget: local state is already committed, a sync
// failure is logged and retried by the queue, never rolled back.
func (s *Session) enqueue(taskType string, payload interface{}, uniqueID string) {
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()
	if q == nil {
		return
	}
	if _, err := q.EnqueueUnique(taskType, payload, uniqueID); err != nil {
		log.Printf("[session] enqueue %s failed: %v", taskType, err)
	}
}

func patchBody(p sequence.ClipPatch) map[string]interface{} {
	body := map[string]interface{}{}
	if p.InMs != nil {
		body["in_ms"] = *p.InMs
	}
	if p.OutMs != nil {
		body["out_ms"] = *p.OutMs
	}
	if p.Type != nil {
		body["type"] = *p.Type
	}
	if p.Description != nil {
		body["description"] = *p.Description
	}
	if p.Transition != nil {
		body["transition"] = *p.Transition
	}
	if p.OverlayText != nil {
		body["overlay_text"] = *p.OverlayText
	}
	if p.SearchQuery != nil {
		body["search_query"] = *p.SearchQuery
	}
	return body
}

// ──────────────────── Selection ────────────────────

// SelectClip records the selected clip. While paused the engine seeks to the
// clip's start; while playing selection is a read-only reflection of the
// playhead and must not be driven back into a seek.
func (s *Session) SelectClip(id uuid.UUID) {
	s.mu.Lock()
	seq := s.model.Current()
	idx := seq.ClipIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.selectedClip = id
	s.selectedAsset = uuid.Nil
	s.mu.Unlock()

	if snap := s.engine.Snapshot(); snap.State != playback.StatePlaying {
		s.engine.Seek(sequence.CumulativeStartMs(seq.Clips, idx))
	}
	s.notify.Broadcast("selection:update", s.Selection())
}

func (s *Session) SelectAsset(id uuid.UUID) {
	s.mu.Lock()
	s.selectedAsset = id
	s.selectedClip = uuid.Nil
	s.mu.Unlock()
	s.notify.Broadcast("selection:update", s.Selection())
}

// DeleteSelection implements the keyboard delete: the selected clip wins over
// the selected asset when both exist.
func (s *Session) DeleteSelection() {
	s.mu.Lock()
	clipID, assetID := s.selectedClip, s.selectedAsset
	s.mu.Unlock()

	if clipID != uuid.Nil {
		s.DeleteClip(clipID)
		return
	}
	if assetID != uuid.Nil {
		s.RemoveAsset(assetID)
	}
}

type SelectionState struct {
	ClipID  *uuid.UUID `json:"clip_id,omitempty"`
	AssetID *uuid.UUID `json:"asset_id,omitempty"`
}

func (s *Session) Selection() SelectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	var state SelectionState
	if s.selectedClip != uuid.Nil {
		id := s.selectedClip
		state.ClipID = &id
	}
	if s.selectedAsset != uuid.Nil {
		id := s.selectedAsset
		state.AssetID = &id
	}
	return state
}

// onPlayback publishes engine state and mirrors the playhead clip into the
// selection while playing.
func (s *Session) onPlayback(snap playback.Snapshot) {
	if snap.State == playback.StatePlaying && snap.ActiveClipID != nil {
		s.mu.Lock()
		s.selectedClip = *snap.ActiveClipID
		s.selectedAsset = uuid.Nil
		s.mu.Unlock()
	}
	s.notify.Broadcast("playback:state", snap)
}

// ──────────────────── Timeline viewport ────────────────────

func (s *Session) Viewport() timeline.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

func (s *Session) SetZoomAt(zoom, cursorPx float64) timeline.Viewport {
	s.mu.Lock()
	s.viewport.SetZoomAt(zoom, cursorPx)
	v := s.viewport
	s.mu.Unlock()
	s.notify.Broadcast("timeline:update", v)
	return v
}

// ──────────────────── Assets ────────────────────

func (s *Session) Assets() []models.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Asset, len(s.assets))
	copy(out, s.assets)
	return out
}

func (s *Session) RefreshAssets(ctx context.Context) {
	assets, err := s.client.Assets(ctx)
	if err != nil {
		s.reportTransportError(err)
		return
	}
	s.mu.Lock()
	s.assets = assets
	s.mu.Unlock()
	s.notify.Broadcast("assets:update", assets)
}

func (s *Session) RenameAsset(id uuid.UUID, name string) bool {
	s.mu.Lock()
	renamed := false
	for i := range s.assets {
		if s.assets[i].ID == id {
			s.assets[i].Name = name
			renamed = true
			break
		}
	}
	assets := make([]models.Asset, len(s.assets))
	copy(assets, s.assets)
	s.mu.Unlock()
	if renamed {
		s.notify.Broadcast("assets:update", assets)
	}
	return renamed
}

func (s *Session) RemoveAsset(id uuid.UUID) bool {
	s.mu.Lock()
	idx := -1
	for i := range s.assets {
		if s.assets[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.assets = append(s.assets[:idx], s.assets[idx+1:]...)
	if s.selectedAsset == id {
		s.selectedAsset = uuid.Nil
	}
	assets := make([]models.Asset, len(s.assets))
	copy(assets, s.assets)
	s.mu.Unlock()
	s.notify.Broadcast("assets:update", assets)
	return true
}

// UploadAsset pushes a locally staged file to the backend for ingest. With a
// sync queue attached the upload runs in the background and the asset shows up
// on the next refresh; without one it runs inline.
func (s *Session) UploadAsset(ctx context.Context, path, filename string, assetType models.AssetType) error {
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()

	if q != nil {
		s.enqueue(jobs.TaskAssetUpload, jobs.AssetUploadPayload{
			Path:      path,
			Filename:  filename,
			AssetType: assetType,
		}, "asset:upload:"+filename)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := s.client.UploadAsset(ctx, assetType, filename, f); err != nil {
		s.reportTransportError(err)
		return err
	}
	os.Remove(path)
	s.RefreshAssets(ctx)
	return nil
}

// resolveSource maps a clip source reference to a stream locator via the
// asset bin. Unknown sources are a recoverable condition for the engine.
func (s *Session) resolveSource(source string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.assets {
		if a.Path == source || a.Name == source {
			return s.client.StreamURL(a.StreamPath), nil
		}
	}
	return "", fmt.Errorf("no asset for source %q", source)
}
