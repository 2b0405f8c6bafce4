package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/mvickers/papercut/internal/models"
	"github.com/mvickers/papercut/internal/sequence"
)

func (s *Server) handleGetSequence(w http.ResponseWriter, r *http.Request) {
	seq := s.session.Sequence()
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{
		"sequence":          seq,
		"total_duration_ms": seq.TotalDurationMs(),
	}})
}

func (s *Server) handlePutSequence(w http.ResponseWriter, r *http.Request) {
	var seq models.Sequence
	if err := json.NewDecoder(r.Body).Decode(&seq); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid sequence body")
		return
	}
	for _, c := range seq.Clips {
		if c.OutMs <= c.InMs {
			s.respondError(w, http.StatusBadRequest, "clip "+c.ID.String()+" has out_ms <= in_ms")
			return
		}
	}
	s.session.ReplaceSequence(seq)
	s.respondJSON(w, http.StatusOK, Response{Success: true})
}

func (s *Server) handleGetSegments(w http.ResponseWriter, r *http.Request) {
	segs := s.session.Segments()
	type segmentView struct {
		Anchor     *models.Clip  `json:"anchor,omitempty"`
		Attached   []models.Clip `json:"attached"`
		DurationMs int64         `json:"duration_ms"`
	}
	views := make([]segmentView, 0, len(segs))
	for _, seg := range segs {
		views = append(views, segmentView{
			Anchor:     seg.Anchor,
			Attached:   seg.Attached,
			DurationMs: seg.DurationMs(),
		})
	}
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: views})
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClipIDs []uuid.UUID `json:"clip_ids"`
	}
	if json.NewDecoder(r.Body).Decode(&req) != nil || req.ClipIDs == nil {
		s.respondError(w, http.StatusBadRequest, "clip_ids required")
		return
	}
	s.session.Reorder(req.ClipIDs)
	s.respondJSON(w, http.StatusOK, Response{Success: true})
}

func (s *Server) handleAppendFromAsset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssetID uuid.UUID `json:"asset_id"`
	}
	if json.NewDecoder(r.Body).Decode(&req) != nil || req.AssetID == uuid.Nil {
		s.respondError(w, http.StatusBadRequest, "asset_id required")
		return
	}
	clipID := s.session.AppendFromAsset(req.AssetID)
	if clipID == uuid.Nil {
		s.respondError(w, http.StatusNotFound, "asset not found")
		return
	}
	s.respondJSON(w, http.StatusCreated, Response{Success: true, Data: map[string]interface{}{
		"clip_id": clipID,
	}})
}

func (s *Server) handlePatchClip(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid clip id")
		return
	}
	var req struct {
		InMs        *int64             `json:"in_ms"`
		OutMs       *int64             `json:"out_ms"`
		Type        *models.ClipType   `json:"type"`
		Description *string            `json:"description"`
		Transition  *models.Transition `json:"transition"`
		OverlayText *string            `json:"overlay_text"`
		SearchQuery *string            `json:"search_query"`
	}
	if json.NewDecoder(r.Body).Decode(&req) != nil {
		s.respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	patch := sequence.ClipPatch{
		InMs:        req.InMs,
		OutMs:       req.OutMs,
		Type:        req.Type,
		Description: req.Description,
		Transition:  req.Transition,
		OverlayText: req.OverlayText,
		SearchQuery: req.SearchQuery,
	}
	if err := s.session.UpdateClip(id, patch); err != nil {
		s.respondError(w, http.StatusNotFound, "clip not found")
		return
	}
	s.respondJSON(w, http.StatusOK, Response{Success: true})
}

func (s *Server) handleDeleteClip(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid clip id")
		return
	}
	if !s.session.DeleteClip(id) {
		s.respondError(w, http.StatusNotFound, "clip not found")
		return
	}
	s.respondJSON(w, http.StatusOK, Response{Success: true})
}

func (s *Server) handleSplitClip(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid clip id")
		return
	}
	var req struct {
		AtSourceMs int64 `json:"at_source_ms"`
	}
	if json.NewDecoder(r.Body).Decode(&req) != nil {
		s.respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	newID, err := s.session.SplitClip(id, req.AtSourceMs)
	if err != nil {
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, Response{Success: true, Data: map[string]interface{}{
		"clip_id": newID,
	}})
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, Response{Success: s.session.Undo()})
}

func (s *Server) handleRedo(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, Response{Success: s.session.Redo()})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClipID  *uuid.UUID `json:"clip_id"`
		AssetID *uuid.UUID `json:"asset_id"`
	}
	if json.NewDecoder(r.Body).Decode(&req) != nil {
		s.respondError(w, http.StatusBadRequest, "invalid body")
		return
	}
	switch {
	case req.ClipID != nil:
		s.session.SelectClip(*req.ClipID)
	case req.AssetID != nil:
		s.session.SelectAsset(*req.AssetID)
	default:
		s.respondError(w, http.StatusBadRequest, "clip_id or asset_id required")
		return
	}
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: s.session.Selection()})
}

// handleDeleteSelection backs the keyboard delete/backspace: a selected clip
// wins over a selected asset.
func (s *Server) handleDeleteSelection(w http.ResponseWriter, r *http.Request) {
	s.session.DeleteSelection()
	s.respondJSON(w, http.StatusOK, Response{Success: true})
}
