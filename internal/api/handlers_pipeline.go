package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/mvickers/papercut/internal/sequence"
)

func (s *Server) handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: s.session.Pipeline()})
}

func (s *Server) handlePipelineRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if json.NewDecoder(r.Body).Decode(&req) != nil || req.Prompt == "" {
		s.respondError(w, http.StatusBadRequest, "prompt required")
		return
	}
	if err := s.session.Run(r.Context(), req.Prompt); err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, Response{Success: true, Data: s.session.Pipeline()})
}

func (s *Server) handlePipelineApprove(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Approve(r.Context()); err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, Response{Success: true})
}

func (s *Server) handlePipelineReject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if json.NewDecoder(r.Body).Decode(&req) != nil || req.Reason == "" {
		s.respondError(w, http.StatusBadRequest, "reason required")
		return
	}
	if err := s.session.Reject(r.Context(), req.Reason); err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, Response{Success: true})
}

func (s *Server) handlePipelineEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Instruction string `json:"instruction"`
	}
	if json.NewDecoder(r.Body).Decode(&req) != nil || req.Instruction == "" {
		s.respondError(w, http.StatusBadRequest, "instruction required")
		return
	}
	if err := s.session.RequestEdit(r.Context(), req.Instruction); err != nil {
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, Response{Success: true})
}

// handleRenderLocate maps a position in the rendered output back onto the
// sequence, so clicking in the render preview can highlight the source clip.
// The mapping is proportional when the durations differ.
func (s *Server) handleRenderLocate(w http.ResponseWriter, r *http.Request) {
	ms, err := strconv.ParseInt(r.URL.Query().Get("ms"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "ms required")
		return
	}
	totalMs, err := strconv.ParseInt(r.URL.Query().Get("total_ms"), 10, 64)
	if err != nil || totalMs <= 0 {
		s.respondError(w, http.StatusBadRequest, "total_ms required")
		return
	}

	seq := s.session.Sequence()
	seqMs := sequence.RenderTimeToSequenceMs(ms, totalMs, seq.TotalDurationMs())
	idx, sourceMs := sequence.ClipAt(seq.Clips, seqMs)

	var clipID *uuid.UUID
	if idx >= 0 {
		clipID = &seq.Clips[idx].ID
	}
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{
		"sequence_ms": seqMs,
		"clip_id":     clipID,
		"source_ms":   sourceMs,
	}})
}
