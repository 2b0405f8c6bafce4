package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handlePlaybackState(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: s.session.Engine().Snapshot()})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	s.session.Engine().Play()
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: s.session.Engine().Snapshot()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.session.Engine().Pause()
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: s.session.Engine().Snapshot()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.session.Engine().Stop()
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: s.session.Engine().Snapshot()})
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ms int64 `json:"ms"`
	}
	if json.NewDecoder(r.Body).Decode(&req) != nil {
		s.respondError(w, http.StatusBadRequest, "ms required")
		return
	}
	s.session.Engine().Seek(req.Ms)
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: s.session.Engine().Snapshot()})
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume float64 `json:"volume"`
	}
	if json.NewDecoder(r.Body).Decode(&req) != nil {
		s.respondError(w, http.StatusBadRequest, "volume required")
		return
	}
	s.session.Engine().SetVolume(req.Volume)
	s.respondJSON(w, http.StatusOK, Response{Success: true})
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rate float64 `json:"rate"`
	}
	if json.NewDecoder(r.Body).Decode(&req) != nil {
		s.respondError(w, http.StatusBadRequest, "rate required")
		return
	}
	s.session.Engine().SetRate(req.Rate)
	s.respondJSON(w, http.StatusOK, Response{Success: true})
}

func (s *Server) handleGetTimeline(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: s.session.Viewport()})
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Zoom     float64 `json:"zoom"`
		CursorPx float64 `json:"cursor_px"`
	}
	if json.NewDecoder(r.Body).Decode(&req) != nil {
		s.respondError(w, http.StatusBadRequest, "zoom required")
		return
	}
	v := s.session.SetZoomAt(req.Zoom, req.CursorPx)
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: v})
}
