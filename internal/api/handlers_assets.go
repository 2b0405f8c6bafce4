package api

import (
	"encoding/json"
	"io"
	"net/http"
	"os"

	"github.com/google/uuid"

	"github.com/mvickers/papercut/internal/models"
)

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: s.session.Assets()})
}

func (s *Server) handleRefreshAssets(w http.ResponseWriter, r *http.Request) {
	s.session.RefreshAssets(r.Context())
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: s.session.Assets()})
}

// handleUploadAsset stages the multipart body to a temp file and hands it to
// the session, which uploads inline or via the sync queue.
func (s *Server) handleUploadAsset(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	assetType := models.AssetType(r.URL.Query().Get("asset_type"))
	if assetType == "" {
		assetType = models.AssetARoll
	}

	tmp, err := os.CreateTemp("", "papercut-upload-*")
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "staging upload failed")
		return
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		s.respondError(w, http.StatusInternalServerError, "staging upload failed")
		return
	}
	tmp.Close()

	if err := s.session.UploadAsset(r.Context(), tmp.Name(), header.Filename, assetType); err != nil {
		os.Remove(tmp.Name())
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, Response{Success: true})
}

func (s *Server) handleRenameAsset(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if json.NewDecoder(r.Body).Decode(&req) != nil || req.Name == "" {
		s.respondError(w, http.StatusBadRequest, "name required")
		return
	}
	if !s.session.RenameAsset(id, req.Name) {
		s.respondError(w, http.StatusNotFound, "asset not found")
		return
	}
	s.respondJSON(w, http.StatusOK, Response{Success: true})
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	if !s.session.RemoveAsset(id) {
		s.respondError(w, http.StatusNotFound, "asset not found")
		return
	}
	s.respondJSON(w, http.StatusOK, Response{Success: true})
}
