package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mvickers/papercut/internal/config"
	"github.com/mvickers/papercut/internal/session"
	"github.com/mvickers/papercut/internal/version"
)

// Server is the daemon's HTTP surface for the browser UI. All editor state
// lives in the session; handlers translate requests into session operations
// and let the WS hub fan results back out.
type Server struct {
	config  *config.Config
	session *session.Session
	wsHub   *WSHub
	slots   SlotReporter
	router  *http.ServeMux
}

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func NewServer(cfg *config.Config, sess *session.Session, hub *WSHub, slots SlotReporter) *Server {
	s := &Server{
		config:  cfg,
		session: sess,
		wsHub:   hub,
		slots:   slots,
		router:  http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /api/v1/ws", s.handleWebSocket)

	// Sequence
	s.router.HandleFunc("GET /api/v1/sequence", s.requireAuth(s.handleGetSequence))
	s.router.HandleFunc("PUT /api/v1/sequence", s.requireAuth(s.handlePutSequence))
	s.router.HandleFunc("GET /api/v1/sequence/segments", s.requireAuth(s.handleGetSegments))
	s.router.HandleFunc("POST /api/v1/sequence/reorder", s.requireAuth(s.handleReorder))
	s.router.HandleFunc("POST /api/v1/sequence/clips/from-asset", s.requireAuth(s.handleAppendFromAsset))
	s.router.HandleFunc("PATCH /api/v1/sequence/clips/{id}", s.requireAuth(s.handlePatchClip))
	s.router.HandleFunc("DELETE /api/v1/sequence/clips/{id}", s.requireAuth(s.handleDeleteClip))
	s.router.HandleFunc("POST /api/v1/sequence/clips/{id}/split", s.requireAuth(s.handleSplitClip))
	s.router.HandleFunc("POST /api/v1/sequence/undo", s.requireAuth(s.handleUndo))
	s.router.HandleFunc("POST /api/v1/sequence/redo", s.requireAuth(s.handleRedo))

	// Selection
	s.router.HandleFunc("POST /api/v1/selection", s.requireAuth(s.handleSelect))
	s.router.HandleFunc("DELETE /api/v1/selection", s.requireAuth(s.handleDeleteSelection))

	// Playback
	s.router.HandleFunc("GET /api/v1/playback", s.requireAuth(s.handlePlaybackState))
	s.router.HandleFunc("POST /api/v1/playback/play", s.requireAuth(s.handlePlay))
	s.router.HandleFunc("POST /api/v1/playback/pause", s.requireAuth(s.handlePause))
	s.router.HandleFunc("POST /api/v1/playback/stop", s.requireAuth(s.handleStop))
	s.router.HandleFunc("POST /api/v1/playback/seek", s.requireAuth(s.handleSeek))
	s.router.HandleFunc("POST /api/v1/playback/volume", s.requireAuth(s.handleVolume))
	s.router.HandleFunc("POST /api/v1/playback/rate", s.requireAuth(s.handleRate))

	// Timeline viewport
	s.router.HandleFunc("GET /api/v1/timeline", s.requireAuth(s.handleGetTimeline))
	s.router.HandleFunc("POST /api/v1/timeline/zoom", s.requireAuth(s.handleZoom))

	// Assets
	s.router.HandleFunc("GET /api/v1/assets", s.requireAuth(s.handleListAssets))
	s.router.HandleFunc("POST /api/v1/assets/refresh", s.requireAuth(s.handleRefreshAssets))
	s.router.HandleFunc("POST /api/v1/assets/upload", s.requireAuth(s.handleUploadAsset))
	s.router.HandleFunc("PATCH /api/v1/assets/{id}", s.requireAuth(s.handleRenameAsset))
	s.router.HandleFunc("DELETE /api/v1/assets/{id}", s.requireAuth(s.handleDeleteAsset))

	// Pipeline
	s.router.HandleFunc("GET /api/v1/pipeline/status", s.requireAuth(s.handlePipelineStatus))
	s.router.HandleFunc("POST /api/v1/pipeline/run", s.requireAuth(s.handlePipelineRun))
	s.router.HandleFunc("POST /api/v1/pipeline/approve", s.requireAuth(s.handlePipelineApprove))
	s.router.HandleFunc("POST /api/v1/pipeline/reject", s.requireAuth(s.handlePipelineReject))
	s.router.HandleFunc("POST /api/v1/pipeline/edit", s.requireAuth(s.handlePipelineEdit))
	s.router.HandleFunc("GET /api/v1/render/locate", s.requireAuth(s.handleRenderLocate))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{
		"version": version.Load().Version,
		"clients": s.wsHub.ClientCount(),
	}})
}

// requireAuth checks the configured bearer token. An empty configured token
// leaves the local daemon open, which is the default for single-machine use.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.AuthToken == "" {
			next(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token != s.config.AuthToken {
			s.respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, Response{Success: false, Error: message})
}
