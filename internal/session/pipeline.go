package session

import (
	"context"
	"log"
	"time"

	"github.com/mvickers/papercut/internal/backend"
	"github.com/mvickers/papercut/internal/models"
)

// PipelineState is the pipeline-facing slice of session state, broadcast to
// the UI and returned from the status endpoint.
type PipelineState struct {
	Phase      models.PipelinePhase   `json:"phase"`
	ThreadID   string                 `json:"thread_id,omitempty"`
	Activity   *models.AgentActivity  `json:"activity,omitempty"`
	Errors     []models.PipelineError `json:"errors,omitempty"`
	RenderPath string                 `json:"render_path,omitempty"`
}

func (s *Session) Pipeline() PipelineState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipelineStateLocked()
}

func (s *Session) pipelineStateLocked() PipelineState {
	state := PipelineState{
		Phase:      s.phase,
		ThreadID:   s.threadID,
		Activity:   s.activity,
		RenderPath: s.renderPath,
	}
	state.Errors = append(state.Errors, s.pipeErrors...)
	return state
}

// ──────────────────── Commands ────────────────────

// Run starts a new pipeline run. Fire-and-forget: the response only confirms
// the session started; progress arrives on the event stream.
func (s *Session) Run(ctx context.Context, prompt string) error {
	threadID, err := s.client.RunPipeline(ctx, prompt, s.cfg.ProjectName)
	if err != nil {
		s.reportTransportError(err)
		return err
	}

	s.mu.Lock()
	s.threadID = threadID
	s.pipeErrors = nil
	repo, projectID := s.repo, s.projectID
	s.mu.Unlock()

	if repo != nil {
		if err := repo.SetThreadID(projectID, threadID); err != nil {
			log.Printf("[session] persist thread id: %v", err)
		}
	}
	s.broadcastPipeline()
	return nil
}

// Approve submits the current (possibly user-modified) paper edit.
func (s *Session) Approve(ctx context.Context) error {
	seq := s.Sequence()
	if err := s.client.Approve(ctx, &seq); err != nil {
		s.reportTransportError(err)
		return err
	}
	return nil
}

// Reject sends the paper edit back with a revision reason. The resulting
// recoverable review-stage error on the stream is a revision signal, not a
// failure.
func (s *Session) Reject(ctx context.Context, reason string) error {
	if err := s.client.Reject(ctx, reason); err != nil {
		s.reportTransportError(err)
		return err
	}
	return nil
}

// RequestEdit submits a free-text instruction against a completed sequence.
func (s *Session) RequestEdit(ctx context.Context, instruction string) error {
	if err := s.client.RequestEdit(ctx, instruction); err != nil {
		s.reportTransportError(err)
		return err
	}
	return nil
}

// ──────────────────── Event reconciliation ────────────────────

// HandleEvent reconciles one event-stream message into session state.
// Messages arrive in order; phase-setting is idempotent, so a re-delivered
// phase does not produce duplicate activity messages.
func (s *Session) HandleEvent(ev backend.Event) {
	switch ev.Type {
	case backend.EventConnected:
		s.setPhase(ev.Phase)

	case backend.EventPipelineStarted:
		s.mu.Lock()
		s.threadID = ev.ThreadID
		s.mu.Unlock()
		s.broadcastPipeline()

	case backend.EventPhaseUpdate:
		s.handlePhaseUpdate(ev)

	case backend.EventAwaitingApproval:
		s.setPhase(models.PhaseAwaitingApproval)
		if ev.PaperEdit != nil {
			s.mu.Lock()
			s.model.Replace(*ev.PaperEdit)
			seq := s.model.Current()
			s.mu.Unlock()
			s.applySequence(seq)
		}

	case backend.EventPipelineComplete:
		phase := ev.Phase
		if phase == "" {
			phase = models.PhaseComplete
		}
		s.setPhase(phase)
		s.mu.Lock()
		s.renderPath = ev.RenderPath
		s.mu.Unlock()
		s.finalizeRun()
	}
}

// handlePhaseUpdate folds a phase transition plus its errors into state. A
// review-stage revision request carries only recoverable errors and routes
// back into scripting; it must never surface as a pipeline failure.
func (s *Session) handlePhaseUpdate(ev backend.Event) {
	recoverableOnly := len(ev.Errors) > 0
	for _, e := range ev.Errors {
		if !e.Recoverable {
			recoverableOnly = false
			break
		}
	}

	s.mu.Lock()
	s.pipeErrors = append(s.pipeErrors, ev.Errors...)
	s.mu.Unlock()

	phase := ev.Phase
	if phase == models.PhaseError && recoverableOnly {
		// Revision signal: the run loops back to the scripting stage.
		log.Printf("[session] revision requested by %s, resuming scripting", ev.Node)
		phase = models.PhaseScripting
	}
	s.setPhase(phase)

	for _, e := range ev.Errors {
		kind := "pipeline:error"
		if e.Recoverable {
			kind = "pipeline:revision"
		}
		s.notify.Broadcast(kind, e)
	}
}

// setPhase applies a phase transition idempotently and maintains the
// agent-activity indicator from the classification table.
func (s *Session) setPhase(phase models.PipelinePhase) {
	if phase == "" {
		return
	}
	s.mu.Lock()
	if s.phase == phase {
		s.lastEventAt = time.Now()
		s.mu.Unlock()
		return
	}
	s.phase = phase
	s.lastEventAt = time.Now()
	if backend.ClearsActivity(phase) {
		s.activity = nil
	} else {
		s.activity = backend.ActivityFor(phase)
		if s.activity != nil {
			s.activity.StartedAt = time.Now()
		}
	}
	s.mu.Unlock()
	s.broadcastPipeline()
}

// finalizeRun re-fetches the authoritative sequence, asset list and outputs
// after terminal completion, and selects the most-processed render.
func (s *Session) finalizeRun() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.RefreshAssets(ctx)

	if seq, err := s.client.PaperEdit(ctx); err == nil && seq != nil {
		s.mu.Lock()
		s.model.Replace(*seq)
		snapshot := s.model.Current()
		s.mu.Unlock()
		s.applySequence(snapshot)
	} else if err != nil {
		s.reportTransportError(err)
	}

	outputs, err := s.client.Outputs(ctx)
	if err != nil {
		s.reportTransportError(err)
	} else if best := backend.BestOutput(outputs); best != nil {
		s.mu.Lock()
		s.renderPath = best.Path
		s.mu.Unlock()
	}

	s.mu.Lock()
	renderPath := s.renderPath
	s.mu.Unlock()
	if renderPath != "" {
		s.notify.Broadcast("render:ready", map[string]string{
			"path": renderPath,
			"url":  s.client.StreamURL(renderPath),
		})
	}
	s.broadcastPipeline()
}

func (s *Session) broadcastPipeline() {
	s.mu.Lock()
	state := s.pipelineStateLocked()
	s.mu.Unlock()
	s.notify.Broadcast("pipeline:update", state)
}

// reportTransportError surfaces a normalized backend failure as a
// dismissible notification. Never fatal to the editing session.
func (s *Session) reportTransportError(err error) {
	log.Printf("[session] backend: %v", err)
	if apiErr, ok := err.(*backend.APIError); ok {
		s.notify.Broadcast("error:transport", apiErr)
		return
	}
	s.notify.Broadcast("error:transport", map[string]string{"detail": err.Error()})
}

// ──────────────────── Background loops ────────────────────

// StartWatchdog clears a stuck agent-activity indicator when the stream goes
// silent past the configured timeout. UI-only recovery: the phase itself is
// left alone.
func (s *Session) StartWatchdog(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				stuck := s.activity != nil && time.Since(s.lastEventAt) > s.cfg.ActivityTimeout
				if stuck {
					log.Printf("[session] no pipeline events for %s, clearing activity indicator", s.cfg.ActivityTimeout)
					s.activity = nil
				}
				s.mu.Unlock()
				if stuck {
					s.broadcastPipeline()
				}
			}
		}
	}()
}

// StartAutosave persists the live sequence to the project store on a fixed
// interval. Best-effort: failures are logged.
func (s *Session) StartAutosave(ctx context.Context) {
	s.mu.Lock()
	repo, projectID := s.repo, s.projectID
	s.mu.Unlock()
	if repo == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(s.cfg.AutosaveInterval)
		defer ticker.Stop()
		var lastSaved int64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				seq := s.Sequence()
				if len(seq.Clips) == 0 {
					continue
				}
				// Cheap dirty check: duration changes on any trim/add/delete;
				// a pure reorder still saves on the next real edit.
				if total := seq.TotalDurationMs(); total == lastSaved {
					continue
				} else {
					lastSaved = total
				}
				if err := repo.SaveSnapshot(projectID, seq); err != nil {
					log.Printf("[session] autosave failed: %v", err)
				}
			}
		}
	}()
}
