package models

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Enums ────────────────────

type AssetType string

const (
	AssetARoll      AssetType = "a-roll"
	AssetBRoll      AssetType = "b-roll"
	AssetBRollSynth AssetType = "b-roll-synth"
)

type ClipType string

const (
	ClipARoll ClipType = "a-roll"
	ClipBRoll ClipType = "b-roll"
	ClipSynth ClipType = "synth"
)

// ClipTypeForAsset maps an asset classification to the clip classification a
// new timeline clip gets when the asset is dropped on the sequence.
func ClipTypeForAsset(t AssetType) ClipType {
	switch t {
	case AssetBRollSynth:
		return ClipSynth
	case AssetBRoll:
		return ClipBRoll
	default:
		return ClipARoll
	}
}

type TransitionKind string

const (
	TransitionCut       TransitionKind = "cut"
	TransitionCrossfade TransitionKind = "crossfade"
)

// DefaultTransitionMs is used when a non-cut transition carries no duration.
const DefaultTransitionMs = 500

// ──────────────────── Asset ────────────────────

type Asset struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Type       AssetType `json:"type"`
	DurationMs int64     `json:"duration_ms"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	FrameRate  float64   `json:"frame_rate"`
	HasAudio   bool      `json:"has_audio"`
	Codec      string    `json:"codec,omitempty"`
	Thumbnail  *string   `json:"thumbnail,omitempty"`
	StreamPath string    `json:"stream_path"`
	CreatedAt  time.Time `json:"created_at"`
}

// ──────────────────── Clip ────────────────────

type Transition struct {
	Kind       TransitionKind `json:"kind"`
	DurationMs int64          `json:"duration_ms,omitempty"`
}

// EffectiveMs returns the transition window length, falling back to the
// default when the backend omitted a duration.
func (t Transition) EffectiveMs() int64 {
	if t.DurationMs > 0 {
		return t.DurationMs
	}
	return DefaultTransitionMs
}

// Clip references its source asset by path, not by id: the asset is resolved
// to a stream locator at playback time so a sequence survives asset re-ingest.
type Clip struct {
	ID          uuid.UUID   `json:"id"`
	Source      string      `json:"source"`
	InMs        int64       `json:"in_ms"`
	OutMs       int64       `json:"out_ms"`
	Type        ClipType    `json:"type"`
	Description string      `json:"description,omitempty"`
	Transition  *Transition `json:"transition,omitempty"`
	OverlayText *string     `json:"overlay_text,omitempty"`
	SearchQuery *string     `json:"search_query,omitempty"`
}

func (c Clip) DurationMs() int64 {
	return c.OutMs - c.InMs
}

// ──────────────────── Sequence (paper edit) ────────────────────

type Sequence struct {
	Title             string  `json:"title"`
	Clips             []Clip  `json:"clips"`
	MusicHint         *string `json:"music_hint,omitempty"`
	TrailingSilenceMs int64   `json:"trailing_silence_ms,omitempty"`
}

// TotalDurationMs is always the live sum over the clip list; a stored total is
// never trusted. TrailingSilenceMs is backend-supplied extra tail beyond the
// last clip and is the one sanctioned addition to the sum.
func (s Sequence) TotalDurationMs() int64 {
	var total int64
	for _, c := range s.Clips {
		total += c.DurationMs()
	}
	return total + s.TrailingSilenceMs
}

// Clone deep-copies the sequence so history snapshots never alias live clips.
func (s Sequence) Clone() Sequence {
	out := s
	out.Clips = make([]Clip, len(s.Clips))
	copy(out.Clips, s.Clips)
	return out
}

// ClipIndex returns the position of the clip with the given id, or -1.
func (s Sequence) ClipIndex(id uuid.UUID) int {
	for i, c := range s.Clips {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// ──────────────────── Pipeline ────────────────────

type PipelinePhase string

const (
	PhaseIdle             PipelinePhase = "idle"
	PhaseIngesting        PipelinePhase = "ingesting"
	PhaseIndexed          PipelinePhase = "indexed"
	PhaseScripting        PipelinePhase = "scripting"
	PhaseScripted         PipelinePhase = "scripted"
	PhaseAwaitingApproval PipelinePhase = "awaiting_approval"
	PhaseApproved         PipelinePhase = "approved"
	PhaseSynthesizing     PipelinePhase = "synthesizing"
	PhaseSynthesized      PipelinePhase = "synthesized"
	PhaseRendering        PipelinePhase = "rendering"
	PhaseRendered         PipelinePhase = "rendered"
	PhaseMastering        PipelinePhase = "mastering"
	PhaseMastered         PipelinePhase = "mastered"
	PhaseExporting        PipelinePhase = "exporting"
	PhaseComplete         PipelinePhase = "complete"
	PhaseError            PipelinePhase = "error"
)

type PipelineError struct {
	Agent       string                 `json:"agent"`
	Message     string                 `json:"message"`
	Phase       PipelinePhase          `json:"phase"`
	Recoverable bool                   `json:"recoverable"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

type AgentActivity struct {
	Agent       string    `json:"agent"`
	Description string    `json:"description"`
	StartedAt   time.Time `json:"started_at"`
}

// ──────────────────── Outputs ────────────────────

type OutputType string

const (
	OutputMastered  OutputType = "mastered"
	OutputCaptioned OutputType = "captioned"
	OutputRender    OutputType = "render"
)

type OutputFile struct {
	Name      string     `json:"name"`
	Path      string     `json:"path"`
	Type      OutputType `json:"type"`
	SizeBytes int64      `json:"size_bytes"`
}
