package sequence

import (
	"errors"

	"github.com/google/uuid"
	"github.com/mvickers/papercut/internal/models"
)

// maxHistory bounds the undo and redo stacks; the oldest snapshot is dropped
// when a push would exceed it.
const maxHistory = 50

// minClipMs is the floor a trim is clamped to so out_ms > in_ms always holds.
const minClipMs = 10

var ErrClipNotFound = errors.New("clip not found")

// ClipPatch is a partial clip update; nil fields are left untouched.
type ClipPatch struct {
	InMs        *int64
	OutMs       *int64
	Type        *models.ClipType
	Description *string
	Transition  *models.Transition
	OverlayText *string
	SearchQuery *string
}

// Model is the single source of truth for the live paper edit. Every mutating
// operation pushes the pre-mutation snapshot onto the undo stack, clears the
// redo stack, and leaves unrelated clips untouched. Callers synchronize; the
// model itself is not goroutine-safe.
type Model struct {
	seq  models.Sequence
	undo []models.Sequence
	redo []models.Sequence
}

func New() *Model {
	return &Model{seq: models.Sequence{Title: "untitled"}}
}

// Current returns a snapshot of the live sequence. Mutating the returned
// value does not affect the model.
func (m *Model) Current() models.Sequence {
	return m.seq.Clone()
}

func (m *Model) TotalDurationMs() int64 {
	return m.seq.TotalDurationMs()
}

// Replace swaps in a whole new sequence (pipeline completion, approval edit).
func (m *Model) Replace(seq models.Sequence) {
	m.push()
	m.seq = seq.Clone()
}

// Reorder applies a full permutation of clip ids. Ids that do not name a
// current clip are silently dropped; clips missing from the permutation are
// dropped from the sequence. Callers must not rely on the filter for
// validation.
func (m *Model) Reorder(ids []uuid.UUID) {
	byID := make(map[uuid.UUID]models.Clip, len(m.seq.Clips))
	for _, c := range m.seq.Clips {
		byID[c.ID] = c
	}

	reordered := make([]models.Clip, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			reordered = append(reordered, c)
		}
	}

	m.push()
	m.seq.Clips = reordered
}

// UpdateClip applies a partial update. Trim bounds are clamped so the clip
// never collapses to zero or negative length.
func (m *Model) UpdateClip(id uuid.UUID, patch ClipPatch) error {
	idx := m.seq.ClipIndex(id)
	if idx < 0 {
		return ErrClipNotFound
	}

	c := m.seq.Clips[idx]
	if patch.InMs != nil {
		c.InMs = *patch.InMs
	}
	if patch.OutMs != nil {
		c.OutMs = *patch.OutMs
	}
	if c.InMs < 0 {
		c.InMs = 0
	}
	if c.OutMs <= c.InMs {
		// Clamp the edge that moved; when both moved, the out edge yields.
		if patch.OutMs != nil {
			c.OutMs = c.InMs + minClipMs
		} else {
			c.InMs = c.OutMs - minClipMs
			if c.InMs < 0 {
				c.InMs = 0
				c.OutMs = minClipMs
			}
		}
	}
	if patch.Type != nil {
		c.Type = *patch.Type
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.Transition != nil {
		c.Transition = patch.Transition
	}
	if patch.OverlayText != nil {
		c.OverlayText = patch.OverlayText
	}
	if patch.SearchQuery != nil {
		c.SearchQuery = patch.SearchQuery
	}

	m.push()
	clips := make([]models.Clip, len(m.seq.Clips))
	copy(clips, m.seq.Clips)
	clips[idx] = c
	m.seq.Clips = clips
	return nil
}

func (m *Model) DeleteClip(id uuid.UUID) bool {
	idx := m.seq.ClipIndex(id)
	if idx < 0 {
		return false
	}
	m.push()
	clips := make([]models.Clip, 0, len(m.seq.Clips)-1)
	clips = append(clips, m.seq.Clips[:idx]...)
	clips = append(clips, m.seq.Clips[idx+1:]...)
	m.seq.Clips = clips
	return true
}

// AppendFromAsset synthesizes a clip spanning the asset's full duration and
// appends it. Returns the new clip's id, or uuid.Nil when the asset carries
// no usable duration.
func (m *Model) AppendFromAsset(a models.Asset) uuid.UUID {
	if a.DurationMs <= 0 {
		return uuid.Nil
	}
	clip := models.Clip{
		ID:          uuid.New(),
		Source:      a.Path,
		InMs:        0,
		OutMs:       a.DurationMs,
		Type:        models.ClipTypeForAsset(a.Type),
		Description: a.Name,
		Transition:  &models.Transition{Kind: models.TransitionCut},
	}
	m.push()
	clips := make([]models.Clip, len(m.seq.Clips), len(m.seq.Clips)+1)
	copy(clips, m.seq.Clips)
	m.seq.Clips = append(clips, clip)
	return clip.ID
}

// SplitClip cuts the clip in two at atMs (sequence-relative offset into the
// clip window). The first half gets a hard cut; the original transition stays
// on the second half so the boundary to the next clip is unchanged.
func (m *Model) SplitClip(id uuid.UUID, atSourceMs int64) (uuid.UUID, error) {
	idx := m.seq.ClipIndex(id)
	if idx < 0 {
		return uuid.Nil, ErrClipNotFound
	}
	c := m.seq.Clips[idx]
	if atSourceMs <= c.InMs+minClipMs || atSourceMs >= c.OutMs-minClipMs {
		return uuid.Nil, errors.New("split point too close to clip edge")
	}

	first := c
	first.OutMs = atSourceMs
	first.Transition = &models.Transition{Kind: models.TransitionCut}

	second := c
	second.ID = uuid.New()
	second.InMs = atSourceMs

	m.push()
	clips := make([]models.Clip, 0, len(m.seq.Clips)+1)
	clips = append(clips, m.seq.Clips[:idx]...)
	clips = append(clips, first, second)
	clips = append(clips, m.seq.Clips[idx+1:]...)
	m.seq.Clips = clips
	return second.ID, nil
}

// Undo restores the most recent snapshot, moving the live sequence onto the
// redo stack. No-op on an empty stack.
func (m *Model) Undo() bool {
	if len(m.undo) == 0 {
		return false
	}
	prev := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = capPush(m.redo, m.seq)
	m.seq = prev
	return true
}

func (m *Model) Redo() bool {
	if len(m.redo) == 0 {
		return false
	}
	next := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = capPush(m.undo, m.seq)
	m.seq = next
	return true
}

func (m *Model) CanUndo() bool { return len(m.undo) > 0 }
func (m *Model) CanRedo() bool { return len(m.redo) > 0 }

// push records the pre-mutation snapshot and invalidates redo.
func (m *Model) push() {
	m.undo = capPush(m.undo, m.seq.Clone())
	m.redo = nil
}

func capPush(stack []models.Sequence, seq models.Sequence) []models.Sequence {
	if len(stack) >= maxHistory {
		stack = stack[1:]
	}
	return append(stack, seq)
}

// CumulativeStartMs returns the sequence time at which clip i begins.
func CumulativeStartMs(clips []models.Clip, i int) int64 {
	var total int64
	for j := 0; j < i && j < len(clips); j++ {
		total += clips[j].DurationMs()
	}
	return total
}

// RenderTimeToSequenceMs maps a position in the rendered output back onto
// sequence time. When the rendered duration differs from the edited sequence's
// the mapping is proportional, which is an approximation: a render carrying
// padding the sequence does not have will land slightly off.
func RenderTimeToSequenceMs(renderMs, renderTotalMs, seqTotalMs int64) int64 {
	if renderTotalMs <= 0 || seqTotalMs <= 0 {
		return 0
	}
	if renderMs < 0 {
		renderMs = 0
	}
	if renderMs > renderTotalMs {
		renderMs = renderTotalMs
	}
	return int64(float64(renderMs) / float64(renderTotalMs) * float64(seqTotalMs))
}

// ClipAt locates the clip containing the given sequence time and the matching
// offset into the clip's source. Returns index -1 when the time falls past
// the last clip.
func ClipAt(clips []models.Clip, seqMs int64) (idx int, sourceMs int64) {
	var cursor int64
	for i, c := range clips {
		d := c.DurationMs()
		if seqMs < cursor+d {
			return i, c.InMs + (seqMs - cursor)
		}
		cursor += d
	}
	return -1, 0
}
