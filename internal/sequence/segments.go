package sequence

import (
	"github.com/google/uuid"
	"github.com/mvickers/papercut/internal/models"
)

// Segment is a derived grouping: one a-roll anchor plus the non-a-roll clips
// that follow it before the next anchor. A leading run of non-a-roll clips
// forms a single prelude segment with a nil anchor. Segments are a view over
// the clip list, never a source of truth.
type Segment struct {
	Anchor   *models.Clip
	Attached []models.Clip
}

func (s Segment) DurationMs() int64 {
	var total int64
	if s.Anchor != nil {
		total += s.Anchor.DurationMs()
	}
	for _, c := range s.Attached {
		total += c.DurationMs()
	}
	return total
}

// BuildSegments folds the clip list into segments in a single pass. Every
// a-roll clip starts a new segment; every other clip attaches to the most
// recently started one, or to a lazily created prelude when no anchor has
// been seen yet.
func BuildSegments(clips []models.Clip) []Segment {
	var segs []Segment
	for _, c := range clips {
		if c.Type == models.ClipARoll {
			clip := c
			segs = append(segs, Segment{Anchor: &clip})
			continue
		}
		if len(segs) == 0 {
			segs = append(segs, Segment{})
		}
		last := &segs[len(segs)-1]
		last.Attached = append(last.Attached, c)
	}
	return segs
}

// FlattenSegments is the exact left inverse of BuildSegments: for any clip
// list L, FlattenSegments(BuildSegments(L)) reproduces L.
func FlattenSegments(segs []Segment) []models.Clip {
	var clips []models.Clip
	for _, s := range segs {
		if s.Anchor != nil {
			clips = append(clips, *s.Anchor)
		}
		clips = append(clips, s.Attached...)
	}
	return clips
}

// SegmentIndexForClip returns the index of the segment containing the clip,
// or -1. Linear over segments and their clips, which is fine at editorial
// sequence sizes.
func SegmentIndexForClip(segs []Segment, id uuid.UUID) int {
	for i, s := range segs {
		if s.Anchor != nil && s.Anchor.ID == id {
			return i
		}
		for _, c := range s.Attached {
			if c.ID == id {
				return i
			}
		}
	}
	return -1
}

// MoveSegment relocates the segment at from (anchor plus dependents, as one
// unit) to position to, returning the new flat clip order.
func MoveSegment(segs []Segment, from, to int) []models.Clip {
	if from < 0 || from >= len(segs) || to < 0 || to >= len(segs) || from == to {
		return FlattenSegments(segs)
	}
	reordered := make([]Segment, 0, len(segs))
	reordered = append(reordered, segs[:from]...)
	reordered = append(reordered, segs[from+1:]...)
	moved := segs[from]
	reordered = append(reordered[:to], append([]Segment{moved}, reordered[to:]...)...)
	return FlattenSegments(reordered)
}
