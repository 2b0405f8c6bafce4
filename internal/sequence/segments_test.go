package sequence

import (
	"testing"

	"github.com/google/uuid"

	"github.com/mvickers/papercut/internal/models"
)

func TestBuildSegments(t *testing.T) {
	a1 := testClip("a1.mp4", 0, 5000, models.ClipARoll)
	b1 := testClip("b1.mp4", 0, 2000, models.ClipBRoll)
	s1 := testClip("s1.mp4", 0, 3000, models.ClipSynth)
	a2 := testClip("a2.mp4", 0, 4000, models.ClipARoll)
	b2 := testClip("b2.mp4", 0, 1000, models.ClipBRoll)

	segs := BuildSegments([]models.Clip{a1, b1, s1, a2, b2})
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[0].Anchor == nil || segs[0].Anchor.ID != a1.ID {
		t.Error("segment 0 anchor mismatch")
	}
	if len(segs[0].Attached) != 2 || segs[0].Attached[0].ID != b1.ID || segs[0].Attached[1].ID != s1.ID {
		t.Error("segment 0 attached mismatch")
	}
	if segs[1].Anchor == nil || segs[1].Anchor.ID != a2.ID || len(segs[1].Attached) != 1 {
		t.Error("segment 1 mismatch")
	}
	if got := segs[0].DurationMs(); got != 10000 {
		t.Errorf("segment 0 duration = %d, want 10000", got)
	}
}

func TestBuildSegmentsPrelude(t *testing.T) {
	b1 := testClip("b1.mp4", 0, 2000, models.ClipBRoll)
	b2 := testClip("b2.mp4", 0, 1000, models.ClipSynth)
	a1 := testClip("a1.mp4", 0, 5000, models.ClipARoll)

	segs := BuildSegments([]models.Clip{b1, b2, a1})
	if len(segs) != 2 {
		t.Fatalf("got %d segments, want 2", len(segs))
	}
	if segs[0].Anchor != nil {
		t.Error("leading b-roll must form an anchorless prelude")
	}
	if len(segs[0].Attached) != 2 {
		t.Errorf("prelude holds %d clips, want 2", len(segs[0].Attached))
	}
	if segs[1].Anchor == nil || segs[1].Anchor.ID != a1.ID {
		t.Error("segment 1 anchor mismatch")
	}
}

func TestFlattenInvertsBuild(t *testing.T) {
	tests := []struct {
		name  string
		clips []models.Clip
	}{
		{"empty", nil},
		{"only a-roll", []models.Clip{
			testClip("a1.mp4", 0, 1000, models.ClipARoll),
			testClip("a2.mp4", 0, 2000, models.ClipARoll),
		}},
		{"only b-roll", []models.Clip{
			testClip("b1.mp4", 0, 1000, models.ClipBRoll),
			testClip("b2.mp4", 0, 2000, models.ClipSynth),
		}},
		{"mixed with prelude", []models.Clip{
			testClip("b0.mp4", 0, 500, models.ClipBRoll),
			testClip("a1.mp4", 0, 1000, models.ClipARoll),
			testClip("b1.mp4", 0, 2000, models.ClipBRoll),
			testClip("a2.mp4", 0, 3000, models.ClipARoll),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FlattenSegments(BuildSegments(tt.clips))
			if len(got) != len(tt.clips) {
				t.Fatalf("got %d clips, want %d", len(got), len(tt.clips))
			}
			for i := range got {
				if got[i].ID != tt.clips[i].ID {
					t.Errorf("clip %d: got %s, want %s", i, got[i].ID, tt.clips[i].ID)
				}
			}
		})
	}
}

func TestSegmentIndexForClip(t *testing.T) {
	a1 := testClip("a1.mp4", 0, 1000, models.ClipARoll)
	b1 := testClip("b1.mp4", 0, 2000, models.ClipBRoll)
	a2 := testClip("a2.mp4", 0, 3000, models.ClipARoll)
	segs := BuildSegments([]models.Clip{a1, b1, a2})

	if got := SegmentIndexForClip(segs, a1.ID); got != 0 {
		t.Errorf("anchor lookup = %d, want 0", got)
	}
	if got := SegmentIndexForClip(segs, b1.ID); got != 0 {
		t.Errorf("attached lookup = %d, want 0", got)
	}
	if got := SegmentIndexForClip(segs, a2.ID); got != 1 {
		t.Errorf("second anchor lookup = %d, want 1", got)
	}
	if got := SegmentIndexForClip(segs, uuid.New()); got != -1 {
		t.Errorf("unknown clip = %d, want -1", got)
	}
}

func TestMoveSegmentCarriesDependents(t *testing.T) {
	a1 := testClip("a1.mp4", 0, 1000, models.ClipARoll)
	b1 := testClip("b1.mp4", 0, 2000, models.ClipBRoll)
	a2 := testClip("a2.mp4", 0, 3000, models.ClipARoll)
	b2 := testClip("b2.mp4", 0, 4000, models.ClipBRoll)

	segs := BuildSegments([]models.Clip{a1, b1, a2, b2})
	got := MoveSegment(segs, 1, 0)

	want := []uuid.UUID{a2.ID, b2.ID, a1.ID, b1.ID}
	if len(got) != len(want) {
		t.Fatalf("got %d clips, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("clip %d: got %s, want %s", i, got[i].ID, want[i])
		}
	}
}

func TestMoveSegmentOutOfRange(t *testing.T) {
	a1 := testClip("a1.mp4", 0, 1000, models.ClipARoll)
	segs := BuildSegments([]models.Clip{a1})

	got := MoveSegment(segs, 0, 5)
	if len(got) != 1 || got[0].ID != a1.ID {
		t.Error("out-of-range move must return the order unchanged")
	}
}
