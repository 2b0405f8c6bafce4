package timeline

import (
	"math"
	"testing"

	"github.com/mvickers/papercut/internal/models"
)

func TestZoomAtCursorKeepsAnchor(t *testing.T) {
	v := NewViewport()
	v.ScrollPx = 300

	cursorPx := 420.0
	before := v.TimeAtPx(cursorPx)

	v.SetZoomAt(2.5, cursorPx)

	after := v.TimeAtPx(cursorPx)
	if math.Abs(float64(after-before)) > 1 {
		t.Errorf("time under cursor moved: before=%dms after=%dms", before, after)
	}
	if v.Zoom != 2.5 {
		t.Errorf("zoom = %v, want 2.5", v.Zoom)
	}
}

func TestZoomOutClampsScrollAtOrigin(t *testing.T) {
	v := NewViewport()
	v.ScrollPx = 10

	v.SetZoomAt(MinZoom, 0)
	if v.ScrollPx < 0 {
		t.Errorf("scroll went negative: %v", v.ScrollPx)
	}
}

func TestClampZoom(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.01, MinZoom},
		{MinZoom, MinZoom},
		{1.0, 1.0},
		{MaxZoom, MaxZoom},
		{42.0, MaxZoom},
	}
	for _, tt := range tests {
		if got := ClampZoom(tt.in); got != tt.want {
			t.Errorf("ClampZoom(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetZoomAtNoChange(t *testing.T) {
	v := NewViewport()
	v.ScrollPx = 120
	v.SetZoomAt(1.0, 300)
	if v.ScrollPx != 120 {
		t.Errorf("same zoom must not move scroll, got %v", v.ScrollPx)
	}
}

func TestPxTimeRoundTrip(t *testing.T) {
	v := NewViewport()
	v.Zoom = 2.0
	v.ScrollPx = 75

	ms := int64(12345)
	px := v.PxAtTime(ms)
	if got := v.TimeAtPx(px); math.Abs(float64(got-ms)) > 1 {
		t.Errorf("round trip %dms -> %vpx -> %dms", ms, px, got)
	}
}

func TestClipWidthFloor(t *testing.T) {
	v := NewViewport()
	short := models.Clip{InMs: 0, OutMs: 40}
	if got := v.ClipWidthPx(short); got != MinClipWidthPx {
		t.Errorf("short clip width = %v, want floor %v", got, MinClipWidthPx)
	}
	long := models.Clip{InMs: 0, OutMs: 10000}
	if got := v.ClipWidthPx(long); got != 500 {
		t.Errorf("10s clip at zoom 1 = %vpx, want 500", got)
	}
}

func TestTrimDeltaMs(t *testing.T) {
	if got := TrimDeltaMs(100, 50); got != 2000 {
		t.Errorf("100px at 50pps = %dms, want 2000", got)
	}
	if got := TrimDeltaMs(-25, 50); got != -500 {
		t.Errorf("-25px at 50pps = %dms, want -500", got)
	}
	if got := TrimDeltaMs(100, 0); got != 0 {
		t.Errorf("zero pps must yield 0, got %d", got)
	}
}

func TestApplyTrim(t *testing.T) {
	c := models.Clip{InMs: 1000, OutMs: 5000}

	tests := []struct {
		name    string
		edge    TrimEdge
		delta   int64
		srcDur  int64
		wantIn  int64
		wantOut int64
	}{
		{"drag in right", TrimIn, 500, 10000, 1500, 5000},
		{"drag in left clamps at zero", TrimIn, -2000, 10000, 0, 5000},
		{"drag in past out clamps to floor", TrimIn, 9000, 10000, 4990, 5000},
		{"drag out right", TrimOut, 1000, 10000, 1000, 6000},
		{"drag out past source clamps", TrimOut, 9000, 7000, 1000, 7000},
		{"drag out unknown source unclamped", TrimOut, 9000, 0, 1000, 14000},
		{"drag out past in clamps to floor", TrimOut, -5000, 10000, 1000, 1010},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inMs, outMs := ApplyTrim(c, tt.edge, tt.delta, tt.srcDur)
			if inMs != tt.wantIn || outMs != tt.wantOut {
				t.Errorf("got [%d, %d), want [%d, %d)", inMs, outMs, tt.wantIn, tt.wantOut)
			}
		})
	}
}
