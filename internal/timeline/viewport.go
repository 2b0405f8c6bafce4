package timeline

import (
	"github.com/mvickers/papercut/internal/models"
)

const (
	MinZoom = 0.25
	MaxZoom = 6.0

	// DefaultBasePPS is the pixels-per-second of timeline at zoom 1.0.
	DefaultBasePPS = 50.0

	// MinClipWidthPx keeps very short clips grabbable.
	MinClipWidthPx = 24.0
)

// Viewport holds the zoom/scroll state of the timeline strip. Pure math; the
// drag preview and other transient drag state stay in the browser.
type Viewport struct {
	BasePPS  float64 `json:"base_pps"`
	Zoom     float64 `json:"zoom"`
	ScrollPx float64 `json:"scroll_px"`
}

func NewViewport() Viewport {
	return Viewport{BasePPS: DefaultBasePPS, Zoom: 1.0}
}

func (v Viewport) PixelsPerSecond() float64 {
	return v.BasePPS * v.Zoom
}

func (v Viewport) ClipWidthPx(c models.Clip) float64 {
	w := float64(c.DurationMs()) / 1000.0 * v.PixelsPerSecond()
	if w < MinClipWidthPx {
		return MinClipWidthPx
	}
	return w
}

// TimeAtPx maps a viewport-relative pixel position to sequence time.
func (v Viewport) TimeAtPx(px float64) int64 {
	return int64((v.ScrollPx + px) / v.PixelsPerSecond() * 1000.0)
}

// PxAtTime maps sequence time to a viewport-relative pixel position.
func (v Viewport) PxAtTime(ms int64) float64 {
	return float64(ms)/1000.0*v.PixelsPerSecond() - v.ScrollPx
}

// SetZoomAt changes the zoom level while keeping the sequence time under the
// cursor fixed: the scroll offset is recomputed from the pre/post
// pixels-per-second ratio. Zooming from the origin instead would make the
// content crawl away under the pointer.
func (v *Viewport) SetZoomAt(zoom, cursorPx float64) {
	zoom = ClampZoom(zoom)
	if zoom == v.Zoom {
		return
	}
	oldPPS := v.PixelsPerSecond()
	anchorSec := (v.ScrollPx + cursorPx) / oldPPS

	v.Zoom = zoom
	v.ScrollPx = anchorSec*v.PixelsPerSecond() - cursorPx
	if v.ScrollPx < 0 {
		v.ScrollPx = 0
	}
}

func ClampZoom(zoom float64) float64 {
	if zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	return zoom
}

// TrimDeltaMs converts a pointer drag in pixels to a trim delta in
// milliseconds at the given pixels-per-second.
func TrimDeltaMs(pxDelta, pps float64) int64 {
	if pps <= 0 {
		return 0
	}
	return int64(pxDelta / pps * 1000.0)
}

type TrimEdge string

const (
	TrimIn  TrimEdge = "in"
	TrimOut TrimEdge = "out"
)

// minTrimMs mirrors the sequence model's floor so a trim accepted here is
// also accepted there.
const minTrimMs = 10

// ApplyTrim computes the clip's new window after dragging one edge by
// deltaMs. The delta is clamped so the window never collapses and never
// leaves [0, sourceDurMs] when the source duration is known (> 0).
func ApplyTrim(c models.Clip, edge TrimEdge, deltaMs, sourceDurMs int64) (inMs, outMs int64) {
	inMs, outMs = c.InMs, c.OutMs
	switch edge {
	case TrimIn:
		inMs += deltaMs
		if inMs < 0 {
			inMs = 0
		}
		if inMs > outMs-minTrimMs {
			inMs = outMs - minTrimMs
		}
	case TrimOut:
		outMs += deltaMs
		if sourceDurMs > 0 && outMs > sourceDurMs {
			outMs = sourceDurMs
		}
		if outMs < inMs+minTrimMs {
			outMs = inMs + minTrimMs
		}
	}
	return inMs, outMs
}
