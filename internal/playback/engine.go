package playback

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mvickers/papercut/internal/models"
	"github.com/mvickers/papercut/internal/sequence"
)

type State string

const (
	StateIdle    State = "idle"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
)

// transition is the transient sub-state while crossing a clip boundary with a
// non-cut transition. Both slots play in parallel for its duration; the
// playhead advances by scaled wall-clock time because neither slot alone
// represents the viewer's position.
type transition struct {
	kind       models.TransitionKind
	durationMs int64
	elapsedMs  float64
	fromSlot   int
	toSlot     int
	nextClip   int
	startSeqMs int64
}

func (t *transition) progress() float64 {
	if t.durationMs <= 0 {
		return 1
	}
	return t.elapsedMs / float64(t.durationMs)
}

type TransitionSnapshot struct {
	Kind     models.TransitionKind `json:"kind"`
	Progress float64               `json:"progress"`
}

// Snapshot is the externally visible engine state, published to the UI hub
// after every tick and every control operation.
type Snapshot struct {
	State        State               `json:"state"`
	PlayheadMs   int64               `json:"playhead_ms"`
	TotalMs      int64               `json:"total_ms"`
	ActiveSlot   int                 `json:"active_slot"`
	ActiveClipID *uuid.UUID          `json:"active_clip_id,omitempty"`
	Transition   *TransitionSnapshot `json:"transition,omitempty"`
	Volume       float64             `json:"volume"`
	Rate         float64             `json:"rate"`
}

// Engine owns the two playback slots and the virtual playhead. It translates
// sequence time to per-slot source time, drives playback forward on a frame
// loop, and runs the boundary/transition state machine. All slot access goes
// through the engine; nothing else may touch a slot.
type Engine struct {
	mu      sync.Mutex
	slots   [2]Slot
	active  int
	state   State
	clips   []models.Clip
	trailMs int64
	resolve Resolver

	playheadMs int64
	activeClip int // index into clips, -1 when none
	trans      *transition
	volume     float64
	rate       float64

	loop     *frameLoop
	lastTick time.Time
	onUpdate func(Snapshot)
}

func NewEngine(a, b Slot, resolve Resolver) *Engine {
	return &Engine{
		slots:      [2]Slot{a, b},
		state:      StateIdle,
		activeClip: -1,
		resolve:    resolve,
		volume:     1.0,
		rate:       1.0,
	}
}

// OnUpdate registers the state-publish callback. Must be set before Play.
func (e *Engine) OnUpdate(fn func(Snapshot)) {
	e.mu.Lock()
	e.onUpdate = fn
	e.mu.Unlock()
}

// SetSequence swaps in the current clip list. An in-flight transition is
// cancelled since its boundary may no longer exist; the playhead is clamped
// and the active clip re-derived.
func (e *Engine) SetSequence(seq models.Sequence) {
	e.mu.Lock()
	e.cancelTransitionLocked()
	e.clips = seq.Clone().Clips
	e.trailMs = seq.TrailingSilenceMs
	if total := e.totalMsLocked(); e.playheadMs > total {
		e.playheadMs = total
	}
	e.activeClip, _ = sequence.ClipAt(e.clips, e.playheadMs)
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

// Play starts (or resumes) playback from the current playhead. If the
// playhead lies within a clip that clip is loaded at the matching source
// offset, otherwise playback starts from the first clip. An unresolvable
// source is a silent no-op: the playhead stays put and the engine stays
// paused, because the asset may simply not be ingested yet.
func (e *Engine) Play() {
	e.mu.Lock()
	if e.state == StatePlaying || len(e.clips) == 0 {
		e.mu.Unlock()
		return
	}

	idx, srcMs := sequence.ClipAt(e.clips, e.playheadMs)
	if idx < 0 {
		idx, srcMs = 0, e.clips[0].InMs
		e.playheadMs = 0
	}
	if !e.loadSlotLocked(e.active, idx, srcMs) {
		e.mu.Unlock()
		return
	}

	e.activeClip = idx
	e.slots[e.active].Play()
	e.state = StatePlaying
	e.lastTick = time.Now()
	if e.loop == nil {
		e.loop = newFrameLoop(e.step)
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

// Pause halts playback without moving the playhead. An in-flight transition
// is cancelled: both slots pause and the transition state clears.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.state != StatePlaying {
		e.mu.Unlock()
		return
	}
	e.cancelTransitionLocked()
	e.slots[e.active].Pause()
	e.state = StatePaused
	e.stopLoopLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

// Seek jumps the playhead to ms (clamped to the sequence), cancelling any
// in-flight transition synchronously. When playing, playback resumes from
// the target.
func (e *Engine) Seek(ms int64) {
	e.mu.Lock()
	e.cancelTransitionLocked()

	if ms < 0 {
		ms = 0
	}
	if total := e.totalMsLocked(); ms > total {
		ms = total
	}
	e.playheadMs = ms

	idx, srcMs := sequence.ClipAt(e.clips, ms)
	if idx < 0 && len(e.clips) > 0 {
		// Past the last clip (trailing silence): park on the final frame.
		idx = len(e.clips) - 1
		srcMs = e.clips[idx].OutMs
	}
	if idx >= 0 && e.loadSlotLocked(e.active, idx, srcMs) {
		e.activeClip = idx
		if e.state == StatePlaying {
			e.slots[e.active].Play()
		}
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

// Stop pauses both slots, resets the playhead to zero and restores the
// canonical slot assignment.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.trans = nil
	e.slots[0].Pause()
	e.slots[1].Pause()
	e.active = 0
	e.activeClip = -1
	e.playheadMs = 0
	e.state = StateIdle
	e.stopLoopLocked()
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

// SetVolume applies engine-wide volume to both slots immediately, so a later
// slot swap is already configured.
func (e *Engine) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	e.mu.Lock()
	e.volume = v
	e.slots[0].SetVolume(v)
	e.slots[1].SetVolume(v)
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

// SetRate applies engine-wide playback rate to both slots immediately.
func (e *Engine) SetRate(r float64) {
	if r <= 0 {
		r = 1.0
	}
	e.mu.Lock()
	e.rate = r
	e.slots[0].SetRate(r)
	e.slots[1].SetRate(r)
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) PlayheadMs() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playheadMs
}

// step advances the engine by one frame. Transition handling and normal
// playback are mutually exclusive per tick.
func (e *Engine) step(now time.Time) {
	e.mu.Lock()
	if e.state != StatePlaying {
		e.mu.Unlock()
		return
	}
	delta := now.Sub(e.lastTick)
	e.lastTick = now

	if e.trans != nil {
		e.stepTransitionLocked(delta)
	} else {
		e.stepPlaybackLocked()
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()
	e.publish(snap)
}

// stepTransitionLocked advances the crossfade by scaled wall-clock time. On
// completion the outgoing slot pauses, slot identity swaps, and exactly one
// slot is left playing.
func (e *Engine) stepTransitionLocked(delta time.Duration) {
	t := e.trans
	t.elapsedMs += float64(delta.Milliseconds()) * e.rate

	advanced := int64(t.elapsedMs)
	if advanced > t.durationMs {
		advanced = t.durationMs
	}
	if ph := t.startSeqMs + advanced; ph > e.playheadMs {
		e.playheadMs = ph
	}

	if t.progress() >= 1 {
		e.slots[t.fromSlot].Pause()
		e.active = t.toSlot
		e.activeClip = t.nextClip
		e.trans = nil
	}
}

// stepPlaybackLocked samples the active slot's source time and republishes it
// as sequence time. The playhead never moves backward across a tick: a stale
// or not-yet-ready slot report is skipped, never double-counted.
func (e *Engine) stepPlaybackLocked() {
	if e.activeClip < 0 || e.activeClip >= len(e.clips) {
		return
	}
	c := e.clips[e.activeClip]

	srcMs := e.slots[e.active].CurrentMs()
	if srcMs < 0 {
		return // resource not ready; skip this tick's work
	}

	if ph := sequence.CumulativeStartMs(e.clips, e.activeClip) + (srcMs - c.InMs); ph > e.playheadMs {
		e.playheadMs = ph
	}

	if c.OutMs-srcMs <= FrameIntervalMs {
		e.beginBoundaryLocked(c)
	}
}

// beginBoundaryLocked handles reaching the active clip's out-point: preload
// the next clip into the standby slot, start it, then either cut instantly or
// enter the transition sub-state.
func (e *Engine) beginBoundaryLocked(outgoing models.Clip) {
	next := e.activeClip + 1
	if next >= len(e.clips) {
		// End of sequence: stop advancing but keep the playhead where it is.
		e.slots[e.active].Pause()
		e.playheadMs = sequence.CumulativeStartMs(e.clips, len(e.clips))
		e.state = StatePaused
		e.stopLoopLocked()
		return
	}

	standby := 1 - e.active
	if !e.loadSlotLocked(standby, next, e.clips[next].InMs) {
		// Recoverable: halt at the last good position.
		e.slots[e.active].Pause()
		e.state = StatePaused
		e.stopLoopLocked()
		return
	}
	e.slots[standby].Play()

	if outgoing.Transition == nil || outgoing.Transition.Kind == models.TransitionCut {
		e.slots[e.active].Pause()
		e.active = standby
		e.activeClip = next
		return
	}

	e.trans = &transition{
		kind:       outgoing.Transition.Kind,
		durationMs: outgoing.Transition.EffectiveMs(),
		fromSlot:   e.active,
		toSlot:     standby,
		nextClip:   next,
		startSeqMs: sequence.CumulativeStartMs(e.clips, next),
	}
}

// loadSlotLocked resolves clip idx's source and loads it into the slot at the
// given offset. Failures are logged and reported as false, never raised.
func (e *Engine) loadSlotLocked(slot, idx int, srcMs int64) bool {
	c := e.clips[idx]
	url, err := e.resolve(c.Source)
	if err != nil {
		log.Printf("[engine] source %q not resolvable: %v", c.Source, err)
		return false
	}
	if err := e.slots[slot].Load(url, srcMs); err != nil {
		log.Printf("[engine] %v", &LoadFailure{Source: c.Source, Err: err})
		return false
	}
	e.slots[slot].SetVolume(e.volume)
	e.slots[slot].SetRate(e.rate)
	return true
}

func (e *Engine) cancelTransitionLocked() {
	if e.trans == nil {
		return
	}
	e.slots[e.trans.toSlot].Pause()
	e.trans = nil
}

func (e *Engine) stopLoopLocked() {
	if e.loop != nil {
		e.loop.Stop()
		e.loop = nil
	}
}

func (e *Engine) totalMsLocked() int64 {
	var total int64
	for _, c := range e.clips {
		total += c.DurationMs()
	}
	return total + e.trailMs
}

func (e *Engine) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:      e.state,
		PlayheadMs: e.playheadMs,
		TotalMs:    e.totalMsLocked(),
		ActiveSlot: e.active,
		Volume:     e.volume,
		Rate:       e.rate,
	}
	if e.activeClip >= 0 && e.activeClip < len(e.clips) {
		id := e.clips[e.activeClip].ID
		snap.ActiveClipID = &id
	}
	if e.trans != nil {
		p := e.trans.progress()
		if p > 1 {
			p = 1
		}
		snap.Transition = &TransitionSnapshot{Kind: e.trans.kind, Progress: p}
	}
	return snap
}

func (e *Engine) publish(snap Snapshot) {
	if e.onUpdate != nil {
		e.onUpdate(snap)
	}
}
