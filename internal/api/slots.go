package api

import (
	"sync"

	"github.com/mvickers/papercut/internal/playback"
)

// slotCommand is pushed to the browser, which applies it to the matching
// <video> element. The daemon decides, the browser obeys and reports time.
type slotCommand struct {
	Slot   int     `json:"slot"`
	Cmd    string  `json:"cmd"`
	Src    string  `json:"src,omitempty"`
	Ms     int64   `json:"ms,omitempty"`
	Volume float64 `json:"volume,omitempty"`
	Rate   float64 `json:"rate,omitempty"`
}

// RemoteSlots backs the playback engine's two slots with the browser's two
// video elements, bridged over the UI hub. Element time flows back via
// slot:time reports; until a loaded slot reports, its time reads as not
// ready so the engine skips the tick.
type RemoteSlots struct {
	hub *WSHub

	mu     sync.Mutex
	lastMs [2]int64
}

func NewRemoteSlots(hub *WSHub) *RemoteSlots {
	r := &RemoteSlots{hub: hub}
	r.lastMs[0], r.lastMs[1] = -1, -1
	return r
}

// Slot returns the playback.Slot handle for index 0 or 1.
func (r *RemoteSlots) Slot(index int) playback.Slot {
	return &remoteSlot{owner: r, index: index}
}

// ReportTime records a browser-reported element time.
func (r *RemoteSlots) ReportTime(slot int, ms int64) {
	if slot < 0 || slot > 1 {
		return
	}
	r.mu.Lock()
	r.lastMs[slot] = ms
	r.mu.Unlock()
}

type remoteSlot struct {
	owner *RemoteSlots
	index int
}

func (s *remoteSlot) Load(src string, atMs int64) error {
	s.owner.mu.Lock()
	s.owner.lastMs[s.index] = -1 // stale until the element reports again
	s.owner.mu.Unlock()
	s.owner.hub.Broadcast("playback:slots", slotCommand{Slot: s.index, Cmd: "load", Src: src, Ms: atMs})
	return nil
}

func (s *remoteSlot) Play() {
	s.owner.hub.Broadcast("playback:slots", slotCommand{Slot: s.index, Cmd: "play"})
}

func (s *remoteSlot) Pause() {
	s.owner.hub.Broadcast("playback:slots", slotCommand{Slot: s.index, Cmd: "pause"})
}

func (s *remoteSlot) Seek(ms int64) {
	s.owner.hub.Broadcast("playback:slots", slotCommand{Slot: s.index, Cmd: "seek", Ms: ms})
}

func (s *remoteSlot) CurrentMs() int64 {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()
	return s.owner.lastMs[s.index]
}

func (s *remoteSlot) SetVolume(v float64) {
	s.owner.hub.Broadcast("playback:slots", slotCommand{Slot: s.index, Cmd: "volume", Volume: v})
}

func (s *remoteSlot) SetRate(rate float64) {
	s.owner.hub.Broadcast("playback:slots", slotCommand{Slot: s.index, Cmd: "rate", Rate: rate})
}
