package playback

import (
	"time"
)

// FrameIntervalMs approximates one display frame at 60fps. A clip within one
// frame of its out-point is treated as having reached the boundary.
const FrameIntervalMs = 16

// frameLoop re-invokes the engine step on a fixed frame interval. It is the
// explicit stand-in for the browser's animation-frame callback so tests can
// bypass it and step the engine directly.
type frameLoop struct {
	interval time.Duration
	stop     chan struct{}
}

func newFrameLoop(step func(now time.Time)) *frameLoop {
	l := &frameLoop{
		interval: FrameIntervalMs * time.Millisecond,
		stop:     make(chan struct{}),
	}
	go l.run(step)
	return l
}

func (l *frameLoop) run(step func(now time.Time)) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			step(now)
		case <-l.stop:
			return
		}
	}
}

func (l *frameLoop) Stop() {
	close(l.stop)
}
