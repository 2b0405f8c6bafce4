package playback

import "fmt"

// Slot is one of the two interchangeable physical video-rendering handles.
// The engine is the only component allowed to drive a slot; which slot is
// "active" is an engine-side pointer, the slots themselves are identical.
//
// CurrentMs returns the slot's current source time, or a negative value when
// the underlying resource is not ready yet; the engine skips that tick's work
// rather than erroring.
type Slot interface {
	Load(src string, atMs int64) error
	Play()
	Pause()
	Seek(ms int64)
	CurrentMs() int64
	SetVolume(v float64)
	SetRate(r float64)
}

// LoadFailure reports a source that could not be resolved or loaded. It is a
// recoverable condition: playback halts at the last good position instead of
// advancing into the broken clip.
type LoadFailure struct {
	Source string
	Err    error
}

func (e *LoadFailure) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *LoadFailure) Unwrap() error {
	return e.Err
}

// Resolver maps a clip's source reference to a playable stream locator.
// A resolver error means the asset is not known yet, not a fatal condition.
type Resolver func(source string) (string, error)
