package explorer

import (
	"sync"
	"time"
)

// Viewport is the camera of the rendering surface
type Viewport interface {
	CenterOn(x, y, zoom float64, duration time.Duration)
	FitView(padding float64, duration time.Duration)
}

// Camera is one recorded camera command
type Camera struct {
	Kind       string  `json:"kind"` // "center" or "fit"
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Zoom       float64 `json:"zoom,omitempty"`
	Padding    float64 `json:"padding,omitempty"`
	DurationMs int64   `json:"durationMs"`
}

// CenterCommand builds the camera command for CenterOn
func CenterCommand(x, y, zoom float64, d time.Duration) Camera {
	return Camera{Kind: "center", X: x, Y: y, Zoom: zoom, DurationMs: d.Milliseconds()}
}

// FitCommand builds the camera command for FitView
func FitCommand(padding float64, d time.Duration) Camera {
	return Camera{Kind: "fit", Padding: padding, DurationMs: d.Milliseconds()}
}

// Recorder is a Viewport that keeps the commands it receives. The CLI and
// tests use it when there is no live surface.
type Recorder struct {
	mu       sync.Mutex
	commands []Camera
}

func (r *Recorder) CenterOn(x, y, zoom float64, duration time.Duration) {
	r.add(CenterCommand(x, y, zoom, duration))
}

func (r *Recorder) FitView(padding float64, duration time.Duration) {
	r.add(FitCommand(padding, duration))
}

func (r *Recorder) add(c Camera) {
	r.mu.Lock()
	r.commands = append(r.commands, c)
	r.mu.Unlock()
}

// Commands returns a copy of everything recorded so far
func (r *Recorder) Commands() []Camera {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Camera(nil), r.commands...)
}

// Last returns the most recent command
func (r *Recorder) Last() (Camera, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.commands) == 0 {
		return Camera{}, false
	}
	return r.commands[len(r.commands)-1], true
}
