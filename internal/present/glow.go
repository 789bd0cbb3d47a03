package present

import (
	"sync"
	"time"
)

// DefaultGlowDuration is how long a node glows after Light
const DefaultGlowDuration = time.Second

// Glow tracks which nodes are glowing and switches each one off after a
// fixed duration. Lighting a node that is already lit restarts its timer,
// so an earlier timer can never clear a later glow.
type Glow struct {
	duration time.Duration
	onClear  func(id string)

	mu     sync.Mutex
	timers map[string]*time.Timer
	gen    map[string]uint64
}

// NewGlow creates a scheduler. onClear runs on the timer goroutine after a
// glow expires; it may be nil.
func NewGlow(duration time.Duration, onClear func(id string)) *Glow {
	if duration <= 0 {
		duration = DefaultGlowDuration
	}
	return &Glow{
		duration: duration,
		onClear:  onClear,
		timers:   make(map[string]*time.Timer),
		gen:      make(map[string]uint64),
	}
}

// Light makes id glow until the duration elapses
func (g *Glow) Light(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if t, ok := g.timers[id]; ok {
		t.Stop()
	}
	g.gen[id]++
	gen := g.gen[id]
	g.timers[id] = time.AfterFunc(g.duration, func() { g.expire(id, gen) })
}

func (g *Glow) expire(id string, gen uint64) {
	g.mu.Lock()
	if g.gen[id] != gen {
		g.mu.Unlock()
		return
	}
	delete(g.timers, id)
	g.mu.Unlock()

	if g.onClear != nil {
		g.onClear(id)
	}
}

// Lit returns the set of glowing node IDs
func (g *Glow) Lit() map[string]bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]bool, len(g.timers))
	for id := range g.timers {
		out[id] = true
	}
	return out
}

// IsLit reports whether id is glowing
func (g *Glow) IsLit(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.timers[id]
	return ok
}

// Clear switches every glow off without calling onClear
func (g *Glow) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, t := range g.timers {
		t.Stop()
		g.gen[id]++
		delete(g.timers, id)
	}
}
