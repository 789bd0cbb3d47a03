package tour

// State returns whether a tour is running
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active reports whether a tour is running
func (c *Controller) Active() bool { return c.State() == StateActive }

// Current returns the node at the current step, or "" when idle
func (c *Controller) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return ""
	}
	return c.path[c.index]
}

// Index returns the zero-based current step
func (c *Controller) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Progress returns the one-based current step and the path length, or 0, 0
// when idle.
func (c *Controller) Progress() (current, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return 0, 0
	}
	return c.index + 1, len(c.path)
}

// CanNext reports whether Next would move
func (c *Controller) CanNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateActive && c.index+1 < len(c.path)
}

// CanPrev reports whether Prev would move
func (c *Controller) CanPrev() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateActive && c.index > 0
}

// Path returns a copy of the tour path
func (c *Controller) Path() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.path...)
}

// Visited returns the path prefix up to and including the current step
func (c *Controller) Visited() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return nil
	}
	out := make(map[string]bool, c.index+1)
	for _, id := range c.path[:c.index+1] {
		out[id] = true
	}
	return out
}

// Expanded returns the nodes this tour expanded, in expansion order
func (c *Controller) Expanded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.expanded...)
}
