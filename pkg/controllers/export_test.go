package controllers

// TrackedTurns reports how many turns the session still holds.
func (c *SessionController) TrackedTurns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Settled reports whether every tracked turn has returned and has no tool
// call left running.
func (c *SessionController) Settled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.turns {
		if !t.settled() {
			return false
		}
	}
	return true
}
