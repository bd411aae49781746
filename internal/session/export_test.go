package session

// RefreshWaiters returns how many callers share the in-flight refresh.
func RefreshWaiters(c *Coordinator) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight == nil {
		return 0
	}
	return c.inflight.waiters
}
