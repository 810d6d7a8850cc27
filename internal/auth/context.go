package auth

import "sync"

// Context holds the process-wide current identity with an explicit
// subscribe/unsubscribe lifecycle. It is initialized at application start and
// cleared on sign-out; views observe it instead of reading ambient globals.
type Context struct {
	mu        sync.RWMutex
	current   *Identity
	listeners map[int]func(*Identity)
	nextID    int
}

// NewContext returns an auth context with no identity established.
func NewContext() *Context {
	return &Context{listeners: make(map[int]func(*Identity))}
}

// Current returns the established identity, or false when signed out.
func (c *Context) Current() (Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return Identity{}, false
	}
	return *c.current, true
}

// Establish records a freshly authenticated identity and notifies listeners.
func (c *Context) Establish(id Identity) {
	c.mu.Lock()
	c.current = &id
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(&id)
	}
}

// SignOut tears the identity down and notifies listeners with nil.
func (c *Context) SignOut() {
	c.mu.Lock()
	c.current = nil
	listeners := c.snapshotListeners()
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(nil)
	}
}

// Subscribe registers a listener for identity changes and returns its
// unsubscribe function. The listener is invoked immediately with the current
// state so subscribers never start stale.
func (c *Context) Subscribe(fn func(*Identity)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	current := c.current
	c.mu.Unlock()

	fn(current)

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// snapshotListeners must be called with mu held.
func (c *Context) snapshotListeners() []func(*Identity) {
	out := make([]func(*Identity), 0, len(c.listeners))
	for _, fn := range c.listeners {
		out = append(out, fn)
	}
	return out
}
