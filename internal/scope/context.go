// Package scope tracks which city the host currently has open.
package scope

import (
	"log/slog"
	"sync"
	"time"
)

// NoScope is the name reported while no city is loaded.
const NoScope = "No city loaded"

// Context holds the open scope. It is read from logging and handler
// goroutines, so access goes through the lock.
type Context struct {
	mu       sync.RWMutex
	name     string
	key      string
	openedAt time.Time
}

// NewContext creates a Context with no scope open.
func NewContext() *Context {
	return &Context{name: NoScope}
}

// Open records the display name and the sanitized storage key of a scope.
func (c *Context) Open(name, key string, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
	c.key = key
	c.openedAt = at
}

// Close resets to no scope.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = NoScope
	c.key = ""
	c.openedAt = time.Time{}
}

// Name returns the display name of the open scope.
func (c *Context) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

// Key returns the storage key, empty when nothing is open.
func (c *Context) Key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key
}

// IsOpen reports whether a scope is open.
func (c *Context) IsOpen() bool {
	return c.Key() != ""
}

// OpenedAt returns when the scope was opened.
func (c *Context) OpenedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.openedAt
}

// LogAttrs returns the attributes added to every log record.
func (c *Context) LogAttrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.key == "" {
		return nil
	}
	return []slog.Attr{slog.String("scope", c.key)}
}
