// Package page holds the registry the host shell uses to drive page
// modules by name. Pages are looked up explicitly instead of resolving
// string-constructed init/destroy function names.
package page

import (
	"context"
	"fmt"
	"sync"
)

// Page is the lifecycle contract a page module exposes to the shell.
type Page interface {
	// Activate wires the page up: load state, arm schedules, render.
	Activate(ctx context.Context) error
	// Deactivate tears the page down when the user navigates away.
	Deactivate()
}

// Registry maps page identifiers to their modules.
type Registry struct {
	mu    sync.Mutex
	pages map[string]Page
}

// NewRegistry creates an empty page registry.
func NewRegistry() *Registry {
	return &Registry{pages: make(map[string]Page)}
}

// Register adds a page under its identifier, replacing any previous one.
func (r *Registry) Register(name string, p Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages[name] = p
}

// Activate looks a page up and activates it.
func (r *Registry) Activate(ctx context.Context, name string) error {
	r.mu.Lock()
	p, ok := r.pages[name]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("no page registered under %q", name)
	}
	return p.Activate(ctx)
}

// Deactivate looks a page up and deactivates it. Unknown names are
// ignored.
func (r *Registry) Deactivate(name string) {
	r.mu.Lock()
	p, ok := r.pages[name]
	r.mu.Unlock()
	if ok {
		p.Deactivate()
	}
}
