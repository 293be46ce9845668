package app

import (
	"context"
	"sync"
	"time"

	"github.com/AnshRaj112/vibes-platform/internal/metrics"
)

// Factory opens the workspace of a client seen for the first time.
type Factory func(ctx context.Context, clientID, inviteCode string) (*Workspace, error)

// opener serialises the first Open of one client. waiters counts the callers
// holding it; the last one out removes it from the registry.
type opener struct {
	mu      sync.Mutex
	waiters int
}

type entry struct {
	ws       *Workspace
	lastSeen time.Time
}

// Registry holds one Workspace per client id.
type Registry struct {
	factory Factory

	mu    sync.Mutex
	items map[string]*entry
	opening map[string]*opener
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory: factory,
		items:   make(map[string]*entry),
		opening: make(map[string]*opener),
	}
}

// Get returns the client's workspace, opening it on first use. inviteCode only
// matters for that first open.
func (r *Registry) Get(ctx context.Context, clientID, inviteCode string) (*Workspace, error) {
	if ws := r.lookup(clientID); ws != nil {
		return ws, nil
	}

	r.mu.Lock()
	o, ok := r.opening[clientID]
	if !ok {
		o = &opener{}
		r.opening[clientID] = o
	}
	o.waiters++
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		o.waiters--
		if o.waiters == 0 {
			delete(r.opening, clientID)
		}
		r.mu.Unlock()
	}()

	o.mu.Lock()
	defer o.mu.Unlock()
	if ws := r.lookup(clientID); ws != nil {
		return ws, nil
	}
	ws, err := r.factory(ctx, clientID, inviteCode)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.items[clientID] = &entry{ws: ws, lastSeen: time.Now()}
	r.mu.Unlock()
	metrics.WorkspaceOpened()
	return ws, nil
}

func (r *Registry) lookup(clientID string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[clientID]
	if !ok {
		return nil
	}
	e.lastSeen = time.Now()
	return e.ws
}

// Len returns the number of open workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Sweep closes workspaces not used for longer than idle.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	r.mu.Lock()
	var stale []*Workspace
	for id, e := range r.items {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, e.ws)
			delete(r.items, id)
		}
	}
	r.mu.Unlock()
	for _, ws := range stale {
		ws.Close()
		metrics.WorkspaceClosed()
	}
	return len(stale)
}

// StartSweeper runs Sweep every interval until ctx is done.
func (r *Registry) StartSweeper(ctx context.Context, interval, idle time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Sweep(idle)
			}
		}
	}()
}

// Close closes every workspace.
func (r *Registry) Close() {
	r.mu.Lock()
	items := r.items
	r.items = make(map[string]*entry)
	r.mu.Unlock()
	for _, e := range items {
		e.ws.Close()
		metrics.WorkspaceClosed()
	}
}
