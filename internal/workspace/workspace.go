// Package workspace keeps one router per browser session in memory.
package workspace

import (
	"log/slog"
	"sync"
	"time"

	"boltvault/internal/events"
	"boltvault/internal/metrics"
	"boltvault/internal/router"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const DefaultIdleTTL = 30 * time.Minute

// Workspace is the server side state of one browser session.
type Workspace struct {
	Key    string
	UserID uuid.UUID
	Router *router.Router
}

// Builder creates the router of a new workspace.
type Builder func(key string, userID uuid.UUID) *router.Router

// Registry expires workspaces that were not used for the idle TTL.
type Registry struct {
	log   *slog.Logger
	build Builder
	items *cache.Cache

	mu sync.Mutex
}

func NewRegistry(log *slog.Logger, idleTTL time.Duration, build Builder) *Registry {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}

	items := cache.New(idleTTL, idleTTL/2)
	items.OnEvicted(func(key string, _ interface{}) {
		metrics.WorkspacesActive.Set(float64(items.ItemCount()))
		log.Debug("workspace evicted", slog.String("op", "workspace.Registry.evict"), slog.String("key", key))
	})

	return &Registry{
		log:   log,
		build: build,
		items: items,
	}
}

// Get returns the workspace for key, creating it on first use, and
// restarts its idle timer. A key reused by another user gets a fresh
// workspace.
func (r *Registry) Get(key string, userID uuid.UUID) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.items.Get(key); ok {
		w := v.(*Workspace)
		if w.UserID == userID {
			r.items.SetDefault(key, w)
			return w
		}
		r.items.Delete(key)
	}

	w := &Workspace{
		Key:    key,
		UserID: userID,
		Router: r.build(key, userID),
	}
	r.items.SetDefault(key, w)
	metrics.WorkspacesActive.Set(float64(r.items.ItemCount()))

	r.log.Debug("workspace created", slog.String("op", "workspace.Registry.Get"), slog.String("key", key))

	return w
}

// Drop forgets the workspace for key.
func (r *Registry) Drop(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items.Delete(key)
}

func (r *Registry) Len() int {
	return r.items.ItemCount()
}

// Handle applies an event to the workspaces it concerns. Data changes
// mark the galleries of the user's other workspaces stale; a sign out
// drops the workspace it came from.
func (r *Registry) Handle(e events.Event) {
	switch e.Kind {
	case events.DataChanged:
		for _, w := range r.ofUser(e.UserID) {
			if w.Key != e.Origin {
				w.Router.Gallery().Invalidate()
			}
		}
	case events.AuthChanged:
		if !e.Authenticated && e.Origin != "" {
			r.Drop(e.Origin)
		}
	}
}

func (r *Registry) ofUser(userID uuid.UUID) []*Workspace {
	var out []*Workspace
	for _, item := range r.items.Items() {
		if w, ok := item.Object.(*Workspace); ok && w.UserID == userID && userID != uuid.Nil {
			out = append(out, w)
		}
	}
	return out
}
