// Package events carries change notifications between the transport, the
// workspaces and the websocket hub.
package events

import (
	"sync"

	"boltvault/internal/domain/models"

	"github.com/google/uuid"
)

type Kind string

const (
	DataChanged    Kind = "data.changed"
	FiltersChanged Kind = "filters.changed"
	AuthChanged    Kind = "auth.changed"
	// ViewUpdated tells a browser that its workspace changed on its own,
	// e.g. after a debounced search, and the view should be pulled again.
	ViewUpdated Kind = "view.updated"
)

type Event struct {
	Kind   Kind      `json:"type"`
	UserID uuid.UUID `json:"-"`
	// Origin names the workspace that caused the event, if any.
	Origin string `json:"-"`

	// Filters is set for FiltersChanged; the zero spec means cleared.
	Filters *models.FilterSpec `json:"filters,omitempty"`
	// Authenticated is set for AuthChanged.
	Authenticated bool `json:"authenticated,omitempty"`
}

func Data(userID uuid.UUID) Event {
	return Event{Kind: DataChanged, UserID: userID}
}

func Filters(userID uuid.UUID, spec models.FilterSpec) Event {
	return Event{Kind: FiltersChanged, UserID: userID, Filters: &spec}
}

func Auth(userID uuid.UUID, authenticated bool) Event {
	return Event{Kind: AuthChanged, UserID: userID, Authenticated: authenticated}
}

func View(userID uuid.UUID, origin string) Event {
	return Event{Kind: ViewUpdated, UserID: userID, Origin: origin}
}

// From returns e tagged with origin.
func (e Event) From(origin string) Event {
	e.Origin = origin
	return e
}

type Publisher interface {
	Publish(e Event)
}

// Bus delivers every event to all subscribers, synchronously and in
// subscription order.
type Bus struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(Event)
	keys []int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	b.subs[id] = fn
	b.keys = append(b.keys, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		delete(b.subs, id)
		for i, k := range b.keys {
			if k == id {
				b.keys = append(b.keys[:i], b.keys[i+1:]...)
				break
			}
		}
	}
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.keys))
	for _, k := range b.keys {
		fns = append(fns, b.subs[k])
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}
