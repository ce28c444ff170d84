// Package watch fans committed document changes out to in-process
// subscribers. It is a change feed only: subscribers re-read the documents
// they care about.
package watch

import (
	"context"
	"strings"
	"sync"

	"github.com/mmynk/secretsanta/internal/storage"
)

const bufferSize = 64

type subscriber struct {
	prefix string
	ch     chan storage.Change
}

// Hub delivers changes to subscribers whose prefix matches the changed path.
// Slow subscribers lose changes rather than block a commit.
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscriber
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int]subscriber)}
}

// Subscribe receives every change under prefix ("" for all). cancel closes
// the channel; calling it twice is safe.
func (h *Hub) Subscribe(prefix string) (<-chan storage.Change, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan storage.Change, bufferSize)
	h.subs[id] = subscriber{prefix: prefix, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish hands changes to matching subscribers without blocking.
func (h *Hub) Publish(changes []storage.Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range changes {
		path := c.Path.String()
		for _, s := range h.subs {
			if !strings.HasPrefix(path, s.prefix) {
				continue
			}
			select {
			case s.ch <- c:
			default:
			}
		}
	}
}

// Store publishes the changes of every successful commit to a Hub.
type Store struct {
	storage.Store
	hub *Hub
}

// Wrap decorates store so that commits are published to hub.
func Wrap(store storage.Store, hub *Hub) *Store {
	return &Store{Store: store, hub: hub}
}

// Commit applies b and, once it is durable, publishes what it touched.
func (s *Store) Commit(ctx context.Context, b *storage.Batch) error {
	if err := s.Store.Commit(ctx, b); err != nil {
		return err
	}
	s.hub.Publish(b.Written())
	return nil
}
