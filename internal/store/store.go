package store

import (
	"errors"
	"sync"

	"github.com/neuralscale/enhancer/internal/model"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrDuplicateID  = errors.New("duplicate item id")
)

// EventType classifies item store notifications.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventRemoved EventType = "removed"
)

// Event carries a full item snapshot for one store mutation.
type Event struct {
	Type EventType       `json:"type"`
	Item model.MediaItem `json:"item"`
}

// Store is the authoritative in-memory collection of media items.
//
// All mutation happens by whole-item replace under the lock, so a reader
// always observes a fully consistent snapshot, never a torn write. Items
// live until explicitly removed.
type Store struct {
	mu    sync.RWMutex
	items map[string]model.MediaItem
	order []string // insertion order for listing

	subMu sync.RWMutex
	subs  map[chan Event]struct{}
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		items: make(map[string]model.MediaItem),
		subs:  make(map[chan Event]struct{}),
	}
}

// Put inserts a new item. Inserting an id that already exists is refused;
// ids come from a collision-resistant generator, so a duplicate indicates
// a caller bug rather than bad luck.
func (s *Store) Put(item model.MediaItem) error {
	s.mu.Lock()
	if _, ok := s.items[item.ID]; ok {
		s.mu.Unlock()
		return ErrDuplicateID
	}
	s.items[item.ID] = item
	s.order = append(s.order, item.ID)
	s.mu.Unlock()

	s.notify(Event{Type: EventCreated, Item: item})

	return nil
}

// Get returns a snapshot of the item with the given id.
func (s *Store) Get(id string) (model.MediaItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return model.MediaItem{}, ErrItemNotFound
	}

	return item, nil
}

// List returns snapshots of all items in insertion order.
func (s *Store) List() []model.MediaItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.MediaItem, 0, len(s.order))
	for _, id := range s.order {
		if item, ok := s.items[id]; ok {
			out = append(out, item)
		}
	}

	return out
}

// Update applies fn to a copy of the item and swaps the result in
// atomically. If the item no longer exists the update is a no-op; a
// pipeline racing a user removal must not resurrect the item.
func (s *Store) Update(id string, fn func(model.MediaItem) model.MediaItem) (model.MediaItem, error) {
	s.mu.Lock()
	item, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return model.MediaItem{}, ErrItemNotFound
	}
	updated := fn(item)
	updated.ID = item.ID // the id is immutable
	s.items[id] = updated
	s.mu.Unlock()

	s.notify(Event{Type: EventUpdated, Item: updated})

	return updated, nil
}

// Remove deletes the item and returns its final snapshot so the caller can
// release resources the item still references.
func (s *Store) Remove(id string) (model.MediaItem, error) {
	s.mu.Lock()
	item, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return model.MediaItem{}, ErrItemNotFound
	}
	delete(s.items, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	s.notify(Event{Type: EventRemoved, Item: item})

	return item, nil
}

// Len returns the number of stored items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.items)
}

// Subscribe registers a channel receiving an Event per store mutation.
// Delivery is best effort: events an unready subscriber cannot accept are
// dropped rather than blocking writers.
func (s *Store) Subscribe(buffer int) chan Event {
	ch := make(chan Event, buffer)

	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (s *Store) Unsubscribe(ch chan Event) {
	s.subMu.Lock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
	s.subMu.Unlock()
}

func (s *Store) notify(evt Event) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for ch := range s.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
