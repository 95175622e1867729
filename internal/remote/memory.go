package remote

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memCollection struct {
	docs      map[string]json.RawMessage
	listeners map[string]func(RawEvent)
}

// MemoryStore is an in-process document store backend. Listener callbacks
// run synchronously on the mutating goroutine, outside the store lock, in
// the order the mutations were applied.
type MemoryStore struct {
	mu   sync.Mutex
	cols map[string]*memCollection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cols: make(map[string]*memCollection)}
}

// col returns the collection for a path, creating it lazily. Caller holds
// the lock.
func (s *MemoryStore) col(path string) *memCollection {
	c, ok := s.cols[path]
	if !ok {
		c = &memCollection{
			docs:      make(map[string]json.RawMessage),
			listeners: make(map[string]func(RawEvent)),
		}
		s.cols[path] = c
	}
	return c
}

func copyDoc(doc json.RawMessage) json.RawMessage {
	return append(json.RawMessage(nil), doc...)
}

func (s *MemoryStore) GetDoc(_ context.Context, path, id string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.col(path).docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDoc(doc), nil
}

func (s *MemoryStore) ListDocs(_ context.Context, path string) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.col(path)
	ids := sortedIDs(c.docs)
	docs := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, copyDoc(c.docs[id]))
	}
	return docs, nil
}

func (s *MemoryStore) PutDoc(_ context.Context, path, id string, doc json.RawMessage) error {
	s.mu.Lock()
	c := s.col(path)
	_, exists := c.docs[id]
	c.docs[id] = copyDoc(doc)
	fns := listenerSnapshot(c)
	s.mu.Unlock()

	evType := EventAdded
	if exists {
		evType = EventModified
	}
	deliver(fns, RawEvent{Type: evType, ID: id, Doc: copyDoc(doc)})
	return nil
}

func (s *MemoryStore) DeleteDoc(_ context.Context, path, id string) error {
	s.mu.Lock()
	c := s.col(path)
	_, exists := c.docs[id]
	delete(c.docs, id)
	fns := listenerSnapshot(c)
	s.mu.Unlock()

	// Deleting an absent document is a no-op, not an error.
	if exists {
		deliver(fns, RawEvent{Type: EventRemoved, ID: id})
	}
	return nil
}

func (s *MemoryStore) WatchDocs(_ context.Context, path string, fn func(RawEvent)) (Unsubscribe, error) {
	s.mu.Lock()
	c := s.col(path)
	key := uuid.New().String()

	// Snapshot replay: the current documents arrive as added events before
	// any live change, matching what a cloud snapshot listener delivers.
	replay := make([]RawEvent, 0, len(c.docs))
	for _, id := range sortedIDs(c.docs) {
		replay = append(replay, RawEvent{Type: EventAdded, ID: id, Doc: copyDoc(c.docs[id])})
	}
	c.listeners[key] = fn
	s.mu.Unlock()

	for _, ev := range replay {
		fn(ev)
	}

	unsub := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(c.listeners, key)
	}
	return unsub, nil
}

// listenerSnapshot copies the listener set so delivery can happen outside
// the lock; a listener may unsubscribe from inside its own callback.
func listenerSnapshot(c *memCollection) []func(RawEvent) {
	fns := make([]func(RawEvent), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	return fns
}

func deliver(fns []func(RawEvent), ev RawEvent) {
	for _, fn := range fns {
		fn(ev)
	}
}

func sortedIDs(docs map[string]json.RawMessage) []string {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
