package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/HayashidaReo/nikken-sync/internal/logger"
	"github.com/HayashidaReo/nikken-sync/internal/model"
)

// RawEvent is the untyped change frame a backend delivers; it is also the
// wire format of the HTTP change feed.
type RawEvent struct {
	Type EventType       `json:"type"`
	ID   string          `json:"id"`
	Doc  json.RawMessage `json:"doc,omitempty"`
}

// RawBackend is a document store addressed by collection path. The memory
// store and the HTTP client both implement it; NewStore layers the typed
// collection contract on top.
type RawBackend interface {
	GetDoc(ctx context.Context, path, id string) (json.RawMessage, error)
	ListDocs(ctx context.Context, path string) ([]json.RawMessage, error)
	PutDoc(ctx context.Context, path, id string, doc json.RawMessage) error
	DeleteDoc(ctx context.Context, path, id string) error
	WatchDocs(ctx context.Context, path string, fn func(RawEvent)) (Unsubscribe, error)
}

type rawCollection[T model.Entity] struct {
	backend RawBackend
	path    string
}

// NewRawCollection adapts one backend path to the typed Collection contract.
func NewRawCollection[T model.Entity](backend RawBackend, path string) Collection[T] {
	return rawCollection[T]{backend: backend, path: path}
}

func (c rawCollection[T]) GetByID(ctx context.Context, id string) (T, error) {
	var doc T
	raw, err := c.backend.GetDoc(ctx, c.path, id)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("failed to decode document %s/%s: %w", c.path, id, err)
	}
	return doc, nil
}

func (c rawCollection[T]) ListAll(ctx context.Context) ([]T, error) {
	raws, err := c.backend.ListDocs(ctx, c.path)
	if err != nil {
		return nil, err
	}
	docs := make([]T, 0, len(raws))
	for _, raw := range raws {
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document in %s: %w", c.path, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c rawCollection[T]) put(ctx context.Context, doc T) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document for %s: %w", c.path, err)
	}
	return c.backend.PutDoc(ctx, c.path, doc.EntityID(), raw)
}

func (c rawCollection[T]) Create(ctx context.Context, doc T) error {
	return c.put(ctx, doc)
}

func (c rawCollection[T]) Update(ctx context.Context, doc T) error {
	return c.put(ctx, doc)
}

func (c rawCollection[T]) Delete(ctx context.Context, id string) error {
	return c.backend.DeleteDoc(ctx, c.path, id)
}

func (c rawCollection[T]) ListenAll(ctx context.Context, fn func(Event[T])) (Unsubscribe, error) {
	return c.backend.WatchDocs(ctx, c.path, func(raw RawEvent) {
		ev := Event[T]{Type: raw.Type, ID: raw.ID}
		if raw.Type != EventRemoved {
			if err := json.Unmarshal(raw.Doc, &ev.Doc); err != nil {
				logger.Log.Error("Dropping undecodable change event",
					zap.String("path", c.path),
					zap.String("id", raw.ID),
					zap.Error(err),
				)
				return
			}
		}
		fn(ev)
	})
}

func (c rawCollection[T]) ListenByID(ctx context.Context, id string, fn func(Event[T])) (Unsubscribe, error) {
	return c.ListenAll(ctx, func(ev Event[T]) {
		if ev.ID == id {
			fn(ev)
		}
	})
}
