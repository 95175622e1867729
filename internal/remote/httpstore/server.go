// Package httpstore carries the remote document store contract over HTTP:
// REST routes for document CRUD plus a websocket change feed per
// collection. The server fronts any RawBackend; the client implements
// RawBackend over the same wire, so a device and the sync gateway speak the
// exact same contract as the in-process store.
package httpstore

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/HayashidaReo/nikken-sync/internal/logger"
	"github.com/HayashidaReo/nikken-sync/internal/remote"
)

const maxDocSize = 1 << 20

type Server struct {
	backend  remote.RawBackend
	upgrader websocket.Upgrader
}

func NewServer(backend remote.RawBackend) *Server {
	return &Server{
		backend: backend,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/v1/docs/*", s.handleGet)
	r.Put("/v1/docs/*", s.handlePut)
	r.Delete("/v1/docs/*", s.handleDelete)
	r.Get("/v1/watch/*", s.handleWatch)

	return r
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	id := r.URL.Query().Get("id")

	if id == "" {
		docs, err := s.backend.ListDocs(r.Context(), path)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, docs)
		return
	}

	doc, err := s.backend.GetDoc(r.Context(), path, id)
	if errors.Is(err, remote.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, doc)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	doc, err := io.ReadAll(io.LimitReader(r.Body, maxDocSize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !json.Valid(doc) {
		http.Error(w, "document is not valid JSON", http.StatusBadRequest)
		return
	}

	if err := s.backend.PutDoc(r.Context(), path, id, doc); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	if err := s.backend.DeleteDoc(r.Context(), path, id); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// done closes when the client goes away; the backend callback selects
	// on it so a dead connection never blocks delivery.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// The writer drains before the subscription exists so the snapshot
	// replay cannot fill the channel and wedge the backend.
	events := make(chan remote.RawEvent, 256)
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		for {
			select {
			case ev := <-events:
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-done:
				return
			case <-r.Context().Done():
				return
			}
		}
	}()

	unsub, err := s.backend.WatchDocs(r.Context(), path, func(ev remote.RawEvent) {
		select {
		case events <- ev:
		case <-done:
		}
	})
	if err != nil {
		logger.Log.Error("Failed to watch collection", zap.String("path", path), zap.Error(err))
		return
	}
	defer unsub()

	<-writeDone
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
